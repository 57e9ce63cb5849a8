package hash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	stdhash "hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const bufferSize = 32 * 1024 // 32KB buffer for streaming

// ErrUnknownAlgorithm is returned when an algorithm name or value is not supported.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithm identifies a content digest.
type Algorithm int

const (
	None Algorithm = iota
	MD5
	SHA1
	SHA256
	SHA384
	SHA512
	XXH64
)

var algorithmNames = map[Algorithm]string{
	MD5:    "md5",
	SHA1:   "sha1",
	SHA256: "sha256",
	SHA384: "sha384",
	SHA512: "sha512",
	XXH64:  "xxh64",
}

// Algorithms returns every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, SHA384, SHA512, XXH64}
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	if a == None {
		return "none"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Size returns the digest length in bytes, or 0 for None and unknown values.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	case XXH64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether a names a supported digest.
func (a Algorithm) Valid() bool {
	return a.Size() > 0
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (stdhash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	case XXH64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
}

// ParseAlgorithm accepts names such as "sha256", "SHA-256" or "xxh64".
// The empty string and "none" map to None.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	if normalized == "" || normalized == "none" {
		return None, nil
	}
	if normalized == "xxhash" {
		return XXH64, nil
	}
	for alg, algName := range algorithmNames {
		if algName == normalized {
			return alg, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a == None {
		return []byte(""), nil
	}
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}

// Hasher computes digests of byte streams.
type Hasher struct{}

// NewHasher returns the default streaming hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Sum reads r to EOF and returns its digest, sized exactly alg.Size().
func (h *Hasher) Sum(alg Algorithm, r io.Reader) ([]byte, error) {
	d, err := alg.New()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, bufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
	}

	return d.Sum(nil), nil
}

// HashFile computes the digest of a file on the local filesystem.
func HashFile(alg Algorithm, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return NewHasher().Sum(alg, file)
}

// XXHashFunc is a custom hash function adapter for go-merkletree.
// It converts []byte input to a big-endian xxHash []byte output.
func XXHashFunc(data []byte) ([]byte, error) {
	sum := xxhash.Sum64(data)

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return buf, nil
}
