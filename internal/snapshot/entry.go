package snapshot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"snapdiff/internal/hash"
)

var (
	// ErrHashLength is returned when a digest does not match its algorithm's size.
	ErrHashLength = errors.New("hash length does not match algorithm")
	// ErrDirectoryHash is returned when a hash is set on a directory entry.
	ErrDirectoryHash = errors.New("directories cannot carry a hash")
)

// EntryType distinguishes files from directories.
type EntryType int

const (
	File EntryType = iota
	Directory
)

func (t EntryType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return fmt.Sprintf("EntryType(%d)", int(t))
	}
}

// ParseEntryType accepts "file"/"f" and "directory"/"dir"/"d".
func ParseEntryType(s string) (EntryType, error) {
	switch s {
	case "file", "f", "F":
		return File, nil
	case "directory", "dir", "d", "D":
		return Directory, nil
	default:
		return File, fmt.Errorf("unknown entry type %q", s)
	}
}

// Entry is a single file or directory record. Path and type are fixed at
// creation; the remaining attributes are optional and nil means "not collected".
type Entry struct {
	path string
	typ  EntryType

	Size         *int64
	CreatedTime  *time.Time
	ModifiedTime *time.Time

	hashAlgorithm hash.Algorithm
	hash          []byte
	hashHex       string
}

// NewEntry creates an entry with no attributes.
func NewEntry(path string, typ EntryType) *Entry {
	return &Entry{path: path, typ: typ}
}

func (e *Entry) Path() string    { return e.path }
func (e *Entry) Type() EntryType { return e.typ }
func (e *Entry) IsDir() bool     { return e.typ == Directory }

// SetHash stores a digest. The length must equal alg.Size() and the entry
// must be a file.
func (e *Entry) SetHash(alg hash.Algorithm, sum []byte) error {
	if e.typ == Directory {
		return fmt.Errorf("%w: %s", ErrDirectoryHash, e.path)
	}
	if !alg.Valid() {
		return fmt.Errorf("%s: %w: %s", e.path, hash.ErrUnknownAlgorithm, alg)
	}
	if len(sum) != alg.Size() {
		return fmt.Errorf("%w: %s has %d bytes, %s needs %d", ErrHashLength, e.path, len(sum), alg, alg.Size())
	}
	e.hashAlgorithm = alg
	e.hash = bytes.Clone(sum)
	e.hashHex = hex.EncodeToString(sum)
	return nil
}

// ClearHash removes any stored digest.
func (e *Entry) ClearHash() {
	e.hashAlgorithm = hash.None
	e.hash = nil
	e.hashHex = ""
}

func (e *Entry) HasHash() bool                 { return e.hash != nil }
func (e *Entry) Hash() []byte                  { return e.hash }
func (e *Entry) HashAlgorithm() hash.Algorithm { return e.hashAlgorithm }

// HashHex is the lowercase hex digest, or "" when no hash is present.
func (e *Entry) HashHex() string { return e.hashHex }

// WithPath returns a copy of e under a different path.
func (e *Entry) WithPath(path string) *Entry {
	c := *e
	c.path = path
	return &c
}

// Equal reports whether two entries agree on every field.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.path == o.path &&
		e.typ == o.typ &&
		e.hashAlgorithm == o.hashAlgorithm &&
		bytes.Equal(e.hash, o.hash) &&
		equalInt(e.Size, o.Size) &&
		equalTime(e.CreatedTime, o.CreatedTime) &&
		equalTime(e.ModifiedTime, o.ModifiedTime)
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Int64 and Time are small helpers for filling optional attributes.
func Int64(v int64) *int64 { return &v }

func Time(t time.Time) *time.Time { return &t }
