// Package format reads and writes snapshots as text, JSON or YAML documents.
package format

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Masterminds/semver/v3"

	"snapdiff/internal/hash"
	"snapdiff/internal/snapshot"
)

const (
	// Generator names the tool in every written document.
	Generator = "snapdiff"
	// Version of the document layout written by this package.
	Version = "1.0.0"

	supportedVersions = "^1.0.0"
)

var (
	// ErrUnsupportedVersion is returned for documents from an incompatible layout.
	ErrUnsupportedVersion = errors.New("unsupported snapshot format version")
	// ErrMalformed is returned for documents that cannot be decoded.
	ErrMalformed = errors.New("malformed snapshot document")
)

// Format serializes snapshots in one encoding.
type Format interface {
	Name() string
	Read(r io.Reader) (*snapshot.Snapshot, error)
	Write(w io.Writer, s *snapshot.Snapshot) error
}

type document struct {
	Generator string    `json:"generator" yaml:"generator"`
	Version   string    `json:"version" yaml:"version"`
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Taken     time.Time `json:"taken" yaml:"taken"`
	Separator string    `json:"separator" yaml:"separator"`
	Prefix    string    `json:"prefix" yaml:"prefix"`
	Entries   []record  `json:"entries" yaml:"entries"`
}

type record struct {
	Path          string         `json:"path" yaml:"path"`
	Type          string         `json:"type" yaml:"type"`
	Size          *int64         `json:"size,omitempty" yaml:"size,omitempty"`
	Created       *time.Time     `json:"created,omitempty" yaml:"created,omitempty"`
	Modified      *time.Time     `json:"modified,omitempty" yaml:"modified,omitempty"`
	HashAlgorithm hash.Algorithm `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty"`
	Hash          string         `json:"hash,omitempty" yaml:"hash,omitempty"`
}

func toDocument(s *snapshot.Snapshot) document {
	doc := document{
		Generator: Generator,
		Version:   Version,
		ID:        s.ID,
		Taken:     s.Taken.UTC(),
		Separator: string(s.Separator()),
		Prefix:    s.Prefix(),
		Entries:   make([]record, 0, s.Len()),
	}
	for _, e := range s.Entries() {
		doc.Entries = append(doc.Entries, record{
			Path:          e.Path(),
			Type:          e.Type().String(),
			Size:          e.Size,
			Created:       utc(e.CreatedTime),
			Modified:      utc(e.ModifiedTime),
			HashAlgorithm: e.HashAlgorithm(),
			Hash:          e.HashHex(),
		})
	}
	return doc
}

func fromDocument(doc document) (*snapshot.Snapshot, error) {
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}
	if len(doc.Separator) != 1 {
		return nil, fmt.Errorf("%w: separator %q must be a single character", ErrMalformed, doc.Separator)
	}

	s := snapshot.New(doc.Separator[0])
	s.ID = doc.ID
	s.Taken = doc.Taken

	for _, rec := range doc.Entries {
		e, err := rec.entry()
		if err != nil {
			return nil, err
		}
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	if s.Len() > 0 && doc.Prefix != s.Prefix() {
		if err := s.SetPrefix(doc.Prefix); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (rec record) entry() (*snapshot.Entry, error) {
	typ, err := snapshot.ParseEntryType(rec.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, rec.Path, err)
	}

	e := snapshot.NewEntry(rec.Path, typ)
	e.Size = rec.Size
	e.CreatedTime = rec.Created
	e.ModifiedTime = rec.Modified

	if rec.Hash != "" {
		sum, err := hex.DecodeString(rec.Hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad hash: %v", ErrMalformed, rec.Path, err)
		}
		if err := e.SetHash(rec.HashAlgorithm, sum); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func checkVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
