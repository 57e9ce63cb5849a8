// Package snapshot holds the point-in-time inventory of a file tree.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrDuplicatePath is returned when adding an entry whose path is already present.
	ErrDuplicatePath = errors.New("duplicate path")
	// ErrPrefixMismatch is returned when a path does not live under the snapshot prefix.
	ErrPrefixMismatch = errors.New("path does not start with snapshot prefix")
)

// Snapshot is a path-keyed set of entries sharing one directory separator.
// It is not safe for concurrent mutation.
type Snapshot struct {
	ID    string
	Taken time.Time

	separator byte
	entries   map[string]*Entry
	sorted    []string

	// prefixParts is nil until the first entry is added.
	prefixParts []string
	prefix      string
}

// New creates an empty snapshot using sep between path components.
func New(sep byte) *Snapshot {
	return &Snapshot{
		separator: sep,
		entries:   make(map[string]*Entry),
	}
}

func (s *Snapshot) Separator() byte { return s.separator }
func (s *Snapshot) Len() int        { return len(s.entries) }

// Prefix is the longest common leading directory of every entry, without a
// trailing separator unless it is the filesystem root.
func (s *Snapshot) Prefix() string { return s.prefix }

// Add inserts e and narrows the prefix.
func (s *Snapshot) Add(e *Entry) error {
	if _, exists := s.entries[e.path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, e.path)
	}
	s.entries[e.path] = e
	s.sorted = nil

	parent := s.parentParts(e.path)
	if s.prefixParts == nil {
		s.prefixParts = parent
	} else {
		s.prefixParts = commonParts(s.prefixParts, parent)
	}
	s.prefix = s.joinParts(s.prefixParts)
	return nil
}

// Get returns the entry at path, or nil.
func (s *Snapshot) Get(path string) *Entry {
	return s.entries[path]
}

// Contains reports whether an entry exists at path.
func (s *Snapshot) Contains(path string) bool {
	_, ok := s.entries[path]
	return ok
}

// Entries returns all entries ordered by path.
func (s *Snapshot) Entries() []*Entry {
	if s.sorted == nil {
		s.sorted = make([]string, 0, len(s.entries))
		for path := range s.entries {
			s.sorted = append(s.sorted, path)
		}
		sort.Strings(s.sorted)
	}
	out := make([]*Entry, len(s.sorted))
	for i, path := range s.sorted {
		out[i] = s.entries[path]
	}
	return out
}

// SetPrefix replaces the derived prefix with an explicit one, as stored in a
// serialized snapshot. Every entry must live under it.
func (s *Snapshot) SetPrefix(prefix string) error {
	parts := s.splitPrefix(prefix)
	for path := range s.entries {
		if !hasParts(s.parentParts(path), parts) {
			return fmt.Errorf("%w: %s not under %q", ErrPrefixMismatch, path, prefix)
		}
	}
	s.prefixParts = parts
	s.prefix = s.joinParts(parts)
	return nil
}

// PathWithoutPrefix strips the snapshot prefix and the separator following it.
func (s *Snapshot) PathWithoutPrefix(path string) (string, error) {
	if s.prefix == "" {
		return path, nil
	}
	if path == s.prefix {
		return "", nil
	}
	if strings.HasSuffix(s.prefix, string(s.separator)) {
		if strings.HasPrefix(path, s.prefix) {
			return path[len(s.prefix):], nil
		}
	} else if strings.HasPrefix(path, s.prefix+string(s.separator)) {
		return path[len(s.prefix)+1:], nil
	}
	return "", fmt.Errorf("%w: %q does not start with %q", ErrPrefixMismatch, path, s.prefix)
}

// ChangeSeparator rewrites path from the snapshot separator to sep.
func (s *Snapshot) ChangeSeparator(path string, sep byte) string {
	return ConvertSeparator(path, s.separator, sep)
}

// ConvertSeparator rewrites path from separator from to separator to.
func ConvertSeparator(path string, from, to byte) string {
	if from == to {
		return path
	}
	return strings.Join(strings.Split(path, string(from)), string(to))
}

// HasPathPrefix reports whether path equals prefix or lies below it,
// comparing whole components.
func HasPathPrefix(path, prefix string, sep byte) bool {
	switch {
	case prefix == "" || path == prefix:
		return true
	case prefix[len(prefix)-1] == sep:
		return strings.HasPrefix(path, prefix)
	default:
		return strings.HasPrefix(path, prefix+string(sep))
	}
}

// RelativePath strips the prefix and converts the result to sep.
func (s *Snapshot) RelativePath(path string, sep byte) (string, error) {
	rel, err := s.PathWithoutPrefix(path)
	if err != nil {
		return "", err
	}
	return s.ChangeSeparator(rel, sep), nil
}

// parentParts splits path and drops its final component.
func (s *Snapshot) parentParts(path string) []string {
	parts := strings.Split(path, string(s.separator))
	return parts[:len(parts)-1]
}

func (s *Snapshot) splitPrefix(prefix string) []string {
	if prefix == "" {
		return []string{}
	}
	if prefix == string(s.separator) {
		return []string{""}
	}
	return strings.Split(strings.TrimSuffix(prefix, string(s.separator)), string(s.separator))
}

func (s *Snapshot) joinParts(parts []string) string {
	if len(parts) == 1 && parts[0] == "" {
		// rooted path, e.g. "/a" and "/b" share only "/"
		return string(s.separator)
	}
	return strings.Join(parts, string(s.separator))
}

func commonParts(a, b []string) []string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i:i]
}

func hasParts(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
