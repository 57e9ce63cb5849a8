// Package match implements three-valued comparisons over optional entry
// metadata.
package match

import (
	"bytes"
	"time"

	"snapdiff/internal/snapshot"
)

// Result is the outcome of comparing two possibly-absent values.
type Result int

const (
	// Unknown means at least one side lacked the data needed to decide.
	Unknown Result = iota
	Match
	NoMatch
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case NoMatch:
		return "no-match"
	default:
		return "unknown"
	}
}

// Resolve collapses r to a boolean "matches". Unknown resolves to
// !unknownAssumeModified.
func (r Result) Resolve(unknownAssumeModified bool) bool {
	switch r {
	case Match:
		return true
	case NoMatch:
		return false
	default:
		return !unknownAssumeModified
	}
}

// WithinWindow reports whether a and b differ by at most window.
func WithinWindow(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// Times compares two optional timestamps within window.
func Times(a, b *time.Time, window time.Duration) Result {
	if a == nil || b == nil {
		return Unknown
	}
	if WithinWindow(*a, *b, window) {
		return Match
	}
	return NoMatch
}

// Sizes compares two optional sizes.
func Sizes(a, b *int64) Result {
	if a == nil || b == nil {
		return Unknown
	}
	if *a == *b {
		return Match
	}
	return NoMatch
}

// Modified compares the last-modified timestamps of two entries. Creation
// time is not considered.
func Modified(a, b *snapshot.Entry, window time.Duration) Result {
	return Times(a.ModifiedTime, b.ModifiedTime, window)
}

// Content decides whether two entries hold the same bytes. Hashes win when
// both sides carry one of the same algorithm; otherwise size and
// modification time are used, and a size/time agreement only counts as a
// match when sizeAndTime is set.
func Content(a, b *snapshot.Entry, sizeAndTime bool, window time.Duration) Result {
	if a.HasHash() && b.HasHash() && a.HashAlgorithm() == b.HashAlgorithm() {
		if bytes.Equal(a.Hash(), b.Hash()) && Sizes(a.Size, b.Size) != NoMatch {
			return Match
		}
		return NoMatch
	}

	if a.Size != nil && b.Size != nil && a.ModifiedTime != nil && b.ModifiedTime != nil {
		if *a.Size != *b.Size || !WithinWindow(*a.ModifiedTime, *b.ModifiedTime, window) {
			return NoMatch
		}
		if sizeAndTime {
			return Match
		}
		return Unknown
	}

	return Unknown
}

// Metadata decides whether live metadata for an entry still agrees with a
// previously recorded one, ignoring path and hash. Like the pairwise
// comparison it looks at size and modified time only.
func Metadata(live, recorded *snapshot.Entry, window time.Duration) Result {
	if live.Type() != recorded.Type() {
		return NoMatch
	}

	out := Match
	for _, r := range []Result{
		Sizes(live.Size, recorded.Size),
		Modified(live, recorded, window),
	} {
		switch r {
		case NoMatch:
			return NoMatch
		case Unknown:
			out = Unknown
		}
	}
	return out
}
