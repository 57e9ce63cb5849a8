package compare

import (
	"fmt"
	"sort"
	"time"

	"snapdiff/internal/match"
	"snapdiff/internal/snapshot"
)

// Options tune how ambiguous evidence is classified.
type Options struct {
	// SizeAndTimeMatch lets equal size and modification time stand in for
	// a hash match when no hash is available.
	SizeAndTimeMatch bool
	// UnknownAssumeModified is the outcome of an indeterminate comparison.
	UnknownAssumeModified bool
	// TimeWindow is the largest timestamp difference still treated as equal.
	TimeWindow time.Duration
}

// DefaultOptions returns the default comparison options.
func DefaultOptions() Options {
	return Options{
		SizeAndTimeMatch:      true,
		UnknownAssumeModified: true,
	}
}

// comparer carries the lookup tables and accumulators of one Compare call.
type comparer struct {
	opts  Options
	older *snapshot.Snapshot
	newer *snapshot.Snapshot
	diff  *Diff

	olderByPath map[string]*snapshot.Entry
	newerByPath map[string]*snapshot.Entry
	olderRel    map[*snapshot.Entry]string
	byHash      map[string][]*snapshot.Entry
	bySize      map[int64][]*snapshot.Entry

	// consumed holds older entries already used as a move source.
	consumed map[*snapshot.Entry]struct{}
}

// Compare classifies every entry of newer against older. Paths are matched
// after stripping each snapshot's prefix and converting older's separator
// to newer's.
func Compare(older, newer *snapshot.Snapshot, opts Options) (*Diff, error) {
	c := &comparer{
		opts:        opts,
		older:       older,
		newer:       newer,
		diff:        &Diff{Older: older, Newer: newer},
		olderByPath: make(map[string]*snapshot.Entry, older.Len()),
		newerByPath: make(map[string]*snapshot.Entry, newer.Len()),
		olderRel:    make(map[*snapshot.Entry]string, older.Len()),
		byHash:      make(map[string][]*snapshot.Entry),
		bySize:      make(map[int64][]*snapshot.Entry),
		consumed:    make(map[*snapshot.Entry]struct{}),
	}

	if err := c.index(); err != nil {
		return nil, err
	}

	for _, e := range newer.Entries() {
		c.classify(e)
	}

	for _, o := range older.Entries() {
		if _, present := c.newerByPath[c.olderRel[o]]; present {
			continue
		}
		if _, used := c.consumed[o]; used {
			continue
		}
		c.diff.Deleted = append(c.diff.Deleted, o)
	}

	// type changes add to both lists out of path order
	sortByPath(c.diff.Created)
	sortByPath(c.diff.Deleted)
	return c.diff, nil
}

func (c *comparer) index() error {
	sep := c.newer.Separator()

	for _, e := range c.newer.Entries() {
		rel, err := c.newer.RelativePath(e.Path(), sep)
		if err != nil {
			return fmt.Errorf("newer snapshot: %w", err)
		}
		c.newerByPath[rel] = e
	}

	for _, o := range c.older.Entries() {
		rel, err := c.older.RelativePath(o.Path(), sep)
		if err != nil {
			return fmt.Errorf("older snapshot: %w", err)
		}
		c.olderByPath[rel] = o
		c.olderRel[o] = rel
		if o.HasHash() {
			c.byHash[o.HashHex()] = append(c.byHash[o.HashHex()], o)
		}
		if o.Size != nil {
			c.bySize[*o.Size] = append(c.bySize[*o.Size], o)
		}
	}
	return nil
}

func (c *comparer) classify(e *snapshot.Entry) {
	rel, _ := c.newer.RelativePath(e.Path(), c.newer.Separator())

	if o, ok := c.olderByPath[rel]; ok {
		if !c.comparePair(e, o, true) {
			c.diff.Unchanged = append(c.diff.Unchanged, e)
		}
		return
	}

	if e.HasHash() {
		if candidates, ok := c.byHash[e.HashHex()]; ok {
			if source := c.moveSource(e, candidates); source != nil {
				c.diff.Moved = append(c.diff.Moved, Pair{Older: source, Newer: e})
				c.consumed[source] = struct{}{}
				if !c.comparePair(e, source, false) {
					c.diff.Unchanged = append(c.diff.Unchanged, e)
				}
				return
			}
			c.diff.Copied = append(c.diff.Copied, Pair{Older: candidates[0], Newer: e})
			return
		}
	}

	if source := c.sizeAndTimeSource(e); source != nil {
		c.diff.Moved = append(c.diff.Moved, Pair{Older: source, Newer: e})
		c.consumed[source] = struct{}{}
		if !c.comparePair(e, source, false) {
			c.diff.Unchanged = append(c.diff.Unchanged, e)
		}
		return
	}

	c.diff.Created = append(c.diff.Created, e)
}

// available reports whether o can still be the source of a move.
func (c *comparer) available(o *snapshot.Entry) bool {
	if _, used := c.consumed[o]; used {
		return false
	}
	_, present := c.newerByPath[c.olderRel[o]]
	return !present
}

// moveSource picks the older entry e was moved from, preferring one with an
// identical modification time. It returns nil when every candidate is
// still in place or already consumed, meaning e is a copy.
func (c *comparer) moveSource(e *snapshot.Entry, candidates []*snapshot.Entry) *snapshot.Entry {
	if e.ModifiedTime != nil {
		for _, o := range candidates {
			if o.ModifiedTime != nil && o.ModifiedTime.Equal(*e.ModifiedTime) && c.available(o) {
				return o
			}
		}
	}
	for _, o := range candidates {
		if c.available(o) {
			return o
		}
	}
	return nil
}

// sizeAndTimeSource finds the single older file that e could have been
// moved from when no hash is available. Ambiguous matches return nil.
func (c *comparer) sizeAndTimeSource(e *snapshot.Entry) *snapshot.Entry {
	if !c.opts.SizeAndTimeMatch || e.HasHash() || e.IsDir() || e.Size == nil || e.ModifiedTime == nil {
		return nil
	}

	var found *snapshot.Entry
	for _, o := range c.bySize[*e.Size] {
		if o.IsDir() || o.ModifiedTime == nil {
			continue
		}
		if !match.WithinWindow(*o.ModifiedTime, *e.ModifiedTime, c.opts.TimeWindow) || !c.available(o) {
			continue
		}
		if found != nil {
			return nil
		}
		found = o
	}
	return found
}

// comparePair records the ways newer differs from older and reports whether
// any difference was recorded.
func (c *comparer) comparePair(newer, older *snapshot.Entry, checkContent bool) bool {
	if newer.Type() != older.Type() {
		c.diff.Created = append(c.diff.Created, newer)
		c.diff.Deleted = append(c.diff.Deleted, older)
		return true
	}

	changed := false
	pair := Pair{Older: older, Newer: newer}

	// a directory's content is its children, which are compared separately
	if checkContent && !newer.IsDir() {
		same := match.Content(newer, older, c.opts.SizeAndTimeMatch, c.opts.TimeWindow).Resolve(c.opts.UnknownAssumeModified)
		if !same {
			c.diff.Modified = append(c.diff.Modified, pair)
			changed = true
		}
	}

	if !match.Modified(newer, older, c.opts.TimeWindow).Resolve(c.opts.UnknownAssumeModified) {
		c.diff.Touched = append(c.diff.Touched, pair)
		changed = true
	}

	return changed
}

func sortByPath(entries []*snapshot.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path() < entries[j].Path()
	})
}
