package compare

import (
	"snapdiff/internal/snapshot"
)

// Pair links an entry in the older snapshot to one in the newer snapshot.
type Pair struct {
	Older *snapshot.Entry
	Newer *snapshot.Entry
}

// Diff is the classified result of comparing two snapshots. It is read-only
// once Compare returns.
type Diff struct {
	Older *snapshot.Snapshot
	Newer *snapshot.Snapshot

	Created   []*snapshot.Entry
	Deleted   []*snapshot.Entry
	Modified  []Pair
	Copied    []Pair
	Moved     []Pair
	Touched   []Pair
	Unchanged []*snapshot.Entry
}

// HasChanges reports whether anything other than unchanged entries was found.
func (d *Diff) HasChanges() bool {
	return len(d.Created) > 0 || len(d.Deleted) > 0 || len(d.Modified) > 0 ||
		len(d.Copied) > 0 || len(d.Moved) > 0 || len(d.Touched) > 0
}

// Owner returns the snapshot e belongs to, or nil.
func (d *Diff) Owner(e *snapshot.Entry) *snapshot.Snapshot {
	if d.Newer != nil && d.Newer.Get(e.Path()) == e {
		return d.Newer
	}
	if d.Older != nil && d.Older.Get(e.Path()) == e {
		return d.Older
	}
	return nil
}

// RelativePath renders e's path without its owner's prefix, using sep.
func (d *Diff) RelativePath(e *snapshot.Entry, sep byte) (string, error) {
	owner := d.Owner(e)
	if owner == nil {
		return e.Path(), nil
	}
	return owner.RelativePath(e.Path(), sep)
}
