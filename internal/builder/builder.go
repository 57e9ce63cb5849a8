// Package builder produces snapshots from a live file tree, either from
// scratch or by refreshing an earlier snapshot and reusing hashes of entries
// whose metadata has not changed.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"snapdiff/internal/hash"
	"snapdiff/internal/match"
	"snapdiff/internal/snapshot"
	"snapdiff/internal/walker"
)

// Walker enumerates the paths below a root.
type Walker interface {
	Walk(ctx context.Context, root string, fn walker.WalkFunc) error
}

// InfoReader reads size and timestamps of a path.
type InfoReader interface {
	Info(path string) (walker.Info, error)
}

// ContentReader opens a path for reading.
type ContentReader interface {
	Open(path string) (io.ReadCloser, error)
}

// Hasher digests a byte stream.
type Hasher interface {
	Sum(alg hash.Algorithm, r io.Reader) ([]byte, error)
}

// Progress receives per-entry completion events. Done may be called
// concurrently.
type Progress interface {
	Start(total int)
	Done(path string)
	Finish()
}

// Rewrite maps paths of an older snapshot onto the live tree: an old path
// under From corresponds to the live path under To.
type Rewrite struct {
	From string
	To   string
}

// Options selects what is collected and how failures are treated.
type Options struct {
	Roots []string
	// Separator of the produced snapshot; zero means the host separator.
	Separator byte

	CollectSize     bool
	CollectCreated  bool
	CollectModified bool
	// HashAlgorithm hash.None disables hashing.
	HashAlgorithm hash.Algorithm

	// TimeWindow bounds how far live timestamps may drift from an older
	// entry before its hash is recomputed.
	TimeWindow time.Duration
	// KeepRemoved carries entries that vanished from the tree into the
	// updated snapshot.
	KeepRemoved   bool
	PrefixRewrite *Rewrite

	// IgnoreMissing skips roots that do not exist instead of failing.
	IgnoreMissing bool
	// SkipUnreadable drops entries whose metadata or content cannot be read.
	SkipUnreadable bool

	Workers int
}

// DefaultOptions collects every attribute and hashes with SHA-256.
func DefaultOptions() Options {
	return Options{
		Separator:       filepath.Separator,
		CollectSize:     true,
		CollectCreated:  true,
		CollectModified: true,
		HashAlgorithm:   hash.SHA256,
		Workers:         runtime.NumCPU() * 2,
	}
}

// Builder assembles snapshots through injected collaborators.
type Builder struct {
	opts     Options
	walker   Walker
	info     InfoReader
	content  ContentReader
	hasher   Hasher
	logger   *slog.Logger
	progress Progress
	now      func() time.Time
}

// Option configures optional Builder behaviour.
type Option func(*Builder)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithProgress reports hashing progress to p.
func WithProgress(p Progress) Option {
	return func(b *Builder) {
		b.progress = p
	}
}

// New creates a Builder.
func New(w Walker, info InfoReader, content ContentReader, hasher Hasher, opts Options, options ...Option) *Builder {
	if opts.Separator == 0 {
		opts.Separator = filepath.Separator
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	b := &Builder{
		opts:    opts,
		walker:  w,
		info:    info,
		content: content,
		hasher:  hasher,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// task is one walked path and, when updating, the entry it had before.
type task struct {
	path string
	typ  snapshot.EntryType
	old  *snapshot.Entry
}

type stats struct {
	hashed  atomic.Int64
	reused  atomic.Int64
	skipped atomic.Int64
}

// Create walks every root and builds a fresh snapshot.
func (b *Builder) Create(ctx context.Context) (*snapshot.Snapshot, error) {
	tasks, err := b.collect(ctx, nil)
	if err != nil {
		return nil, err
	}
	return b.assemble(ctx, tasks, nil)
}

// Update walks every root and builds a snapshot reusing hashes from old
// wherever the live metadata still agrees with the recorded entry.
func (b *Builder) Update(ctx context.Context, old *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if old == nil {
		return nil, errors.New("update requires a previous snapshot")
	}
	tasks, err := b.collect(ctx, old)
	if err != nil {
		return nil, err
	}
	return b.assemble(ctx, tasks, old)
}

// collect walks the roots sequentially and pairs each path with its entry
// in old, if any.
func (b *Builder) collect(ctx context.Context, old *snapshot.Snapshot) ([]task, error) {
	var tasks []task
	seen := make(map[string]struct{})

	for _, root := range b.opts.Roots {
		err := b.walker.Walk(ctx, root, func(path string, typ snapshot.EntryType) error {
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}

			t := task{path: path, typ: typ}
			if old != nil {
				key, err := b.oldPath(path, old.Separator())
				if err != nil {
					return err
				}
				t.old = old.Get(key)
			}
			tasks = append(tasks, t)
			return nil
		})
		if err != nil {
			if b.opts.IgnoreMissing && errors.Is(err, walker.ErrMissingRoot) {
				b.logger.Warn("skipping missing root", "root", root)
				continue
			}
			return nil, err
		}
	}
	return tasks, nil
}

// oldPath maps a live path to the path it would have in the old snapshot.
func (b *Builder) oldPath(path string, oldSep byte) (string, error) {
	rw := b.opts.PrefixRewrite
	if rw == nil {
		return snapshot.ConvertSeparator(path, b.opts.Separator, oldSep), nil
	}
	if !snapshot.HasPathPrefix(path, rw.To, b.opts.Separator) {
		return "", fmt.Errorf("%w: %q does not start with rewrite prefix %q", snapshot.ErrPrefixMismatch, path, rw.To)
	}
	rest := snapshot.ConvertSeparator(path[len(rw.To):], b.opts.Separator, oldSep)
	return rw.From + rest, nil
}

// livePath is the inverse of oldPath, used for entries carried forward.
func (b *Builder) livePath(path string, oldSep byte) string {
	rw := b.opts.PrefixRewrite
	if rw == nil || !snapshot.HasPathPrefix(path, rw.From, oldSep) {
		return snapshot.ConvertSeparator(path, oldSep, b.opts.Separator)
	}
	rest := snapshot.ConvertSeparator(path[len(rw.From):], oldSep, b.opts.Separator)
	return rw.To + rest
}

func (b *Builder) assemble(ctx context.Context, tasks []task, old *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	var st stats
	results := make([]*snapshot.Entry, len(tasks))

	if b.progress != nil {
		b.progress.Start(len(tasks))
		defer b.progress.Finish()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := b.process(tasks[i], &st)
			if err != nil {
				if !b.opts.SkipUnreadable {
					return err
				}
				st.skipped.Add(1)
				b.logger.Warn("skipping unreadable entry", "path", tasks[i].path, "error", err)
			}
			results[i] = e
			if b.progress != nil {
				b.progress.Done(tasks[i].path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := snapshot.New(b.opts.Separator)
	snap.ID = uuid.NewString()
	snap.Taken = b.now().UTC()

	for _, e := range results {
		if e == nil {
			continue
		}
		if err := snap.Add(e); err != nil {
			return nil, err
		}
	}

	carried := 0
	if old != nil && b.opts.KeepRemoved {
		visited := make(map[*snapshot.Entry]struct{}, len(tasks))
		for _, t := range tasks {
			if t.old != nil {
				visited[t.old] = struct{}{}
			}
		}
		for _, o := range old.Entries() {
			if _, ok := visited[o]; ok {
				continue
			}
			path := b.livePath(o.Path(), old.Separator())
			if snap.Contains(path) {
				continue
			}
			if err := snap.Add(o.WithPath(path)); err != nil {
				return nil, err
			}
			carried++
		}
	}

	b.logger.Info("snapshot built",
		"entries", snap.Len(),
		"hashed", st.hashed.Load(),
		"reused", st.reused.Load(),
		"skipped", st.skipped.Load(),
		"carried", carried,
	)
	return snap, nil
}

// process reads the attributes of one path and decides whether its hash
// can be copied from the old entry or has to be computed.
func (b *Builder) process(t task, st *stats) (*snapshot.Entry, error) {
	e := snapshot.NewEntry(t.path, t.typ)

	if b.opts.CollectSize || b.opts.CollectCreated || b.opts.CollectModified {
		info, err := b.info.Info(t.path)
		if err != nil {
			return nil, err
		}
		if b.opts.CollectSize && t.typ == snapshot.File {
			e.Size = info.Size
		}
		if b.opts.CollectCreated {
			e.CreatedTime = info.Created
		}
		if b.opts.CollectModified {
			e.ModifiedTime = info.Modified
		}
	}

	if t.typ == snapshot.Directory || b.opts.HashAlgorithm == hash.None {
		return e, nil
	}

	if b.reusable(e, t.old) {
		if err := e.SetHash(t.old.HashAlgorithm(), t.old.Hash()); err != nil {
			return nil, err
		}
		st.reused.Add(1)
		b.logger.Debug("reusing hash", "path", t.path)
		return e, nil
	}

	sum, err := b.hashFile(t.path)
	if err != nil {
		return nil, err
	}
	if err := e.SetHash(b.opts.HashAlgorithm, sum); err != nil {
		return nil, err
	}
	st.hashed.Add(1)
	if t.old != nil {
		b.logger.Debug("rehashed changed entry", "path", t.path)
	}
	return e, nil
}

// reusable reports whether old's hash still describes the live entry e.
// Indeterminate metadata counts as changed.
func (b *Builder) reusable(e, old *snapshot.Entry) bool {
	if old == nil || !old.HasHash() || old.HashAlgorithm() != b.opts.HashAlgorithm {
		return false
	}
	return match.Metadata(e, old, b.opts.TimeWindow) == match.Match
}

func (b *Builder) hashFile(path string) ([]byte, error) {
	r, err := b.content.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sum, err := b.hasher.Sum(b.opts.HashAlgorithm, r)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}
