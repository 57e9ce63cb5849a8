// Package walker enumerates file trees and reads file metadata and content
// through a go-billy filesystem.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"snapdiff/internal/snapshot"
)

// ErrMissingRoot is returned by Walk when a root does not exist. The error
// also matches fs.ErrNotExist.
var ErrMissingRoot = errors.New("root does not exist")

// Info holds the observed attributes of a path. Nil fields were not available.
type Info struct {
	Size     *int64
	Created  *time.Time
	Modified *time.Time
}

// WalkFunc is called for every path found below a root, excluding the root.
type WalkFunc func(path string, typ snapshot.EntryType) error

// ErrorFunc decides what to do with an error met below a root. Returning nil
// skips the offending path and continues the walk.
type ErrorFunc func(path string, err error) error

// Walker implements directory traversal, metadata lookup and content access.
type Walker struct {
	fs        billy.Filesystem
	matcher   gitignore.Matcher
	birthTime bool
	onError   ErrorFunc
}

// Option configures a Walker.
type Option func(*Walker)

// WithExclusions ignores paths matching gitignore-style patterns, relative
// to each walked root.
func WithExclusions(patterns []string) Option {
	return func(w *Walker) {
		var parsed []gitignore.Pattern
		for _, line := range patterns {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parsed = append(parsed, gitignore.ParsePattern(line, nil))
		}
		if len(parsed) > 0 {
			w.matcher = gitignore.NewMatcher(parsed)
		}
	}
}

// WithErrorHandler installs the policy for errors below a root. The default
// aborts the walk.
func WithErrorHandler(fn ErrorFunc) Option {
	return func(w *Walker) {
		w.onError = fn
	}
}

// New creates a Walker over an arbitrary billy filesystem.
func New(fsys billy.Filesystem, opts ...Option) *Walker {
	w := &Walker{
		fs: fsys,
		onError: func(_ string, err error) error {
			return err
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewOS creates a Walker over the host filesystem. Paths are native
// absolute paths and creation times are read where the platform has them.
func NewOS(opts ...Option) *Walker {
	w := New(osfs.New("/"), opts...)
	w.birthTime = true
	return w
}

// Walk calls fn for every file and directory below root in lexical order.
// A missing root yields ErrMissingRoot. Symbolic links are reported as the
// type of their target and never followed into.
func (w *Walker) Walk(ctx context.Context, root string, fn WalkFunc) error {
	info, err := w.fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrMissingRoot, root, err)
		}
		return fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", root)
	}

	err = util.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			return w.onError(path, err)
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return w.onError(path, err)
		}

		if w.excluded(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case info.IsDir():
			return fn(path, snapshot.Directory)
		case info.Mode()&os.ModeSymlink != 0:
			return w.link(path, fn)
		case info.Mode().IsRegular():
			return fn(path, snapshot.File)
		default:
			// sockets, pipes and devices have no stable content
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory %s: %w", root, err)
	}
	return nil
}

// link reports a symbolic link by the type of its target. Info and Open
// follow the link, so a directory target gets no size and no hash.
func (w *Walker) link(path string, fn WalkFunc) error {
	target, err := w.fs.Stat(path)
	if err != nil {
		return w.onError(path, fmt.Errorf("failed to resolve link %s: %w", path, err))
	}
	switch {
	case target.IsDir():
		return fn(path, snapshot.Directory)
	case target.Mode().IsRegular():
		return fn(path, snapshot.File)
	default:
		return nil
	}
}

func (w *Walker) excluded(relPath string, isDir bool) bool {
	if w.matcher == nil {
		return false
	}
	return w.matcher.Match(splitPath(relPath), isDir)
}

// Info reads size and timestamps of path. Directories report no size.
func (w *Walker) Info(path string) (Info, error) {
	fi, err := w.fs.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	modTime := fi.ModTime()
	info := Info{Modified: &modTime}
	if !fi.IsDir() {
		size := fi.Size()
		info.Size = &size
	}
	if w.birthTime {
		if created, ok := birthTime(path); ok {
			info.Created = &created
		}
	}
	return info, nil
}

// Open returns a reader for the content of path.
func (w *Walker) Open(path string) (io.ReadCloser, error) {
	f, err := w.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// splitPath splits a path into segments for gitignore matching.
func splitPath(path string) []string {
	normalized := filepath.ToSlash(path)

	var segments []string
	for _, part := range strings.Split(normalized, "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
