// Package script renders a diff as a shell script that turns the older tree
// into the newer layout.
package script

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"snapdiff/internal/compare"
	"snapdiff/internal/snapshot"
)

// Writer emits a reproduction script for a diff.
type Writer interface {
	Name() string
	Write(w io.Writer, d *compare.Diff) error
}

// ByName returns the writer for "bash" or "powershell" targeting root.
func ByName(name, root string) (Writer, error) {
	switch strings.ToLower(name) {
	case "bash", "sh":
		return Bash{Root: root}, nil
	case "powershell", "pwsh", "ps1":
		return PowerShell{Root: root}, nil
	default:
		return nil, fmt.Errorf("unknown script type %q", name)
	}
}

type shell interface {
	header(d *compare.Diff) string
	comment(text string) string
	mkdir(dir string) string
	copy(src, dst string) string
	move(src, dst string) string
	removeFile(file string) string
	removeDir(dir string) string
	touch(file string, t time.Time) string
}

type generator struct {
	d    *compare.Diff
	sh   shell
	root string
	sep  byte
	b    strings.Builder
	dirs map[string]bool

	// replaced holds files that become directories of the same name.
	replaced map[string]bool
	// early holds copies already emitted ahead of the replacement.
	early map[int]bool
}

func generate(w io.Writer, d *compare.Diff, sh shell, root string, sep byte) error {
	g := &generator{
		d:        d,
		sh:       sh,
		root:     root,
		sep:      sep,
		dirs:     make(map[string]bool),
		replaced: make(map[string]bool),
		early:    make(map[int]bool),
	}
	if err := g.run(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, g.b.String()); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

func (g *generator) run() error {
	g.b.WriteString(g.sh.header(g.d))

	if err := g.replacements(); err != nil {
		return err
	}

	if dirs := directories(g.d.Created); len(dirs) > 0 {
		g.section("created directories")
		for _, e := range dirs {
			rel, err := g.rel(e)
			if err != nil {
				return err
			}
			g.ensureDir(rel)
		}
	}

	// copies read from their source, so they run before any move or delete
	if len(g.d.Copied) > len(g.early) {
		g.section("copied")
		for i, p := range g.d.Copied {
			if g.early[i] {
				continue
			}
			if err := g.pair(p, g.sh.copy); err != nil {
				return err
			}
		}
	}

	if len(g.d.Moved) > 0 {
		g.section("moved")
		for _, p := range g.d.Moved {
			if err := g.pair(p, g.sh.move); err != nil {
				return err
			}
		}
	}

	if len(g.d.Deleted) > len(g.replaced) {
		g.section("deleted")
		if err := g.deletes(); err != nil {
			return err
		}
	}

	if len(g.d.Touched) > 0 {
		g.section("touched")
		for _, p := range g.d.Touched {
			rel, err := g.rel(p.Newer)
			if err != nil {
				return err
			}
			if p.Newer.ModifiedTime == nil {
				g.line(g.sh.comment("no modified time recorded for " + rel))
				continue
			}
			g.line(g.sh.touch(g.target(rel), p.Newer.ModifiedTime.UTC()))
		}
	}

	created := files(g.d.Created)
	if len(created) > 0 || len(g.d.Modified) > 0 {
		g.section("content not available in the older tree")
		for _, e := range created {
			rel, err := g.rel(e)
			if err != nil {
				return err
			}
			g.line(g.sh.comment("created: " + rel))
		}
		for _, p := range g.d.Modified {
			rel, err := g.rel(p.Newer)
			if err != nil {
				return err
			}
			g.line(g.sh.comment("modified: " + rel))
		}
	}
	return nil
}

func (g *generator) pair(p compare.Pair, op func(src, dst string) string) error {
	src, err := g.rel(p.Older)
	if err != nil {
		return err
	}
	dst, err := g.rel(p.Newer)
	if err != nil {
		return err
	}
	if parent := path.Dir(dst); parent != "." {
		g.ensureDir(parent)
	}
	g.line(op(g.target(src), g.target(dst)))
	return nil
}

func (g *generator) deletes() error {
	var dirs []string
	for _, e := range g.d.Deleted {
		rel, err := g.rel(e)
		if err != nil {
			return err
		}
		if e.IsDir() {
			dirs = append(dirs, rel)
			continue
		}
		if g.replaced[rel] {
			continue
		}
		g.line(g.sh.removeFile(g.target(rel)))
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di > dj
		}
		return dirs[i] > dirs[j]
	})
	for _, dir := range dirs {
		g.line(g.sh.removeDir(g.target(dir)))
	}
	return nil
}

// replacements removes files whose path becomes a directory, so that the
// mkdir for that directory can succeed. Copies reading from such a file run
// first unless their target lies inside the new directory.
func (g *generator) replacements() error {
	createdDirs := make(map[string]bool)
	for _, e := range directories(g.d.Created) {
		rel, err := g.rel(e)
		if err != nil {
			return err
		}
		createdDirs[rel] = true
	}
	var order []string
	for _, e := range files(g.d.Deleted) {
		rel, err := g.rel(e)
		if err != nil {
			return err
		}
		if createdDirs[rel] {
			g.replaced[rel] = true
			order = append(order, rel)
		}
	}
	if len(order) == 0 {
		return nil
	}

	for i, p := range g.d.Copied {
		src, err := g.rel(p.Older)
		if err != nil {
			return err
		}
		dst, err := g.rel(p.Newer)
		if err != nil {
			return err
		}
		if g.replaced[src] && !g.insideReplaced(dst) {
			g.early[i] = true
		}
	}
	if len(g.early) > 0 {
		g.section("copied from replaced files")
		for i, p := range g.d.Copied {
			if !g.early[i] {
				continue
			}
			if err := g.pair(p, g.sh.copy); err != nil {
				return err
			}
		}
	}

	g.section("replaced by directories")
	for _, rel := range order {
		g.line(g.sh.removeFile(g.target(rel)))
	}
	return nil
}

func (g *generator) insideReplaced(rel string) bool {
	for r := range g.replaced {
		if rel == r || strings.HasPrefix(rel, r+"/") {
			return true
		}
	}
	return false
}

func (g *generator) ensureDir(rel string) {
	if g.dirs[rel] {
		return
	}
	g.dirs[rel] = true
	g.line(g.sh.mkdir(g.target(rel)))
}

// rel renders e relative to its snapshot prefix with "/" separators.
func (g *generator) rel(e *snapshot.Entry) (string, error) {
	rel, err := g.d.RelativePath(e, '/')
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", e.Path(), err)
	}
	return rel, nil
}

// target joins rel onto the script root using the shell's separator.
func (g *generator) target(rel string) string {
	native := snapshot.ConvertSeparator(rel, '/', g.sep)
	switch {
	case g.root == "" && native == "":
		return "."
	case g.root == "":
		return native
	case native == "":
		return g.root
	}
	return strings.TrimSuffix(g.root, string(g.sep)) + string(g.sep) + native
}

func (g *generator) section(title string) {
	g.b.WriteString("\n")
	g.line(g.sh.comment(title))
}

func (g *generator) line(s string) {
	g.b.WriteString(s)
	g.b.WriteString("\n")
}

func directories(entries []*snapshot.Entry) []*snapshot.Entry {
	var out []*snapshot.Entry
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e)
		}
	}
	return out
}

func files(entries []*snapshot.Entry) []*snapshot.Entry {
	var out []*snapshot.Entry
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e)
		}
	}
	return out
}

func describeSnapshot(s *snapshot.Snapshot) string {
	if s == nil {
		return "-"
	}
	id := s.ID
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%s (prefix %q)", id, s.Prefix())
}
