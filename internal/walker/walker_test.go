package walker

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapdiff/internal/snapshot"
)

type found struct {
	path string
	typ  snapshot.EntryType
}

func writeFiles(t *testing.T, fsys billy.Filesystem, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, f)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, util.WriteFile(fsys, full, []byte("content of "+f), 0o644))
	}
}

func collect(t *testing.T, w *Walker, root string) []found {
	t.Helper()
	var out []found
	err := w.Walk(context.Background(), root, func(path string, typ snapshot.EntryType) error {
		out = append(out, found{path, typ})
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestWalk_AllEntries(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/data", "file1.txt", "file2.go", "subdir/file3.txt", "subdir/nested/file4.md")

	got := collect(t, New(fsys), "/data")

	assert.Equal(t, []found{
		{"/data/file1.txt", snapshot.File},
		{"/data/file2.go", snapshot.File},
		{"/data/subdir", snapshot.Directory},
		{"/data/subdir/file3.txt", snapshot.File},
		{"/data/subdir/nested", snapshot.Directory},
		{"/data/subdir/nested/file4.md", snapshot.File},
	}, got)
}

func TestWalk_WithExclusions(t *testing.T) {
	fsys := memfs.New()
	files := map[string]bool{
		"file1.txt":           false,
		"file2.tmp":           true,
		"file3.log":           true,
		"node_modules/lib.js": true,
		"src/main.go":         false,
		"src/main_test.go":    true,
		"dist/output.js":      true,
		".git/config":         true,
	}
	for f := range files {
		writeFiles(t, fsys, "/repo", f)
	}

	w := New(fsys, WithExclusions([]string{
		"# comment lines are ignored",
		"*.tmp",
		"*.log",
		"node_modules/",
		"dist/",
		".git/",
		"*_test.go",
		"",
	}))

	var paths []string
	for _, f := range collect(t, w, "/repo") {
		paths = append(paths, f.path)
	}

	assert.ElementsMatch(t, []string{"/repo/file1.txt", "/repo/src", "/repo/src/main.go"}, paths)
}

func TestWalk_EmptyDirectory(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/empty", 0o755))

	assert.Empty(t, collect(t, New(fsys), "/empty"))
}

func TestWalk_NonExistentRoot(t *testing.T) {
	err := New(memfs.New()).Walk(context.Background(), "/nonexistent", func(string, snapshot.EntryType) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.ErrorIs(t, err, ErrMissingRoot)
}

func TestWalk_RootIsFile(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/", "plain.txt")

	err := New(fsys).Walk(context.Background(), "/plain.txt", func(string, snapshot.EntryType) error {
		return nil
	})
	assert.Error(t, err)
}

func TestWalk_CallbackErrorStops(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/data", "a", "b", "c")

	stop := errors.New("stop")
	calls := 0
	err := New(fsys).Walk(context.Background(), "/data", func(string, snapshot.EntryType) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestWalk_Cancelled(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/data", "a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(fsys).Walk(ctx, "/data", func(string, snapshot.EntryType) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInfo(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/data", "sub/hello.txt")

	w := New(fsys)
	info, err := w.Info("/data/sub/hello.txt")
	require.NoError(t, err)
	require.NotNil(t, info.Size)
	assert.Equal(t, int64(len("content of sub/hello.txt")), *info.Size)
	require.NotNil(t, info.Modified)
	assert.False(t, info.Modified.IsZero())
	assert.Nil(t, info.Created)

	dirInfo, err := w.Info("/data/sub")
	require.NoError(t, err)
	assert.Nil(t, dirInfo.Size)

	_, err = w.Info("/data/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpen(t *testing.T) {
	fsys := memfs.New()
	writeFiles(t, fsys, "/data", "x.txt")

	r, err := New(fsys).Open("/data/x.txt")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "content of x.txt", string(data))
}

func TestNewOS_RealDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sub", "a.txt"), []byte("Hello, World!"), 0o644))

	w := NewOS()
	got := collect(t, w, tmpDir)
	assert.Equal(t, []found{
		{filepath.Join(tmpDir, "sub"), snapshot.Directory},
		{filepath.Join(tmpDir, "sub", "a.txt"), snapshot.File},
	}, got)

	info, err := w.Info(filepath.Join(tmpDir, "sub", "a.txt"))
	require.NoError(t, err)
	require.NotNil(t, info.Size)
	assert.Equal(t, int64(13), *info.Size)
}

func TestNewOS_SymlinkedDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "real", "f.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "plain.txt"), []byte("plain"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "real"), filepath.Join(tmpDir, "link")))
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "plain.txt"), filepath.Join(tmpDir, "alias.txt")))

	w := NewOS()
	got := collect(t, w, tmpDir)
	assert.Equal(t, []found{
		{filepath.Join(tmpDir, "alias.txt"), snapshot.File},
		{filepath.Join(tmpDir, "link"), snapshot.Directory},
		{filepath.Join(tmpDir, "plain.txt"), snapshot.File},
		{filepath.Join(tmpDir, "real"), snapshot.Directory},
		{filepath.Join(tmpDir, "real", "f.txt"), snapshot.File},
	}, got)

	info, err := w.Info(filepath.Join(tmpDir, "link"))
	require.NoError(t, err)
	assert.Nil(t, info.Size)
}

func TestNewOS_DanglingSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "nowhere"), filepath.Join(tmpDir, "broken")))

	err := NewOS().Walk(context.Background(), tmpDir, func(string, snapshot.EntryType) error { return nil })
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrMissingRoot)

	var skipped []string
	w := NewOS(WithErrorHandler(func(path string, err error) error {
		skipped = append(skipped, path)
		return nil
	}))
	assert.Empty(t, collect(t, w, tmpDir))
	assert.Equal(t, []string{filepath.Join(tmpDir, "broken")}, skipped)
}
