package script

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapdiff/internal/compare"
	"snapdiff/internal/hash"
	"snapdiff/internal/snapshot"
)

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

type item struct {
	path  string
	dir   bool
	mtime time.Time
	hash  string
}

func snap(t *testing.T, items ...item) *snapshot.Snapshot {
	t.Helper()
	s := snapshot.New('/')
	for _, it := range items {
		typ := snapshot.File
		if it.dir {
			typ = snapshot.Directory
		}
		e := snapshot.NewEntry(it.path, typ)
		e.ModifiedTime = snapshot.Time(it.mtime)
		if !it.dir {
			e.Size = snapshot.Int64(int64(len(it.hash)))
			sum, err := hash.NewHasher().Sum(hash.SHA1, strings.NewReader(it.hash))
			require.NoError(t, err)
			require.NoError(t, e.SetHash(hash.SHA1, sum))
		}
		require.NoError(t, s.Add(e))
	}
	return s
}

func sampleDiff(t *testing.T) *compare.Diff {
	t.Helper()
	older := snap(t,
		item{path: "/old/keep.txt", mtime: t0, hash: "keep"},
		item{path: "/old/src/move.txt", mtime: t0, hash: "move"},
		item{path: "/old/gone.txt", mtime: t0, hash: "gone"},
		item{path: "/old/gonedir", dir: true, mtime: t0},
		item{path: "/old/gonedir/sub", dir: true, mtime: t0},
		item{path: "/old/touch.txt", mtime: t0, hash: "touch"},
		item{path: "/old/it's.txt", mtime: t0, hash: "quote"},
	)
	newer := snap(t,
		item{path: "/new/keep.txt", mtime: t0, hash: "keep"},
		item{path: "/new/dst/move.txt", mtime: t0, hash: "move"},
		item{path: "/new/touch.txt", mtime: t0.Add(time.Hour), hash: "touch"},
		item{path: "/new/it's.txt", mtime: t0, hash: "quote"},
		item{path: "/new/copies/it's.txt", mtime: t0, hash: "quote"},
		item{path: "/new/fresh", dir: true, mtime: t0},
		item{path: "/new/fresh/new.txt", mtime: t0, hash: "fresh"},
	)

	d, err := compare.Compare(older, newer, compare.DefaultOptions())
	require.NoError(t, err)
	return d
}

func TestBash(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bash{Root: "/target"}.Write(&buf, sampleDiff(t)))

	want := `#!/usr/bin/env bash
# older: - (prefix "/old")
# newer: - (prefix "/new")
set -euo pipefail

# created directories
mkdir -p -- '/target/fresh'

# copied
mkdir -p -- '/target/copies'
cp -p -- '/target/it'\''s.txt' '/target/copies/it'\''s.txt'

# moved
mkdir -p -- '/target/dst'
mv -- '/target/src/move.txt' '/target/dst/move.txt'

# deleted
rm -f -- '/target/gone.txt'
rmdir -- '/target/gonedir/sub'
rmdir -- '/target/gonedir'

# touched
touch -m -d '2024-01-02T04:04:05Z' -- '/target/touch.txt'

# content not available in the older tree
# created: fresh/new.txt
`
	assert.Equal(t, want, buf.String())
}

func TestBash_RelativeToWorkingDirectory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bash{}.Write(&buf, sampleDiff(t)))

	out := buf.String()
	assert.Contains(t, out, "mv -- 'src/move.txt' 'dst/move.txt'\n")
	assert.Contains(t, out, "rm -f -- 'gone.txt'\n")
}

func TestPowerShell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PowerShell{Root: `D:\target\`}.Write(&buf, sampleDiff(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# older: "))
	assert.Contains(t, out, "$ErrorActionPreference = 'Stop'\n")
	assert.Contains(t, out, `New-Item -ItemType Directory -Force -Path 'D:\target\fresh' | Out-Null`)
	assert.Contains(t, out, `Copy-Item -LiteralPath 'D:\target\it''s.txt' -Destination 'D:\target\copies\it''s.txt'`)
	assert.Contains(t, out, `Move-Item -LiteralPath 'D:\target\src\move.txt' -Destination 'D:\target\dst\move.txt'`)
	assert.Contains(t, out, `Remove-Item -LiteralPath 'D:\target\gone.txt' -Force`)
	assert.Contains(t, out, `(Get-Item -LiteralPath 'D:\target\touch.txt').LastWriteTimeUtc = [datetime]::Parse('2024-01-02T04:04:05Z', $null, 'RoundtripKind')`)
	assert.Contains(t, out, "# created: fresh/new.txt\n")

	// deeper directories are removed before their parents
	sub := strings.Index(out, `'D:\target\gonedir\sub'`)
	parent := strings.Index(out, `'D:\target\gonedir' -Force`)
	require.NotEqual(t, -1, sub)
	require.NotEqual(t, -1, parent)
	assert.Less(t, sub, parent)
}

func TestCopiesRunBeforeMovesAndDeletes(t *testing.T) {
	older := snap(t,
		item{path: "/r/a.txt", mtime: t0, hash: "A"},
		item{path: "/r/pin.txt", mtime: t0, hash: "pin"},
	)
	// a.txt is moved to b.txt and a second copy appears at c.txt
	newer := snap(t,
		item{path: "/r/b.txt", mtime: t0, hash: "A"},
		item{path: "/r/c.txt", mtime: t0, hash: "A"},
		item{path: "/r/pin.txt", mtime: t0, hash: "pin"},
	)
	d, err := compare.Compare(older, newer, compare.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, d.Moved, 1)
	require.Len(t, d.Copied, 1)

	var buf bytes.Buffer
	require.NoError(t, Bash{}.Write(&buf, d))
	out := buf.String()

	cp := strings.Index(out, "cp -p -- 'a.txt' 'c.txt'")
	mv := strings.Index(out, "mv -- 'a.txt' 'b.txt'")
	require.NotEqual(t, -1, cp, out)
	require.NotEqual(t, -1, mv, out)
	assert.Less(t, cp, mv)
}

func TestFileReplacedByDirectory(t *testing.T) {
	older := snap(t,
		item{path: "/r/p", mtime: t0, hash: "P"},
		item{path: "/r/pin.txt", mtime: t0, hash: "pin"},
	)
	// p becomes a directory and its old content survives as q.txt
	newer := snap(t,
		item{path: "/r/p", dir: true, mtime: t0},
		item{path: "/r/pin.txt", mtime: t0, hash: "pin"},
		item{path: "/r/q.txt", mtime: t0, hash: "P"},
	)
	d, err := compare.Compare(older, newer, compare.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, d.Copied, 1)

	var buf bytes.Buffer
	require.NoError(t, Bash{}.Write(&buf, d))
	out := buf.String()

	cp := strings.Index(out, "cp -p -- 'p' 'q.txt'")
	rm := strings.Index(out, "rm -f -- 'p'")
	mkdir := strings.Index(out, "mkdir -p -- 'p'")
	require.NotEqual(t, -1, cp, out)
	require.NotEqual(t, -1, rm, out)
	require.NotEqual(t, -1, mkdir, out)
	assert.Less(t, cp, rm)
	assert.Less(t, rm, mkdir)
	assert.Equal(t, 1, strings.Count(out, "rm -f -- 'p'"))
	assert.Equal(t, 1, strings.Count(out, "cp -p -- 'p' 'q.txt'"))
	assert.NotContains(t, out, "# deleted")
}

func TestNoChanges(t *testing.T) {
	s := snap(t, item{path: "/r/a.txt", mtime: t0, hash: "A"})
	d, err := compare.Compare(s, s, compare.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Bash{}.Write(&buf, d))
	want := "#!/usr/bin/env bash\n# older: - (prefix \"/r\")\n# newer: - (prefix \"/r\")\nset -euo pipefail\n"
	assert.Equal(t, want, buf.String())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, bashQuote("plain"))
	assert.Equal(t, `'a b'\''c$HOME'`, bashQuote("a b'c$HOME"))
	assert.Equal(t, `'it''s $env:X'`, psQuote("it's $env:X"))
}

func TestByName(t *testing.T) {
	w, err := ByName("bash", "/x")
	require.NoError(t, err)
	assert.Equal(t, Bash{Root: "/x"}, w)

	w, err = ByName("PowerShell", "")
	require.NoError(t, err)
	assert.Equal(t, "powershell", w.Name())

	_, err = ByName("fish", "")
	assert.Error(t, err)
}
