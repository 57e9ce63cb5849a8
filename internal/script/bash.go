package script

import (
	"fmt"
	"io"
	"strings"
	"time"

	"snapdiff/internal/compare"
)

// Bash writes a POSIX shell script using coreutils.
type Bash struct {
	// Root is prepended to every path. Empty means the working directory.
	Root string
}

func (Bash) Name() string { return "bash" }

func (b Bash) Write(w io.Writer, d *compare.Diff) error {
	return generate(w, d, bashShell{}, b.Root, '/')
}

type bashShell struct{}

func (bashShell) header(d *compare.Diff) string {
	return fmt.Sprintf("#!/usr/bin/env bash\n# older: %s\n# newer: %s\nset -euo pipefail\n",
		describeSnapshot(d.Older), describeSnapshot(d.Newer))
}

func (bashShell) comment(text string) string {
	return "# " + strings.ReplaceAll(text, "\n", " ")
}

func (bashShell) mkdir(dir string) string {
	return "mkdir -p -- " + bashQuote(dir)
}

func (bashShell) copy(src, dst string) string {
	return "cp -p -- " + bashQuote(src) + " " + bashQuote(dst)
}

func (bashShell) move(src, dst string) string {
	return "mv -- " + bashQuote(src) + " " + bashQuote(dst)
}

func (bashShell) removeFile(file string) string {
	return "rm -f -- " + bashQuote(file)
}

func (bashShell) removeDir(dir string) string {
	return "rmdir -- " + bashQuote(dir)
}

func (bashShell) touch(file string, t time.Time) string {
	return "touch -m -d " + bashQuote(t.Format(time.RFC3339Nano)) + " -- " + bashQuote(file)
}

func bashQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
