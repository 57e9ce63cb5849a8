package script

import (
	"fmt"
	"io"
	"strings"
	"time"

	"snapdiff/internal/compare"
)

// PowerShell writes a script for Windows PowerShell or pwsh.
type PowerShell struct {
	// Root is prepended to every path. Empty means the working directory.
	Root string
}

func (PowerShell) Name() string { return "powershell" }

func (p PowerShell) Write(w io.Writer, d *compare.Diff) error {
	return generate(w, d, psShell{}, p.Root, '\\')
}

type psShell struct{}

func (psShell) header(d *compare.Diff) string {
	return fmt.Sprintf("# older: %s\n# newer: %s\n$ErrorActionPreference = 'Stop'\n",
		describeSnapshot(d.Older), describeSnapshot(d.Newer))
}

func (psShell) comment(text string) string {
	return "# " + strings.ReplaceAll(text, "\n", " ")
}

func (psShell) mkdir(dir string) string {
	return "New-Item -ItemType Directory -Force -Path " + psQuote(dir) + " | Out-Null"
}

func (psShell) copy(src, dst string) string {
	return "Copy-Item -LiteralPath " + psQuote(src) + " -Destination " + psQuote(dst)
}

func (psShell) move(src, dst string) string {
	return "Move-Item -LiteralPath " + psQuote(src) + " -Destination " + psQuote(dst)
}

func (psShell) removeFile(file string) string {
	return "Remove-Item -LiteralPath " + psQuote(file) + " -Force"
}

func (psShell) removeDir(dir string) string {
	return "Remove-Item -LiteralPath " + psQuote(dir) + " -Force"
}

func (psShell) touch(file string, t time.Time) string {
	return fmt.Sprintf("(Get-Item -LiteralPath %s).LastWriteTimeUtc = [datetime]::Parse(%s, $null, 'RoundtripKind')",
		psQuote(file), psQuote(t.Format(time.RFC3339Nano)))
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
