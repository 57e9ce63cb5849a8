package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Bar renders a single-line progress bar for the hashing pass, listing the
// directories that files were recently finished in.
type Bar struct {
	total       int64
	current     int64
	width       int
	writer      io.Writer
	mu          sync.Mutex
	currentDirs []string
	lastUpdate  time.Time
}

const maxDirs = 3

const defaultWidth = 50

// New creates a bar writing to w; nil means stdout. On a narrow terminal
// the bar shrinks to fit.
func New(w io.Writer) *Bar {
	if w == nil {
		w = os.Stdout
	}
	width := defaultWidth
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols/2 < width {
			width = max(cols/2, 10)
		}
	}
	return &Bar{
		width:  width,
		writer: w,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Start resets the bar for total items.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = int64(total)
	b.current = 0
	b.currentDirs = nil
	b.lastUpdate = time.Now()
	b.render()
}

// Done marks the item at path as finished. Safe for concurrent use.
func (b *Bar) Done(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	b.noteDir(filepath.Base(filepath.Dir(path)))

	// Update at most every 100ms to reduce flickering
	now := time.Now()
	if now.Sub(b.lastUpdate) > 100*time.Millisecond || b.current == b.total {
		b.lastUpdate = now
		b.render()
	}
}

func (b *Bar) noteDir(dir string) {
	for _, d := range b.currentDirs {
		if d == dir {
			return
		}
	}
	b.currentDirs = append(b.currentDirs, dir)
	if len(b.currentDirs) > maxDirs {
		b.currentDirs = b.currentDirs[1:]
	}
}

// render must be called with mu already locked
func (b *Bar) render() {
	if b.total == 0 {
		return
	}

	percent := float64(b.current) / float64(b.total) * 100
	filledWidth := int(float64(b.width) * float64(b.current) / float64(b.total))
	if filledWidth > b.width {
		filledWidth = b.width
	}

	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", b.width-filledWidth)

	var dirDisplay string
	if len(b.currentDirs) > 0 {
		dirDisplay = " | " + strings.Join(b.currentDirs, ", ")
	}

	// Clear the line and write progress
	fmt.Fprintf(b.writer, "\r\033[K[%s] %3d%% (%d/%d)%s",
		bar, int(percent), b.current, b.total, dirDisplay)
}

// Finish completes the bar and moves to a new line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.total == 0 {
		return
	}
	b.current = b.total
	b.render()
	fmt.Fprintf(b.writer, "\n")
}
