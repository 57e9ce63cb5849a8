package format

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"snapdiff/internal/snapshot"
)

const zstdExt = ".zst"

// ForPath picks a format from a file name: .json, .yaml/.yml, and anything
// else as text. A trailing .zst is ignored here and handled by Save/Load.
func ForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, zstdExt)))
	switch ext {
	case ".json":
		return JSON{}
	case ".yaml", ".yml":
		return YAML{}
	default:
		return Text{}
	}
}

// ByName returns the format called name ("text", "json" or "yaml").
func ByName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "text", "txt":
		return Text{}, nil
	case "json":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", name)
	}
}

func compressed(path string) bool {
	return strings.HasSuffix(path, zstdExt)
}

// Save writes s to path, creating parent directories as needed.
func Save(s *snapshot.Snapshot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := write(f, s, path); err != nil {
		f.Close()
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, s *snapshot.Snapshot, path string) error {
	format := ForPath(path)
	if !compressed(path) {
		return format.Write(w, s)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := format.Write(enc, s); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Load reads the snapshot stored at path. Errors name the file.
func Load(path string) (*snapshot.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	s, err := ForPath(path).Read(r)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	return s, nil
}
