package format

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"snapdiff/internal/snapshot"
)

// YAML encodes snapshots as a YAML document.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Write(w io.Writer, s *snapshot.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toDocument(s)); err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return enc.Close()
}

func (YAML) Read(r io.Reader) (*snapshot.Snapshot, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromDocument(doc)
}
