package format

import (
	"encoding/json"
	"fmt"
	"io"

	"snapdiff/internal/snapshot"
)

// JSON encodes snapshots as a single indented JSON document.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Write(w io.Writer, s *snapshot.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(s)); err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return nil
}

func (JSON) Read(r io.Reader) (*snapshot.Snapshot, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromDocument(doc)
}
