package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"snapdiff/internal/hash"
	"snapdiff/internal/snapshot"
)

const absent = "-"

// Text writes one tab separated line per entry after a short "#" header:
//
//	# snapdiff 1.0.0
//	# separator "/"
//	# prefix "/data"
//	f	5	-	2024-01-02T03:04:05Z	sha256	2cf2...	"/data/a.txt"
//
// Columns are type, size, created, modified, hash algorithm, hash and the
// quoted path; "-" marks an attribute that was not collected.
type Text struct{}

func (Text) Name() string { return "text" }

func (Text) Write(w io.Writer, s *snapshot.Snapshot) error {
	doc := toDocument(s)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s %s\n", doc.Generator, doc.Version)
	if doc.ID != "" {
		fmt.Fprintf(bw, "# id %s\n", doc.ID)
	}
	fmt.Fprintf(bw, "# taken %s\n", doc.Taken.Format(time.RFC3339Nano))
	fmt.Fprintf(bw, "# separator %s\n", strconv.Quote(doc.Separator))
	fmt.Fprintf(bw, "# prefix %s\n", strconv.Quote(doc.Prefix))

	for _, rec := range doc.Entries {
		typ := "f"
		if rec.Type == snapshot.Directory.String() {
			typ = "d"
		}
		alg := absent
		if rec.HashAlgorithm != hash.None {
			alg = rec.HashAlgorithm.String()
		}
		hashHex := rec.Hash
		if hashHex == "" {
			hashHex = absent
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			typ, formatSize(rec.Size), formatTime(rec.Created), formatTime(rec.Modified),
			alg, hashHex, strconv.Quote(rec.Path))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (Text) Read(r io.Reader) (*snapshot.Snapshot, error) {
	var doc document
	seenHeader := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "# ") {
			if err := parseHeader(&doc, line[2:], &seenHeader); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		doc.Entries = append(doc.Entries, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !seenHeader {
		return nil, fmt.Errorf("%w: missing %s header", ErrMalformed, Generator)
	}

	return fromDocument(doc)
}

func parseHeader(doc *document, header string, seenHeader *bool) error {
	key, value, _ := strings.Cut(header, " ")
	var err error
	switch key {
	case Generator:
		doc.Generator = key
		doc.Version = value
		*seenHeader = true
	case "id":
		doc.ID = value
	case "taken":
		doc.Taken, err = time.Parse(time.RFC3339Nano, value)
	case "separator":
		doc.Separator, err = strconv.Unquote(value)
	case "prefix":
		doc.Prefix, err = strconv.Unquote(value)
	}
	return err
}

func parseRecord(line string) (record, error) {
	fields := strings.SplitN(line, "\t", 7)
	if len(fields) != 7 {
		return record{}, fmt.Errorf("expected 7 columns, got %d", len(fields))
	}

	var rec record
	var err error

	switch fields[0] {
	case "f":
		rec.Type = snapshot.File.String()
	case "d":
		rec.Type = snapshot.Directory.String()
	default:
		return record{}, fmt.Errorf("unknown entry type %q", fields[0])
	}

	if fields[1] != absent {
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return record{}, fmt.Errorf("bad size: %w", err)
		}
		rec.Size = &size
	}
	if rec.Created, err = parseTime(fields[2]); err != nil {
		return record{}, err
	}
	if rec.Modified, err = parseTime(fields[3]); err != nil {
		return record{}, err
	}
	if fields[4] != absent {
		if rec.HashAlgorithm, err = hash.ParseAlgorithm(fields[4]); err != nil {
			return record{}, err
		}
	}
	if fields[5] != absent {
		rec.Hash = fields[5]
	}
	if rec.Path, err = strconv.Unquote(fields[6]); err != nil {
		return record{}, fmt.Errorf("bad path %s: %w", fields[6], err)
	}
	return rec, nil
}

func formatSize(size *int64) string {
	if size == nil {
		return absent
	}
	return strconv.FormatInt(*size, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return absent
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == absent {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("bad time: %w", err)
	}
	return &t, nil
}
