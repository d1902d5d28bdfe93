package graphdata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

// WriteExport writes e as Graphium JSON to path. A .gz suffix compresses the file.
func WriteExport(path string, e *Export) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *pgzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = pgzip.NewWriter(f)
		w = gz
	}

	if err := json.NewEncoder(w).Encode(e); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return 0, fmt.Errorf("compressing export: %w", err)
		}
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), f.Close()
}

// ReadExport reads a file written by WriteExport.
func ReadExport(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	e := &Export{}
	if raw, ok := doc["graphVersionMetadata"]; ok {
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, fmt.Errorf("reading metadata: %w", err)
		}
	}
	typ := e.Metadata.Type
	if typ == "" {
		typ = defaultSegmentType
	}
	if raw, ok := doc[typ]; ok {
		if err := json.Unmarshal(raw, &e.Segments); err != nil {
			return nil, fmt.Errorf("reading segments: %w", err)
		}
	}
	return e, nil
}
