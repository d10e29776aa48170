package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Save writes the schema document as indented JSON to w. The output
// is deterministic: encoding/json sorts map keys, so re-extraction of
// an unchanged source yields byte-identical documents.
func Save(w io.Writer, s *Schema) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding schema for %s: %w", s.Function, err)
	}
	return nil
}

// SaveFile writes the schema document to path.
func SaveFile(path string, s *Schema) error {
	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing schema %q: %w", path, err)
	}
	return nil
}

// Load reads one schema document from r. Text following the JSON
// document (trailing notes or comments) is ignored: only the
// structured portion participates in round-tripping.
func Load(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	if err := ValidateDocument(SchemaDoc, data); err != nil {
		return nil, fmt.Errorf("schema document invalid: %w", err)
	}

	var s Schema
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	// Map keys are authoritative for parameter names.
	for name, p := range s.Input {
		p.Name = name
	}
	return &s, nil
}

// LoadFile reads one schema document from path.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
