// Package report provides output formatters for Scry extraction
// results in JSON and human-readable text formats.
package report

import (
	"encoding/json"
	"io"

	"github.com/scry-dev/scry/internal/schema"
)

// JSONReport is the top-level JSON output structure.
type JSONReport struct {
	Version string           `json:"version"`
	Schemas []*schema.Schema `json:"schemas"`
}

// WriteJSON writes derived schemas as formatted JSON to the writer.
func WriteJSON(w io.Writer, schemas []*schema.Schema, version string) error {
	if schemas == nil {
		schemas = []*schema.Schema{}
	}
	report := JSONReport{
		Version: version,
		Schemas: schemas,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
