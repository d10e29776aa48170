package report

import (
	"fmt"
	"io"

	"github.com/scry-dev/scry/internal/schema"
)

// WriteHTML writes derived schemas as a self-contained HTML report.
//
// Planned features:
//   - Schema table with sortable columns
//   - Confidence tier breakdown (SVG pie/bar chart)
//   - Collapsible per-callable parameter sections
//   - Self-contained single-file HTML (embedded CSS/JS)
//
// This is not yet implemented. Use text or json format instead.
func WriteHTML(_ io.Writer, _ []*schema.Schema) error {
	return fmt.Errorf("HTML report format is not yet implemented")
}
