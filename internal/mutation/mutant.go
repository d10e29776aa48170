// Package mutation implements source-mutation scoring: operators
// scan a parsed document for mutable sites, each site becomes one
// reversible Mutant, and the engine applies mutants one at a time in
// an isolated workspace, consulting an external test runner as the
// kill oracle.
package mutation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"

	"github.com/scry-dev/scry/internal/source"
)

// NodeKind identifies the lexical category a mutant targets;
// relocation on a freshly parsed document matches kind and position,
// never node pointers, so a mutant survives re-parsing.
type NodeKind string

const (
	KindReturn NodeKind = "return"
	KindBinary NodeKind = "binary"
	KindIf     NodeKind = "if"
)

// Mutant is one localized, reversible semantic change.
type Mutant struct {
	// ID is a stable content hash of the mutation site.
	ID string

	// Operator names the transform that produced this mutant.
	Operator string

	// Description is the human-readable summary.
	Description string

	// File and Line locate the original site.
	File string
	Line int

	// Column disambiguates multiple sites on one line.
	Column int

	// Kind is the targeted node category.
	Kind NodeKind

	// Fragment is the original source text of the site; Mutated is
	// the replacement text. Both are kept for deduplication and
	// reporting.
	Fragment string
	Mutated  string

	// apply rewrites the located node in place.
	apply func(n ast.Node) error

	// equalOperands marks comparisons whose two sides are the same
	// literal text; the dedup pass drops these as redundant.
	equalOperands bool
}

// newID derives the stable mutant identity from the site and
// transform.
func newID(operator, file string, line, col int, fragment string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%s", operator, file, line, col, fragment)))
	return hex.EncodeToString(h[:])[:12]
}

// Transform applies the mutant to a freshly parsed copy of its
// document. The node is re-located by kind and position; a missing
// node means the workspace copy has diverged from the scanned
// original, which is a per-mutant fatal error.
func (m *Mutant) Transform(f *source.File) error {
	node := locate(f, m.Kind, m.Line, m.Column)
	if node == nil {
		return fmt.Errorf("mutant %s: no %s node at %s:%d:%d",
			m.ID, m.Kind, m.File, m.Line, m.Column)
	}
	if err := m.apply(node); err != nil {
		return fmt.Errorf("mutant %s: %w", m.ID, err)
	}
	return nil
}

// locate finds the node of the given kind at the exact position.
func locate(f *source.File, kind NodeKind, line, col int) ast.Node {
	var found ast.Node
	ast.Inspect(f.Ast, func(n ast.Node) bool {
		if n == nil || found != nil {
			return false
		}
		pos := f.Fset.Position(n.Pos())
		if pos.Line != line || pos.Column != col {
			return true
		}
		switch n.(type) {
		case *ast.ReturnStmt:
			if kind == KindReturn {
				found = n
			}
		case *ast.BinaryExpr:
			if kind == KindBinary {
				found = n
			}
		case *ast.IfStmt:
			if kind == KindIf {
				found = n
			}
		}
		return found == nil
	})
	return found
}
