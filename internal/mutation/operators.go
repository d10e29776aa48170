package mutation

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/scry-dev/scry/internal/source"
)

// Operator scans a document and yields zero or more mutants. Each
// operator covers the whole document independently.
type Operator interface {
	Name() string
	Scan(f *source.File) []*Mutant
}

// DefaultOperators is the full operator set, applied in a fixed
// order so mutant enumeration is deterministic.
func DefaultOperators() []Operator {
	return []Operator{
		ForcedZeroReturn{},
		BooleanNegation{},
		BoundaryFlip{},
		ConditionalInversion{},
	}
}

// ForcedZeroReturn rewrites every value-carrying return statement to
// return the zero value of each declared result.
type ForcedZeroReturn struct{}

func (ForcedZeroReturn) Name() string { return "forced-zero-return" }

func (op ForcedZeroReturn) Scan(f *source.File) []*Mutant {
	var out []*Mutant
	for _, decl := range f.Ast.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil || fd.Type.Results == nil {
			continue
		}
		resultTypes := resultTypeTexts(f, fd)
		if len(resultTypes) == 0 {
			continue
		}
		for _, ret := range returnsIn(fd) {
			if len(ret.Results) == 0 {
				continue
			}
			pos := f.Fset.Position(ret.Pos())
			fragment := f.Text(ret)
			types := resultTypes
			m := &Mutant{
				Operator:    op.Name(),
				Description: fmt.Sprintf("force zero return at line %d", pos.Line),
				File:        f.Path,
				Line:        pos.Line,
				Column:      pos.Column,
				Kind:        KindReturn,
				Fragment:    fragment,
				Mutated:     zeroReturnText(types),
				apply: func(n ast.Node) error {
					ret, ok := n.(*ast.ReturnStmt)
					if !ok {
						return fmt.Errorf("expected return statement, found %T", n)
					}
					zeroes, err := zeroExprs(types)
					if err != nil {
						return err
					}
					ret.Results = zeroes
					return nil
				},
			}
			m.ID = newID(m.Operator, m.File, m.Line, m.Column, m.Fragment)
			out = append(out, m)
		}
	}
	return out
}

// BooleanNegation negates the returned expression of boolean-result
// functions.
type BooleanNegation struct{}

func (BooleanNegation) Name() string { return "boolean-negation" }

func (op BooleanNegation) Scan(f *source.File) []*Mutant {
	var out []*Mutant
	for _, decl := range f.Ast.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil || !firstResultIsBool(fd) {
			continue
		}
		for _, ret := range returnsIn(fd) {
			if len(ret.Results) == 0 {
				continue
			}
			pos := f.Fset.Position(ret.Pos())
			fragment := f.Text(ret.Results[0])
			m := &Mutant{
				Operator:    op.Name(),
				Description: fmt.Sprintf("negate returned expression at line %d", pos.Line),
				File:        f.Path,
				Line:        pos.Line,
				Column:      pos.Column,
				Kind:        KindReturn,
				Fragment:    fragment,
				Mutated:     "!(" + fragment + ")",
				apply: func(n ast.Node) error {
					ret, ok := n.(*ast.ReturnStmt)
					if !ok {
						return fmt.Errorf("expected return statement, found %T", n)
					}
					if len(ret.Results) == 0 {
						return fmt.Errorf("return has no results to negate")
					}
					ret.Results[0] = &ast.UnaryExpr{
						Op: token.NOT,
						X:  &ast.ParenExpr{X: ret.Results[0]},
					}
					return nil
				},
			}
			m.ID = newID(m.Operator, m.File, m.Line, m.Column, m.Fragment)
			out = append(out, m)
		}
	}
	return out
}

// boundaryCounterpart is the documented fixed operator mapping. One
// mutant per operator occurrence, canonical single target.
var boundaryCounterpart = map[token.Token]token.Token{
	token.GTR: token.LSS,
	token.LSS: token.GTR,
	token.GEQ: token.LEQ,
	token.LEQ: token.GEQ,
	token.EQL: token.NEQ,
	token.NEQ: token.EQL,
}

// BoundaryFlip replaces every relational and equality comparison
// with its boundary-adjacent counterpart.
type BoundaryFlip struct{}

func (BoundaryFlip) Name() string { return "boundary-flip" }

func (op BoundaryFlip) Scan(f *source.File) []*Mutant {
	var out []*Mutant
	ast.Inspect(f.Ast, func(n ast.Node) bool {
		be, ok := n.(*ast.BinaryExpr)
		if !ok {
			return true
		}
		to, ok := boundaryCounterpart[be.Op]
		if !ok {
			return true
		}
		pos := f.Fset.Position(be.Pos())
		fragment := f.Text(be)
		from := be.Op
		m := &Mutant{
			Operator: op.Name(),
			Description: fmt.Sprintf("replace %s with %s at line %d",
				from, to, pos.Line),
			File:          f.Path,
			Line:          pos.Line,
			Column:        pos.Column,
			Kind:          KindBinary,
			Fragment:      fragment,
			Mutated:       flipText(f, be, to),
			equalOperands: f.Text(be.X) == f.Text(be.Y),
			apply: func(n ast.Node) error {
				be, ok := n.(*ast.BinaryExpr)
				if !ok {
					return fmt.Errorf("expected comparison, found %T", n)
				}
				if be.Op != from {
					return fmt.Errorf("expected %s, found %s", from, be.Op)
				}
				be.Op = to
				return nil
			},
		}
		m.ID = newID(m.Operator, m.File, m.Line, m.Column, m.Fragment)
		out = append(out, m)
		return true
	})
	return out
}

// ConditionalInversion logically inverts every if condition.
type ConditionalInversion struct{}

func (ConditionalInversion) Name() string { return "conditional-inversion" }

func (op ConditionalInversion) Scan(f *source.File) []*Mutant {
	var out []*Mutant
	ast.Inspect(f.Ast, func(n ast.Node) bool {
		ifs, ok := n.(*ast.IfStmt)
		if !ok {
			return true
		}
		pos := f.Fset.Position(ifs.Pos())
		fragment := f.Text(ifs.Cond)
		m := &Mutant{
			Operator:    op.Name(),
			Description: fmt.Sprintf("invert condition at line %d", pos.Line),
			File:        f.Path,
			Line:        pos.Line,
			Column:      pos.Column,
			Kind:        KindIf,
			Fragment:    fragment,
			Mutated:     "!(" + fragment + ")",
			apply: func(n ast.Node) error {
				ifs, ok := n.(*ast.IfStmt)
				if !ok {
					return fmt.Errorf("expected if statement, found %T", n)
				}
				ifs.Cond = &ast.UnaryExpr{
					Op: token.NOT,
					X:  &ast.ParenExpr{X: ifs.Cond},
				}
				return nil
			},
		}
		m.ID = newID(m.Operator, m.File, m.Line, m.Column, m.Fragment)
		out = append(out, m)
		return true
	})
	return out
}

// returnsIn collects return statements lexically inside the
// function, excluding nested function literals.
func returnsIn(fd *ast.FuncDecl) []*ast.ReturnStmt {
	var out []*ast.ReturnStmt
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		if ret, ok := n.(*ast.ReturnStmt); ok {
			out = append(out, ret)
		}
		return true
	})
	return out
}

func resultTypeTexts(f *source.File, fd *ast.FuncDecl) []string {
	var out []string
	for _, field := range fd.Type.Results.List {
		text := f.Text(field.Type)
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, text)
		}
	}
	return out
}

func firstResultIsBool(fd *ast.FuncDecl) bool {
	if fd.Type.Results == nil || len(fd.Type.Results.List) == 0 {
		return false
	}
	id, ok := fd.Type.Results.List[0].Type.(*ast.Ident)
	return ok && id.Name == "bool"
}

// zeroExprs builds zero-value expressions for the recorded result
// types. Types without a literal zero use the *new(T) form, which
// is valid for any type.
func zeroExprs(types []string) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(types))
	for i, t := range types {
		text := zeroText(t)
		expr, err := parser.ParseExpr(text)
		if err != nil {
			return nil, fmt.Errorf("building zero value for %s: %w", t, err)
		}
		out[i] = expr
	}
	return out, nil
}

func zeroText(typ string) string {
	switch typ {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"byte", "rune", "float32", "float64", "uintptr":
		return "0"
	case "string":
		return `""`
	case "bool":
		return "false"
	case "error", "any":
		return "nil"
	}
	switch {
	case strings.HasPrefix(typ, "*"),
		strings.HasPrefix(typ, "["),
		strings.HasPrefix(typ, "map["),
		strings.HasPrefix(typ, "chan "),
		strings.HasPrefix(typ, "func"),
		strings.HasPrefix(typ, "interface"):
		return "nil"
	}
	return "*new(" + typ + ")"
}

func zeroReturnText(types []string) string {
	out := "return "
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += zeroText(t)
	}
	return out
}

// flipText renders the comparison with the replacement operator
// without touching the live tree.
func flipText(f *source.File, be *ast.BinaryExpr, to token.Token) string {
	return f.Text(be.X) + " " + to.String() + " " + f.Text(be.Y)
}
