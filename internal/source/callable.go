package source

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Kind classifies a callable by its role in the test lifecycle.
type Kind string

// Callable kinds. Lifecycle kinds are recognized by Go convention:
// init functions, TestMain, and Setup*/Teardown*/Before*/After*
// prefixed helpers.
const (
	KindPlain    Kind = "plain"
	KindInit     Kind = "init"
	KindTestMain Kind = "testmain"
	KindSetup    Kind = "setup"
	KindTeardown Kind = "teardown"
	KindBefore   Kind = "before"
	KindAfter    Kind = "after"
)

// Param is one declared parameter from a callable's signature.
type Param struct {
	// Name is the declared parameter name ("" for unnamed).
	Name string

	// TypeExpr is the declared type expression text (e.g. "[]byte").
	TypeExpr string

	// Position is the zero-based positional index.
	Position int
}

// CallableUnit is one analyzable function or method extracted from a
// loaded package. Units are immutable once extracted; analyzers read
// the retained declaration but never modify it.
type CallableUnit struct {
	// Name is the function or method name.
	Name string

	// Package is the originating import path.
	Package string

	// Receiver is the receiver type for methods ("*Store"), empty
	// for package-level functions.
	Receiver string

	// Doc is the leading documentation text (may be empty).
	Doc string

	// Body is the source text of the whole declaration.
	Body string

	// Kind classifies plain routines vs lifecycle helpers.
	Kind Kind

	// Location is the source position of the declaration.
	Location string

	// Params lists the declared parameters in order, excluding the
	// receiver.
	Params []Param

	// Complexity is the cyclomatic complexity (0 when unknown).
	Complexity int

	// Decl is the retained AST declaration for lexical queries.
	Decl *ast.FuncDecl

	// Fset resolves positions within Decl.
	Fset *token.FileSet

	// Info is the package type information, when available.
	Info *types.Info
}

// Options configures callable extraction.
type Options struct {
	// IncludeUnexported includes unexported functions.
	IncludeUnexported bool

	// FunctionFilter limits extraction to one function name.
	// Empty means extract all.
	FunctionFilter string
}

// Extract walks a loaded package and returns one CallableUnit per
// function declaration that passes the option filters. Units are
// returned in complexity-ranked order (most complex first, ties by
// name) so callers fuzz the riskiest targets first.
func Extract(res *Result, opts Options) []*CallableUnit {
	pkg := res.Pkg
	fset := res.Fset
	complexity := complexityByPos(pkg)

	var units []*CallableUnit
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Name == nil || fd.Body == nil {
				continue
			}
			if opts.FunctionFilter != "" && fd.Name.Name != opts.FunctionFilter {
				continue
			}
			if !opts.IncludeUnexported && !fd.Name.IsExported() &&
				opts.FunctionFilter == "" {
				continue
			}
			units = append(units, newUnit(pkg, fset, fd, complexity))
		}
	}

	sortByComplexity(units)
	return units
}

// newUnit builds a CallableUnit from a function declaration.
func newUnit(
	pkg *packages.Package,
	fset *token.FileSet,
	fd *ast.FuncDecl,
	complexity map[complexityKey]int,
) *CallableUnit {
	pos := fset.Position(fd.Pos())

	u := &CallableUnit{
		Name:       fd.Name.Name,
		Package:    pkg.PkgPath,
		Receiver:   receiverName(fd),
		Doc:        docText(fd),
		Body:       declText(fset, fd),
		Kind:       classifyKind(fd),
		Location:   pos.String(),
		Params:     declaredParams(fd),
		Complexity: complexity[complexityKey{pos.Filename, pos.Line}],
		Decl:       fd,
		Fset:       fset,
		Info:       pkg.TypesInfo,
	}
	return u
}

// docText returns the leading doc comment text, trimmed.
func docText(fd *ast.FuncDecl) string {
	if fd.Doc == nil {
		return ""
	}
	return strings.TrimSpace(fd.Doc.Text())
}

// declText renders the declaration back to source text.
func declText(fset *token.FileSet, fd *ast.FuncDecl) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, fd); err != nil {
		return ""
	}
	return buf.String()
}

// classifyKind maps a declaration to its lifecycle kind by Go
// convention. First match wins.
func classifyKind(fd *ast.FuncDecl) Kind {
	name := fd.Name.Name
	switch {
	case name == "init" && fd.Recv == nil:
		return KindInit
	case name == "TestMain":
		return KindTestMain
	case strings.HasPrefix(name, "Setup") || strings.HasPrefix(name, "setup"):
		return KindSetup
	case strings.HasPrefix(name, "Teardown") || strings.HasPrefix(name, "teardown"):
		return KindTeardown
	case strings.HasPrefix(name, "Before"):
		return KindBefore
	case strings.HasPrefix(name, "After"):
		return KindAfter
	default:
		return KindPlain
	}
}

// declaredParams flattens the signature parameter list, expanding
// multi-name fields ("a, b int") into one Param each.
func declaredParams(fd *ast.FuncDecl) []Param {
	if fd.Type.Params == nil {
		return nil
	}
	var params []Param
	pos := 0
	for _, field := range fd.Type.Params.List {
		typeStr := typeExprString(field.Type)
		if len(field.Names) == 0 {
			params = append(params, Param{Name: "", TypeExpr: typeStr, Position: pos})
			pos++
			continue
		}
		for _, n := range field.Names {
			params = append(params, Param{Name: n.Name, TypeExpr: typeStr, Position: pos})
			pos++
		}
	}
	return params
}

// receiverName extracts the receiver type name from a FuncDecl.
// Returns empty string for non-method functions.
func receiverName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	return typeExprString(fd.Recv.List[0].Type)
}

// typeExprString converts a type expression to a string like "*T".
func typeExprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "*" + typeExprString(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeExprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + typeExprString(t.Elt)
	case *ast.MapType:
		return "map[" + typeExprString(t.Key) + "]" + typeExprString(t.Value)
	case *ast.FuncType:
		return "func"
	case *ast.InterfaceType:
		if len(t.Methods.List) == 0 {
			return "any"
		}
		return "interface"
	case *ast.Ellipsis:
		return "[]" + typeExprString(t.Elt)
	case *ast.ChanType:
		return "chan " + typeExprString(t.Value)
	case *ast.IndexExpr:
		return typeExprString(t.X) + "[" + typeExprString(t.Index) + "]"
	default:
		return "?"
	}
}

// QualifiedName returns the receiver-qualified callable name, e.g.
// "(*Store).Save" or "ParseConfig".
func (u *CallableUnit) QualifiedName() string {
	if u.Receiver != "" {
		return "(" + u.Receiver + ")." + u.Name
	}
	return u.Name
}
