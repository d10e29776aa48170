package source

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
)

// File is a single parsed source document, used where full package
// loading is unnecessary (mutation passes, lightweight extraction).
type File struct {
	// Path is the file path or synthetic name.
	Path string

	// Ast is the parsed file.
	Ast *ast.File

	// Fset resolves positions within Ast.
	Fset *token.FileSet
}

// ParseFile parses one Go source file from disk, with comments.
func ParseFile(path string) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return &File{Path: path, Ast: f, Fset: fset}, nil
}

// ParseSource parses Go source text under a synthetic file name.
func ParseSource(name, src string) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", name, err)
	}
	return &File{Path: name, Ast: f, Fset: fset}, nil
}

// Callables extracts units from a parsed file without type
// information or complexity data. The package field is the file's
// package clause name rather than a full import path.
func (f *File) Callables() []*CallableUnit {
	var units []*CallableUnit
	for _, decl := range f.Ast.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name == nil || fd.Body == nil {
			continue
		}
		pos := f.Fset.Position(fd.Pos())
		units = append(units, &CallableUnit{
			Name:     fd.Name.Name,
			Package:  f.Ast.Name.Name,
			Receiver: receiverName(fd),
			Doc:      docText(fd),
			Body:     declText(f.Fset, fd),
			Kind:     classifyKind(fd),
			Location: pos.String(),
			Params:   declaredParams(fd),
			Decl:     fd,
			Fset:     f.Fset,
		})
	}
	return units
}

// Text renders any AST node within the file back to source text.
func (f *File) Text(node ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, f.Fset, node); err != nil {
		return ""
	}
	return buf.String()
}

// Callable returns the named unit from the file, or nil.
func (f *File) Callable(name string) *CallableUnit {
	for _, u := range f.Callables() {
		if u.Name == name {
			return u
		}
	}
	return nil
}
