// Package objects resolves whether a callable needs a constructed
// receiver before it can be invoked, and with which constructor
// parameters. Resolution is a fixed-order state machine over the
// callable and its surrounding declarations; the first matching
// state decides.
package objects

import (
	"go/ast"
	"strings"

	"github.com/scry-dev/scry/internal/evidence"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// Scope is the declaration context a callable is resolved against:
// the other callables of its package plus the locally declared
// struct types.
type Scope struct {
	units   []*source.CallableUnit
	structs map[string]*ast.StructType
}

// ScopeFromFile builds a scope from a single parsed file.
func ScopeFromFile(f *source.File) *Scope {
	sc := &Scope{
		units:   f.Callables(),
		structs: make(map[string]*ast.StructType),
	}
	collectStructs(f.Ast, sc.structs)
	return sc
}

// ScopeFromResult builds a scope from a loaded package.
func ScopeFromResult(res *source.Result, units []*source.CallableUnit) *Scope {
	sc := &Scope{
		units:   units,
		structs: make(map[string]*ast.StructType),
	}
	for _, f := range res.Pkg.Syntax {
		collectStructs(f, sc.structs)
	}
	return sc
}

func collectStructs(f *ast.File, out map[string]*ast.StructType) {
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if st, ok := ts.Type.(*ast.StructType); ok {
				out[ts.Name.Name] = st
			}
		}
	}
}

// Resolve runs the state machine. A nil result means the callable
// needs no pre-existing object.
func (sc *Scope) Resolve(u *source.CallableUnit) *schema.Instantiation {
	// Factories create their object; nothing pre-exists.
	if sc.isFactory(u) {
		return nil
	}
	// Singleton accessors are invoked without an instance.
	if sc.isSingletonAccessor(u) {
		return nil
	}

	if u.Receiver != "" {
		// Pointer receivers resolve against the bare type name.
		target := strings.TrimPrefix(u.Receiver, "*")
		// Embedding substitution: a receiver type without its own
		// constructor but with an embedded parent is constructed
		// as the parent.
		if parent, ok := sc.embeddedParent(target); ok && sc.constructorFor(target) == nil {
			target = parent
		}
		return sc.describeConstruction(target)
	}

	// Free function: construction or method calls on another local
	// or external type still mean an object enters the picture.
	if class, external, ok := sc.externalUsage(u); ok {
		return &schema.Instantiation{Class: class, External: external}
	}
	return nil
}

var factoryPrefixes = []string{"New", "Make", "Build"}

// isFactory matches factory naming or factory-shaped return
// statements (composite construction or delegation to another
// constructor).
func (sc *Scope) isFactory(u *source.CallableUnit) bool {
	for _, prefix := range factoryPrefixes {
		if strings.HasPrefix(u.Name, prefix) && len(u.Name) > len(prefix) {
			r := u.Name[len(prefix)]
			if r >= 'A' && r <= 'Z' {
				return true
			}
		}
	}
	if u.Decl == nil || u.Decl.Body == nil {
		return false
	}
	for _, ret := range u.ReturnStmts() {
		for _, res := range ret.Results {
			if isConstruction(res) {
				return true
			}
			if call, ok := res.(*ast.CallExpr); ok {
				name := source.CallName(call)
				short := name
				if i := strings.LastIndex(short, "."); i >= 0 {
					short = short[i+1:]
				}
				for _, prefix := range factoryPrefixes {
					if strings.HasPrefix(short, prefix) && len(short) > len(prefix) {
						return true
					}
				}
			}
		}
	}
	return false
}

// isConstruction matches T{...} and &T{...} return shapes.
func isConstruction(e ast.Expr) bool {
	switch expr := e.(type) {
	case *ast.CompositeLit:
		switch expr.Type.(type) {
		case *ast.Ident, *ast.SelectorExpr:
			return true
		}
	case *ast.UnaryExpr:
		if lit, ok := expr.X.(*ast.CompositeLit); ok {
			return isConstruction(lit)
		}
	}
	return false
}

var accessorNames = []string{"Instance", "Shared", "Default", "Singleton", "Get"}

// isSingletonAccessor requires both accessor naming and a caching
// idiom in the body: a sync.Once dispatch or a nil-guarded cached
// variable that the function returns.
func (sc *Scope) isSingletonAccessor(u *source.CallableUnit) bool {
	named := false
	for _, n := range accessorNames {
		if strings.Contains(u.Name, n) {
			named = true
			break
		}
	}
	if !named || u.Decl == nil || u.Decl.Body == nil {
		return false
	}

	for _, call := range u.Calls() {
		if strings.HasSuffix(source.CallName(call), ".Do") {
			return true
		}
	}
	return sc.guardedCacheReturn(u)
}

// guardedCacheReturn detects "if cached == nil { cached = ... };
// return cached".
func (sc *Scope) guardedCacheReturn(u *source.CallableUnit) bool {
	cached := ""
	for _, ifs := range u.IfStmts() {
		be, ok := ifs.Cond.(*ast.BinaryExpr)
		if !ok {
			continue
		}
		id, ok := be.X.(*ast.Ident)
		if !ok {
			continue
		}
		if nilIdent, ok := be.Y.(*ast.Ident); !ok || nilIdent.Name != "nil" {
			continue
		}
		if assignsIdent(ifs.Body, id.Name) {
			cached = id.Name
		}
	}
	if cached == "" {
		return false
	}
	for _, ret := range u.ReturnStmts() {
		for _, res := range ret.Results {
			if id, ok := res.(*ast.Ident); ok && id.Name == cached {
				return true
			}
		}
	}
	return false
}

func assignsIdent(block *ast.BlockStmt, name string) bool {
	found := false
	ast.Inspect(block, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignStmt)
		if !ok {
			return true
		}
		for _, lhs := range assign.Lhs {
			if id, ok := lhs.(*ast.Ident); ok && id.Name == name {
				found = true
			}
		}
		return true
	})
	return found
}

// embeddedParent returns the first embedded field of the named local
// struct.
func (sc *Scope) embeddedParent(class string) (string, bool) {
	st, ok := sc.structs[class]
	if !ok || st.Fields == nil {
		return "", false
	}
	for _, field := range st.Fields.List {
		if len(field.Names) > 0 {
			continue
		}
		switch t := field.Type.(type) {
		case *ast.Ident:
			return t.Name, true
		case *ast.StarExpr:
			if id, ok := t.X.(*ast.Ident); ok {
				return id.Name, true
			}
		}
	}
	return "", false
}

// constructorFor finds the conventional constructor for a class
// among the scope's callables.
func (sc *Scope) constructorFor(class string) *source.CallableUnit {
	for _, prefix := range factoryPrefixes {
		for _, u := range sc.units {
			if u.Name == prefix+class {
				return u
			}
		}
	}
	return nil
}

// describeConstruction analyzes the target's constructor parameters.
// A class with no local declaration is reported as external rather
// than guessed at.
func (sc *Scope) describeConstruction(class string) *schema.Instantiation {
	if _, local := sc.structs[class]; !local {
		return &schema.Instantiation{Class: class, External: true}
	}

	inst := &schema.Instantiation{Class: class}
	ctor := sc.constructorFor(class)
	if ctor == nil {
		return inst
	}

	findings := evidence.ScanCode(ctor, len(ctor.Params))
	for _, p := range ctor.Params {
		if p.Name == "" || p.Name == "_" {
			continue
		}
		inst.Params = append(inst.Params, p.Name)
		f := findings[p.Name]
		switch {
		case f != nil && f.Optional == schema.Optional:
			inst.Optional = append(inst.Optional, p.Name)
		default:
			inst.Required = append(inst.Required, p.Name)
		}
	}
	return inst
}

// externalUsage scans a free function's body for construction of or
// method calls on class-shaped values from elsewhere.
func (sc *Scope) externalUsage(u *source.CallableUnit) (string, bool, bool) {
	if u.Decl == nil || u.Decl.Body == nil {
		return "", false, false
	}
	for _, call := range u.Calls() {
		name := source.CallName(call)
		i := strings.LastIndex(name, ".")
		if i <= 0 {
			continue
		}
		short := name[i+1:]
		for _, prefix := range factoryPrefixes {
			if strings.HasPrefix(short, prefix) && len(short) > len(prefix) {
				class := strings.TrimPrefix(short, prefix)
				_, local := sc.structs[class]
				return class, !local, true
			}
		}
	}
	var found string
	foundLocal := false
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok || found != "" {
			return true
		}
		switch t := lit.Type.(type) {
		case *ast.SelectorExpr:
			found = t.Sel.Name
		case *ast.Ident:
			if _, ok := sc.structs[t.Name]; ok {
				found = t.Name
				foundLocal = true
			}
		}
		return true
	})
	if found != "" {
		return found, !foundLocal, true
	}
	return "", false, false
}
