package evidence

import (
	"go/ast"
	"go/token"
	"regexp"
	"sort"
	"strings"

	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// Semantic sub-passes run in a fixed order per parameter and the
// first match wins. Ordering matters: a parameter both formatted as
// a date and checked against os.Stat should read as a date, not a
// path.
type semanticPass struct {
	tag  schema.SemanticTag
	scan func(u *source.CallableUnit, name string) (string, bool)
}

var semanticPasses = []semanticPass{
	{schema.SemanticDateTime, scanDateTimeObject},
	{schema.SemanticDateStr, scanDateString},
	{schema.SemanticTimestamp, scanUnixTimestamp},
	{schema.SemanticFile, scanFileHandle},
	{schema.SemanticFilePath, scanFilePath},
	{schema.SemanticCallback, scanCallback},
}

// ScanSemantics annotates code findings with semantic tags. The enum
// pass runs last because enum membership is evidence about values,
// not about what kind of thing the parameter is.
func ScanSemantics(u *source.CallableUnit, findings map[string]*Finding) {
	if u.Decl == nil || u.Decl.Body == nil {
		return
	}
	for _, p := range u.Params {
		if p.Name == "" || p.Name == "_" {
			continue
		}
		f := findings[p.Name]
		tagged := false
		for _, pass := range semanticPasses {
			note, ok := pass.scan(u, p.Name)
			if !ok {
				continue
			}
			if f == nil {
				f = ensure(findings, p.Name)
			}
			f.Semantic = pass.tag
			f.Note = note
			tagged = true
			break
		}
		if tagged {
			continue
		}
		if values, ok := scanEnum(u, p.Name); ok {
			if f == nil {
				f = ensure(findings, p.Name)
			}
			f.Semantic = schema.SemanticEnum
			f.Enum = values
		}
	}
}

// datetime methods that identify a time.Time receiver.
var dateTimeMethods = map[string]bool{
	"Format": true, "Unix": true, "UnixNano": true, "UnixMilli": true,
	"Year": true, "Month": true, "Day": true, "Hour": true,
	"Minute": true, "Second": true, "Before": true, "After": true,
	"Add": true, "Sub": true, "Truncate": true, "IsZero": true,
	"Location": true, "In": true,
}

func scanDateTimeObject(u *source.CallableUnit, name string) (string, bool) {
	for _, call := range u.Calls() {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		recv, ok := sel.X.(*ast.Ident)
		if !ok || recv.Name != name {
			continue
		}
		if dateTimeMethods[sel.Sel.Name] {
			return "datetime value, methods called: ." + sel.Sel.Name, true
		}
	}
	return "", false
}

// layoutRe matches Go reference-time layout fragments in string
// literals near the parameter.
var layoutRe = regexp.MustCompile(`2006|15:04|01/02|Jan|Mon`)

func scanDateString(u *source.CallableUnit, name string) (string, bool) {
	for _, call := range u.Calls() {
		cn := source.CallName(call)
		if cn != "time.Parse" && cn != "time.ParseInLocation" {
			continue
		}
		if len(call.Args) < 2 {
			continue
		}
		arg, ok := call.Args[1].(*ast.Ident)
		if !ok || arg.Name != name {
			continue
		}
		if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
			layout := strings.Trim(lit.Value, "`\"")
			if layoutRe.MatchString(layout) {
				return "date string, layout " + layout, true
			}
		}
		return "date string", true
	}
	return "", false
}

// unix-timestamp range guards: comparisons against epoch-scale
// constants (1e9 .. 1e10 covers 2001..2286 in seconds).
func scanUnixTimestamp(u *source.CallableUnit, name string) (string, bool) {
	for _, cmp := range u.Comparisons() {
		c, ok := classifyCond(cmp, name)
		if !ok || c.kind != condRel || c.length {
			continue
		}
		if c.value >= 1e9 && c.value < 1e10 {
			return "unix timestamp, range-checked against epoch seconds", true
		}
	}
	for _, call := range u.Calls() {
		if source.CallName(call) != "time.Unix" {
			continue
		}
		if len(call.Args) >= 1 {
			if id, ok := call.Args[0].(*ast.Ident); ok && id.Name == name {
				return "unix timestamp, passed to time.Unix", true
			}
		}
	}
	return "", false
}

var fileHandleMethods = map[string]bool{
	"Read": true, "Write": true, "Close": true, "Seek": true,
	"ReadAt": true, "WriteAt": true, "Sync": true, "Stat": true,
	"WriteString": true,
}

func scanFileHandle(u *source.CallableUnit, name string) (string, bool) {
	for _, call := range u.Calls() {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		recv, ok := sel.X.(*ast.Ident)
		if !ok || recv.Name != name {
			continue
		}
		if fileHandleMethods[sel.Sel.Name] {
			return "open file handle, ." + sel.Sel.Name + " called", true
		}
	}
	return "", false
}

// path idioms: the parameter passed whole to a filesystem call.
var filePathCalls = map[string]bool{
	"os.Stat": true, "os.Open": true, "os.ReadFile": true,
	"os.Lstat": true, "os.Remove": true, "os.Create": true,
	"os.WriteFile": true, "os.MkdirAll": true, "os.Mkdir": true,
	"filepath.Abs": true, "filepath.Clean": true, "filepath.Ext": true,
	"filepath.Base": true, "filepath.Dir": true,
}

func scanFilePath(u *source.CallableUnit, name string) (string, bool) {
	for _, call := range u.Calls() {
		cn := source.CallName(call)
		if !filePathCalls[cn] {
			continue
		}
		for _, a := range call.Args {
			if id, ok := a.(*ast.Ident); ok && id.Name == name {
				return "file path, passed to " + cn, true
			}
		}
	}
	return "", false
}

// callback: the parameter is itself invoked.
func scanCallback(u *source.CallableUnit, name string) (string, bool) {
	for _, call := range u.Calls() {
		if id, ok := call.Fun.(*ast.Ident); ok && id.Name == name {
			return "invoked as a function", true
		}
	}
	return "", false
}

// scanEnum tries six value-set patterns in turn and captures the
// member values verbatim.
func scanEnum(u *source.CallableUnit, name string) ([]string, bool) {
	checks := []func(u *source.CallableUnit, name string) []string{
		enumFromRegexAlternation,
		enumFromMapMembership,
		enumFromListMembership,
		enumFromSwitch,
		enumFromChainedEquality,
		enumFromSetMembership,
	}
	for _, check := range checks {
		if values := check(u, name); len(values) >= 2 {
			return values, true
		}
	}
	return nil, false
}

// ^(a|b|c)$ anchored alternation matched against the parameter.
var alternationRe = regexp.MustCompile(`^\^?\(?([\w-]+(?:\|[\w-]+)+)\)?\$?$`)

func enumFromRegexAlternation(u *source.CallableUnit, name string) []string {
	for _, call := range u.Calls() {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "MatchString" {
			continue
		}
		if len(call.Args) != 1 {
			continue
		}
		arg, ok := call.Args[0].(*ast.Ident)
		if !ok || arg.Name != name {
			continue
		}
		pat := patternLiteral(u, sel.X)
		m := alternationRe.FindStringSubmatch(pat)
		if m == nil {
			continue
		}
		return strings.Split(m[1], "|")
	}
	return nil
}

// if _, ok := valid[x]; ok checks, where valid is a literal map keyed
// by strings.
func enumFromMapMembership(u *source.CallableUnit, name string) []string {
	literals := mapLiteralsByName(u)
	var found []string
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		idx, ok := n.(*ast.IndexExpr)
		if !ok {
			return true
		}
		key, ok := idx.Index.(*ast.Ident)
		if !ok || key.Name != name {
			return true
		}
		m, ok := idx.X.(*ast.Ident)
		if !ok {
			return true
		}
		if values, ok := literals[m.Name]; ok && !isSetLiteral(literals, m.Name, u) {
			found = values
		}
		return true
	})
	return found
}

// slices.Contains(list, x) or a range-and-compare loop over a literal
// slice.
func enumFromListMembership(u *source.CallableUnit, name string) []string {
	for _, call := range u.Calls() {
		cn := source.CallName(call)
		if cn != "slices.Contains" || len(call.Args) != 2 {
			continue
		}
		arg, ok := call.Args[1].(*ast.Ident)
		if !ok || arg.Name != name {
			continue
		}
		if lit, ok := call.Args[0].(*ast.CompositeLit); ok {
			return literalStrings(lit.Elts)
		}
		if id, ok := call.Args[0].(*ast.Ident); ok {
			if values := sliceLiteralFor(u, id.Name); values != nil {
				return values
			}
		}
	}
	return nil
}

// switch x { case "a": ... } with at least three literal cases.
func enumFromSwitch(u *source.CallableUnit, name string) []string {
	for _, sw := range u.SwitchStmts() {
		tag, ok := sw.Tag.(*ast.Ident)
		if !ok || tag.Name != name {
			continue
		}
		var values []string
		for _, stmt := range sw.Body.List {
			cc, ok := stmt.(*ast.CaseClause)
			if !ok {
				continue
			}
			values = append(values, literalStrings(cc.List)...)
		}
		if len(values) >= 3 {
			return values
		}
	}
	return nil
}

// x == "a" || x == "b" || x == "c" with at least three arms.
func enumFromChainedEquality(u *source.CallableUnit, name string) []string {
	var best []string
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		be, ok := n.(*ast.BinaryExpr)
		if !ok || be.Op != token.LOR {
			return true
		}
		var values []string
		for _, part := range disjuncts(be) {
			c, ok := classifyCond(part, name)
			if !ok || c.kind != condEqLit || c.lit == "" {
				return true
			}
			values = append(values, c.lit)
		}
		if len(values) >= 3 && len(values) > len(best) {
			best = values
		}
		return true
	})
	return best
}

// membership in a map[string]struct{} set literal.
func enumFromSetMembership(u *source.CallableUnit, name string) []string {
	literals := mapLiteralsByName(u)
	var found []string
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		idx, ok := n.(*ast.IndexExpr)
		if !ok {
			return true
		}
		key, ok := idx.Index.(*ast.Ident)
		if !ok || key.Name != name {
			return true
		}
		m, ok := idx.X.(*ast.Ident)
		if !ok {
			return true
		}
		if values, ok := literals[m.Name]; ok && isSetLiteral(literals, m.Name, u) {
			found = values
		}
		return true
	})
	return found
}

// mapLiteralsByName collects map composite literals assigned inside
// the unit, keyed by variable name, values being their string keys.
func mapLiteralsByName(u *source.CallableUnit) map[string][]string {
	out := make(map[string][]string)
	for _, assign := range u.AssignStmts() {
		for i, lhs := range assign.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok || i >= len(assign.Rhs) {
				continue
			}
			lit, ok := assign.Rhs[i].(*ast.CompositeLit)
			if !ok {
				continue
			}
			if _, ok := lit.Type.(*ast.MapType); !ok {
				continue
			}
			var keys []string
			for _, elt := range lit.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				if s, ok := stringLit(kv.Key); ok {
					keys = append(keys, s)
				}
			}
			sort.Strings(keys)
			out[id.Name] = keys
		}
	}
	return out
}

// isSetLiteral reports whether the named map literal has struct{}
// values, marking it a set rather than a lookup table.
func isSetLiteral(literals map[string][]string, name string, u *source.CallableUnit) bool {
	for _, assign := range u.AssignStmts() {
		for i, lhs := range assign.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok || id.Name != name || i >= len(assign.Rhs) {
				continue
			}
			lit, ok := assign.Rhs[i].(*ast.CompositeLit)
			if !ok {
				continue
			}
			mt, ok := lit.Type.(*ast.MapType)
			if !ok {
				continue
			}
			st, ok := mt.Value.(*ast.StructType)
			return ok && len(st.Fields.List) == 0
		}
	}
	return false
}

// sliceLiteralFor resolves a named slice literal assigned in the
// unit to its string elements.
func sliceLiteralFor(u *source.CallableUnit, name string) []string {
	for _, assign := range u.AssignStmts() {
		for i, lhs := range assign.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok || id.Name != name || i >= len(assign.Rhs) {
				continue
			}
			lit, ok := assign.Rhs[i].(*ast.CompositeLit)
			if !ok {
				continue
			}
			if _, ok := lit.Type.(*ast.ArrayType); !ok {
				continue
			}
			return literalStrings(lit.Elts)
		}
	}
	return nil
}

// literalStrings extracts basic-literal values from an expression
// list, stringifying numbers so enum members stay comparable.
func literalStrings(exprs []ast.Expr) []string {
	var out []string
	for _, e := range exprs {
		lit, ok := e.(*ast.BasicLit)
		if !ok {
			continue
		}
		switch lit.Kind {
		case token.STRING:
			out = append(out, strings.Trim(lit.Value, "`\""))
		case token.INT, token.FLOAT:
			out = append(out, lit.Value)
		}
	}
	return out
}

func stringLit(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	return strings.Trim(lit.Value, "`\""), true
}

// disjuncts flattens a chain of || into its leaves.
func disjuncts(e ast.Expr) []ast.Expr {
	if p, ok := e.(*ast.ParenExpr); ok {
		return disjuncts(p.X)
	}
	be, ok := e.(*ast.BinaryExpr)
	if !ok || be.Op != token.LOR {
		return []ast.Expr{e}
	}
	return append(disjuncts(be.X), disjuncts(be.Y)...)
}
