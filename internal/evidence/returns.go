package evidence

import (
	"go/ast"
	"go/token"
	"regexp"
	"sort"
	"strings"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// ReturnFinding is one source's partial record for the return value.
type ReturnFinding struct {
	Type  schema.ParamType
	Class string

	// Value is set when every return site yields the same literal.
	Value *string
}

// ReturnFindings groups the per-source return evidence. Doc and Code
// stay separate so the merger can apply the same priority order it
// uses for parameters; the score, shape, and convention fields are
// code facts with no doc counterpart.
type ReturnFindings struct {
	Doc  *ReturnFinding
	Code *ReturnFinding

	// BooleanScore is the weighted boolean-detection total.
	BooleanScore int

	// Boolean is set when the score clears the configured
	// threshold.
	Boolean bool

	// ContextAware marks a multi-value return shape.
	ContextAware bool

	// Convention is the detected error-signaling convention.
	Convention schema.ReturnConvention
}

// returnsHeadingRe matches a "Returns:" or "Return value:" doc line
// and captures the text after it.
var returnsHeadingRe = regexp.MustCompile(`(?im)^\s*returns?(?:\s+value)?:\s*(.+)$`)

// docReturnTypeRe pulls the leading type token from return text.
var docReturnTypeRe = regexp.MustCompile(`^(?:an?\s+|the\s+)?([A-Za-z][\w-]*)`)

// ScanReturns collects return evidence from documentation and from
// the return statements themselves.
func ScanReturns(u *source.CallableUnit, cfg *config.ExtractConfig) ReturnFindings {
	if cfg == nil {
		cfg = &config.DefaultConfig().Extract
	}

	rf := ReturnFindings{
		Doc:  scanDocReturn(u.Doc),
		Code: scanCodeReturn(u),
	}
	rf.ContextAware = multiValueReturn(u)
	rf.Convention = detectConvention(u)
	rf.BooleanScore = booleanScore(u, rf)
	rf.Boolean = rf.BooleanScore >= cfg.BooleanThreshold &&
		!strongNonBoolean(rf)
	return rf
}

// scanDocReturn reads the Returns: doc line when present.
func scanDocReturn(doc string) *ReturnFinding {
	m := returnsHeadingRe.FindStringSubmatch(doc)
	if m == nil {
		return nil
	}
	text := strings.TrimSpace(m[1])
	tm := docReturnTypeRe.FindStringSubmatch(text)
	if tm == nil {
		return nil
	}
	t, class := normalizeTypeToken(tm[1])
	if t == "" {
		return nil
	}
	return &ReturnFinding{Type: t, Class: class}
}

// returnShape is one vote in the frequency election over return
// expression shapes.
type returnShape struct {
	typ   schema.ParamType
	class string
	lit   string
}

// scanCodeReturn classifies every return site and elects the
// majority shape. Nil returns abstain: they describe the failure
// path, not the value type.
func scanCodeReturn(u *source.CallableUnit) *ReturnFinding {
	if u.Decl == nil || u.Decl.Body == nil {
		return nil
	}

	var shapes []returnShape
	for _, ret := range u.ReturnStmts() {
		if len(ret.Results) == 0 {
			continue
		}
		if s, ok := classifyReturnExpr(u, ret.Results[0]); ok {
			shapes = append(shapes, s)
		}
	}
	if len(shapes) == 0 {
		return nil
	}

	counts := make(map[schema.ParamType]int)
	classes := make(map[schema.ParamType]string)
	for _, s := range shapes {
		counts[s.typ]++
		if s.class != "" {
			classes[s.typ] = s.class
		}
	}

	var elected schema.ParamType
	best := 0
	keys := make([]schema.ParamType, 0, len(counts))
	for t := range counts {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, t := range keys {
		if counts[t] > best {
			best = counts[t]
			elected = t
		}
	}

	f := &ReturnFinding{Type: elected, Class: classes[elected]}

	// Constant detection: every site returned the same literal.
	lit := shapes[0].lit
	constant := lit != ""
	for _, s := range shapes[1:] {
		if s.lit != lit {
			constant = false
		}
	}
	if constant && len(shapes) > 0 {
		f.Value = &lit
	}
	return f
}

// classifyReturnExpr maps one return expression to a shape vote.
func classifyReturnExpr(u *source.CallableUnit, e ast.Expr) (returnShape, bool) {
	switch expr := e.(type) {
	case *ast.BasicLit:
		switch expr.Kind {
		case token.STRING:
			return returnShape{typ: schema.TypeString, lit: strings.Trim(expr.Value, "`\"")}, true
		case token.INT:
			return returnShape{typ: schema.TypeInteger, lit: expr.Value}, true
		case token.FLOAT:
			return returnShape{typ: schema.TypeNumber, lit: expr.Value}, true
		}
	case *ast.Ident:
		switch expr.Name {
		case "true", "false":
			return returnShape{typ: schema.TypeBoolean, lit: expr.Name}, true
		case "nil":
			return returnShape{}, false
		}
	case *ast.CompositeLit:
		switch t := expr.Type.(type) {
		case *ast.ArrayType:
			return returnShape{typ: schema.TypeArray}, true
		case *ast.MapType:
			return returnShape{typ: schema.TypeMap}, true
		case *ast.Ident:
			return returnShape{typ: schema.TypeObject, class: t.Name}, true
		case *ast.SelectorExpr:
			return returnShape{typ: schema.TypeObject, class: u.Text(t)}, true
		}
	case *ast.UnaryExpr:
		if expr.Op == token.AND {
			if lit, ok := expr.X.(*ast.CompositeLit); ok {
				if s, ok := classifyReturnExpr(u, lit); ok {
					return s, true
				}
			}
		}
		if expr.Op == token.NOT {
			return returnShape{typ: schema.TypeBoolean}, true
		}
	case *ast.BinaryExpr:
		switch expr.Op {
		case token.EQL, token.NEQ, token.LSS, token.GTR, token.LEQ,
			token.GEQ, token.LAND, token.LOR:
			return returnShape{typ: schema.TypeBoolean}, true
		}
	case *ast.FuncLit:
		return returnShape{typ: schema.TypeCodeRef}, true
	case *ast.ParenExpr:
		return classifyReturnExpr(u, expr.X)
	}
	return returnShape{}, false
}

// multiValueReturn reports whether the declared result list carries
// more than one value.
func multiValueReturn(u *source.CallableUnit) bool {
	if u.Decl == nil || u.Decl.Type.Results == nil {
		return false
	}
	n := 0
	for _, field := range u.Decl.Type.Results.List {
		if len(field.Names) == 0 {
			n++
		} else {
			n += len(field.Names)
		}
	}
	return n > 1
}

// detectConvention decides the error-signaling convention. An error
// result wins; panics without one read as throwing; nil-on-failure
// is the implicit default when failing branches return nil.
func detectConvention(u *source.CallableUnit) schema.ReturnConvention {
	if u.Decl == nil {
		return ""
	}
	if results := u.Decl.Type.Results; results != nil {
		for _, field := range results.List {
			if id, ok := field.Type.(*ast.Ident); ok && id.Name == "error" {
				return schema.ConventionSentinel
			}
		}
	}
	if u.Decl.Body == nil {
		return ""
	}
	for _, call := range u.Calls() {
		name := source.CallName(call)
		if name == "panic" || strings.HasSuffix(name, ".Fatal") ||
			strings.HasSuffix(name, ".Fatalf") {
			return schema.ConventionThrows
		}
	}
	for _, ret := range u.ReturnStmts() {
		if len(ret.Results) != 1 {
			continue
		}
		if id, ok := ret.Results[0].(*ast.Ident); ok && id.Name == "nil" {
			return schema.ConventionImplicit
		}
	}
	return ""
}

// Boolean-naming prefixes, each worth namePrefixWeight points.
var booleanPrefixes = []string{"Is", "Has", "Can", "Should", "Was", "Are"}

const (
	namePrefixWeight   = 3
	literalVoteWeight  = 3
	conditionalWeight  = 2
	declaredBoolWeight = 4
)

// booleanScore totals the weighted boolean signals. No single signal
// clears the default threshold alone except a declared bool result
// combined with any other.
func booleanScore(u *source.CallableUnit, rf ReturnFindings) int {
	score := 0

	base := u.Name
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	for _, prefix := range booleanPrefixes {
		if strings.HasPrefix(base, prefix) {
			score += namePrefixWeight
			break
		}
	}
	if strings.HasSuffix(base, "OK") || strings.HasSuffix(base, "Ok") {
		score += namePrefixWeight
	}

	if declaredBool(u) {
		score += declaredBoolWeight
	}

	if allBinaryLiterals(u) {
		score += literalVoteWeight
	}

	if conditionalBinaryReturn(u) {
		score += conditionalWeight
	}

	if rf.Doc != nil && rf.Doc.Type == schema.TypeBoolean {
		score += conditionalWeight
	}
	return score
}

func declaredBool(u *source.CallableUnit) bool {
	if u.Decl == nil || u.Decl.Type.Results == nil {
		return false
	}
	list := u.Decl.Type.Results.List
	if len(list) == 0 {
		return false
	}
	id, ok := list[0].Type.(*ast.Ident)
	return ok && id.Name == "bool"
}

// allBinaryLiterals reports whether every return site yields a 0/1
// or true/false literal.
func allBinaryLiterals(u *source.CallableUnit) bool {
	if u.Decl == nil || u.Decl.Body == nil {
		return false
	}
	sites := 0
	for _, ret := range u.ReturnStmts() {
		if len(ret.Results) == 0 {
			continue
		}
		sites++
		if !isBinaryLiteral(ret.Results[0]) {
			return false
		}
	}
	return sites >= 2
}

func isBinaryLiteral(e ast.Expr) bool {
	switch expr := e.(type) {
	case *ast.Ident:
		return expr.Name == "true" || expr.Name == "false"
	case *ast.BasicLit:
		return expr.Kind == token.INT && (expr.Value == "0" || expr.Value == "1")
	}
	return false
}

// conditionalBinaryReturn detects the if-return-true-else-false
// shape in either order.
func conditionalBinaryReturn(u *source.CallableUnit) bool {
	for _, ifs := range u.IfStmts() {
		if blockReturnsBinary(ifs.Body) {
			if els, ok := ifs.Else.(*ast.BlockStmt); ok && blockReturnsBinary(els) {
				return true
			}
		}
	}
	return false
}

func blockReturnsBinary(block *ast.BlockStmt) bool {
	for _, stmt := range block.List {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok || len(ret.Results) == 0 {
			continue
		}
		return isBinaryLiteral(ret.Results[0])
	}
	return false
}

// strongNonBoolean blocks a boolean classification when the elected
// code shape is a specific non-boolean type backed by a matching doc
// finding.
func strongNonBoolean(rf ReturnFindings) bool {
	if rf.Code == nil || rf.Doc == nil {
		return false
	}
	if rf.Code.Type == "" || rf.Code.Type == schema.TypeBoolean {
		return false
	}
	return rf.Code.Type == rf.Doc.Type
}
