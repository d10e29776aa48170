package evidence_test

import (
	"testing"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/evidence"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

func mustCallable(t *testing.T, src, name string) *source.CallableUnit {
	t.Helper()
	f, err := source.ParseSource("fixture.go", "package fixture\n\n"+src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	u := f.Callable(name)
	if u == nil {
		t.Fatalf("callable %q not found in fixture", name)
	}
	return u
}

func TestScanDocSection(t *testing.T) {
	src := `
// Connect opens a session.
//
// Parameters:
//   host - string, the server to reach
//   port - integer (1-65535), listening port
//   retries - integer (non-negative, optional), attempts before giving up
func Connect(host string, port, retries int) error { return nil }
`
	u := mustCallable(t, src, "Connect")
	got := evidence.ScanDoc(u)

	if len(got) != 3 {
		t.Fatalf("expected 3 doc findings, got %d", len(got))
	}
	if got["host"].Type != schema.TypeString {
		t.Errorf("host type = %q, want string", got["host"].Type)
	}
	port := got["port"]
	if port.Type != schema.TypeInteger {
		t.Errorf("port type = %q, want integer", port.Type)
	}
	if port.Min == nil || *port.Min != 1 {
		t.Errorf("port min = %v, want 1", port.Min)
	}
	if port.Max == nil || *port.Max != 65535 {
		t.Errorf("port max = %v, want 65535", port.Max)
	}
	retries := got["retries"]
	if retries.Min == nil || *retries.Min != 0 {
		t.Errorf("retries min = %v, want 0", retries.Min)
	}
	if retries.Optional != schema.Optional {
		t.Errorf("retries optional = %q, want optional", retries.Optional)
	}
}

func TestScanDocSigilAndDefList(t *testing.T) {
	src := `
// Render draws a frame.
//
// Parameters:
//   $width - int (positive), frame width
func Render(width int) {}
`
	u := mustCallable(t, src, "Render")
	got := evidence.ScanDoc(u)
	f := got["width"]
	if f == nil {
		t.Fatal("sigil-prefixed name was not stripped")
	}
	if f.Type != schema.TypeInteger {
		t.Errorf("width type = %q, want integer", f.Type)
	}
	if f.Min == nil || *f.Min != 1 {
		t.Errorf("width min = %v, want 1 for positive constraint", f.Min)
	}
}

func TestScanDocComparisonConstraints(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		wantMin    *float64
		wantMax    *float64
	}{
		{"less than", "< 100", nil, f64Ptr(99)},
		{"greater than", "> 5", f64Ptr(6), nil},
		{"at most", "<= 10", nil, f64Ptr(10)},
		{"range", "3-7", f64Ptr(3), f64Ptr(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `
// Op does a thing.
//
// Parameters:
//   n - integer (` + tt.constraint + `), bounded value
func Op(n int) {}
`
			u := mustCallable(t, src, "Op")
			f := evidence.ScanDoc(u)["n"]
			if f == nil {
				t.Fatal("no finding for n")
			}
			checkBound(t, "min", f.Min, tt.wantMin)
			checkBound(t, "max", f.Max, tt.wantMax)
		})
	}
}

func checkBound(t *testing.T, label string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want unset", label, *got)
	case want != nil && got == nil:
		t.Errorf("%s unset, want %v", label, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %v, want %v", label, *got, *want)
	}
}

func TestScanCodeRequiredGuard(t *testing.T) {
	src := `
func Store(key string, data []byte) error {
	if key == "" {
		return errors.New("key required")
	}
	if len(data) == 0 {
		return errors.New("data required")
	}
	return nil
}
`
	u := mustCallable(t, src, "Store")
	got := evidence.ScanCode(u, 32)

	for _, name := range []string{"key", "data"} {
		f := got[name]
		if f == nil {
			t.Fatalf("no code finding for %s", name)
		}
		if f.Optional != schema.Required {
			t.Errorf("%s optional = %q, want required", name, f.Optional)
		}
	}
}

func TestScanCodeDefaultIdiom(t *testing.T) {
	src := `
func Listen(addr string) {
	if addr == "" {
		addr = ":8080"
	}
	serve(addr)
}
`
	u := mustCallable(t, src, "Listen")
	f := evidence.ScanCode(u, 32)["addr"]
	if f == nil {
		t.Fatal("no code finding for addr")
	}
	if f.Optional != schema.Optional {
		t.Errorf("addr optional = %q, want optional for default idiom", f.Optional)
	}
}

func TestScanCodeRelationalGuards(t *testing.T) {
	src := `
func Resize(width int) error {
	if width < 1 {
		return errors.New("too small")
	}
	if width > 4096 {
		return errors.New("too large")
	}
	return nil
}
`
	u := mustCallable(t, src, "Resize")
	f := evidence.ScanCode(u, 32)["width"]
	if f == nil {
		t.Fatal("no code finding for width")
	}
	if f.Min == nil || *f.Min != 1 {
		t.Errorf("min = %v, want 1", f.Min)
	}
	if f.Max == nil || *f.Max != 4096 {
		t.Errorf("max = %v, want 4096", f.Max)
	}
}

func TestScanCodeStrictGuardAdjustment(t *testing.T) {
	src := `
func Take(n int) error {
	if n <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
`
	u := mustCallable(t, src, "Take")
	f := evidence.ScanCode(u, 32)["n"]
	if f == nil || f.Min == nil {
		t.Fatal("no min finding for n")
	}
	if *f.Min != 1 {
		t.Errorf("min = %v, want 1 after strict-bound adjustment", *f.Min)
	}
}

func TestScanCodeMatches(t *testing.T) {
	src := `
func Validate(id string) error {
	idRe := regexp.MustCompile(` + "`^[a-z]{3}-\\d+$`" + `)
	if !idRe.MatchString(id) {
		return errors.New("bad id")
	}
	return nil
}
`
	u := mustCallable(t, src, "Validate")
	f := evidence.ScanCode(u, 32)["id"]
	if f == nil {
		t.Fatal("no code finding for id")
	}
	if f.Matches != `^[a-z]{3}-\d+$` {
		t.Errorf("matches = %q, want the compiled pattern", f.Matches)
	}
}

func TestScanCodeTypeAssertion(t *testing.T) {
	src := `
func Handle(v any) {
	s := v.(string)
	use(s)
}
`
	u := mustCallable(t, src, "Handle")
	f := evidence.ScanCode(u, 32)["v"]
	if f == nil {
		t.Fatal("no code finding for v")
	}
	if f.Type != schema.TypeString {
		t.Errorf("type = %q, want string from assertion", f.Type)
	}
}

func TestScanCodeMaxParamsBound(t *testing.T) {
	src := `
func Narrow(a, b string) error {
	if a == "" {
		return errors.New("a required")
	}
	if b == "" {
		return errors.New("b required")
	}
	return nil
}
`
	u := mustCallable(t, src, "Narrow")
	got := evidence.ScanCode(u, 1)
	if got["a"] == nil {
		t.Error("first parameter should be analyzed")
	}
	if got["b"] != nil {
		t.Error("parameters past the bound should be left unanalyzed")
	}
}

func TestScanSignature(t *testing.T) {
	src := `
func Mixed(name string, count int, opts map[string]string, cb func(), v any, w *Widget) {}
`
	u := mustCallable(t, src, "Mixed")
	got := evidence.ScanSignature(u)

	want := map[string]schema.ParamType{
		"name":  schema.TypeString,
		"count": schema.TypeInteger,
		"opts":  schema.TypeMap,
		"cb":    schema.TypeCodeRef,
		"v":     schema.TypeUnknown,
		"w":     schema.TypeObject,
	}
	for name, typ := range want {
		f := got[name]
		if f == nil {
			t.Fatalf("no signature finding for %s", name)
		}
		if f.Type != typ {
			t.Errorf("%s type = %q, want %q", name, f.Type, typ)
		}
	}
	if !got["v"].Generic {
		t.Error("any parameter should produce a generic finding")
	}
	if got["w"].Class != "Widget" {
		t.Errorf("w class = %q, want Widget", got["w"].Class)
	}
	if got["count"].Position == nil || *got["count"].Position != 1 {
		t.Errorf("count position = %v, want 1", got["count"].Position)
	}
}

func TestScanSemanticsFilePath(t *testing.T) {
	src := `
func LoadSpec(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}
`
	u := mustCallable(t, src, "LoadSpec")
	findings := evidence.ScanCode(u, 32)
	evidence.ScanSemantics(u, findings)
	f := findings["path"]
	if f == nil {
		t.Fatal("no finding for path")
	}
	if f.Semantic != schema.SemanticFilePath {
		t.Errorf("semantic = %q, want file-path", f.Semantic)
	}
}

func TestScanSemanticsOrderDateBeforePath(t *testing.T) {
	src := `
func Archive(stamp string) error {
	if _, err := time.Parse("2006-01-02", stamp); err != nil {
		return err
	}
	if _, err := os.Stat(stamp); err != nil {
		return err
	}
	return nil
}
`
	u := mustCallable(t, src, "Archive")
	findings := map[string]*evidence.Finding{}
	evidence.ScanSemantics(u, findings)
	f := findings["stamp"]
	if f == nil {
		t.Fatal("no finding for stamp")
	}
	if f.Semantic != schema.SemanticDateStr {
		t.Errorf("semantic = %q, want date-string to win over file-path", f.Semantic)
	}
}

func TestScanSemanticsCallback(t *testing.T) {
	src := `
func Each(items []string, fn func(string)) {
	for _, it := range items {
		fn(it)
	}
}
`
	u := mustCallable(t, src, "Each")
	findings := map[string]*evidence.Finding{}
	evidence.ScanSemantics(u, findings)
	f := findings["fn"]
	if f == nil || f.Semantic != schema.SemanticCallback {
		t.Errorf("fn semantic = %v, want callback", f)
	}
}

func TestScanSemanticsEnumSwitch(t *testing.T) {
	src := `
func SetLevel(level string) error {
	switch level {
	case "debug":
		return nil
	case "info":
		return nil
	case "error":
		return nil
	}
	return errors.New("unknown level")
}
`
	u := mustCallable(t, src, "SetLevel")
	findings := map[string]*evidence.Finding{}
	evidence.ScanSemantics(u, findings)
	f := findings["level"]
	if f == nil || f.Semantic != schema.SemanticEnum {
		t.Fatalf("level finding = %v, want enum semantic", f)
	}
	if len(f.Enum) != 3 {
		t.Fatalf("enum values = %v, want 3 members", f.Enum)
	}
}

func TestScanSemanticsEnumChainedEquality(t *testing.T) {
	src := `
func Valid(mode string) bool {
	if mode == "r" || mode == "w" || mode == "rw" {
		return true
	}
	return false
}
`
	u := mustCallable(t, src, "Valid")
	findings := map[string]*evidence.Finding{}
	evidence.ScanSemantics(u, findings)
	f := findings["mode"]
	if f == nil || f.Semantic != schema.SemanticEnum {
		t.Fatalf("mode finding = %v, want enum semantic", f)
	}
	if len(f.Enum) != 3 {
		t.Errorf("enum values = %v, want [r w rw]", f.Enum)
	}
}

func TestScanReturnsBoolean(t *testing.T) {
	src := `
// IsReady reports readiness.
func IsReady(s *Server) bool {
	if s.started {
		return true
	}
	return false
}
`
	u := mustCallable(t, src, "IsReady")
	cfg := config.DefaultConfig().Extract
	rf := evidence.ScanReturns(u, &cfg)
	if !rf.Boolean {
		t.Errorf("boolean = false (score %d), want true", rf.BooleanScore)
	}
	if rf.Code == nil || rf.Code.Type != schema.TypeBoolean {
		t.Error("code return finding should elect boolean")
	}
}

func TestScanReturnsConstant(t *testing.T) {
	src := `
func Version() string {
	return "2.1.0"
}
`
	u := mustCallable(t, src, "Version")
	rf := evidence.ScanReturns(u, nil)
	if rf.Code == nil {
		t.Fatal("no code return finding")
	}
	if rf.Code.Value == nil || *rf.Code.Value != "2.1.0" {
		t.Errorf("constant value = %v, want 2.1.0", rf.Code.Value)
	}
}

func TestScanReturnsConvention(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want schema.ReturnConvention
	}{
		{
			"error result",
			`func Open(p string) (*File, error) { return nil, nil }`,
			"Open",
			schema.ConventionSentinel,
		},
		{
			"panic",
			`func Must(v int) int {
				if v < 0 {
					panic("negative")
				}
				return v
			}`,
			"Must",
			schema.ConventionThrows,
		},
		{
			"nil on failure",
			`func Find(id string) *Record {
				if id == "" {
					return nil
				}
				return lookup(id)
			}`,
			"Find",
			schema.ConventionImplicit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustCallable(t, tt.src, tt.fn)
			rf := evidence.ScanReturns(u, nil)
			if rf.Convention != tt.want {
				t.Errorf("convention = %q, want %q", rf.Convention, tt.want)
			}
		})
	}
}

func TestScanReturnsDocSection(t *testing.T) {
	src := `
// Count tallies things.
//
// Returns: integer, the number of matches.
func Count(xs []string) int { return len(xs) }
`
	u := mustCallable(t, src, "Count")
	rf := evidence.ScanReturns(u, nil)
	if rf.Doc == nil {
		t.Fatal("no doc return finding")
	}
	if rf.Doc.Type != schema.TypeInteger {
		t.Errorf("doc return type = %q, want integer", rf.Doc.Type)
	}
}

func TestScanReturnsMultiValue(t *testing.T) {
	src := `
func Pop(s []int) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}
`
	u := mustCallable(t, src, "Pop")
	rf := evidence.ScanReturns(u, nil)
	if !rf.ContextAware {
		t.Error("two-result signature should mark context-aware")
	}
}

func TestScanRelationshipsMutuallyExclusive(t *testing.T) {
	src := `
func Fetch(url string, body string) error {
	if url != "" && body != "" {
		return errors.New("url and body are mutually exclusive")
	}
	return nil
}
`
	u := mustCallable(t, src, "Fetch")
	rels := evidence.ScanRelationships(u)
	r := findRel(rels, schema.RelMutuallyExclusive)
	if r == nil {
		t.Fatalf("no mutually-exclusive relationship in %v", rels)
	}
	if len(r.Params) != 2 {
		t.Errorf("params = %v, want both names", r.Params)
	}
}

func TestScanRelationshipsRequiredGroup(t *testing.T) {
	src := `
func Send(to string, cc string) error {
	if to == "" || cc == "" {
		return errors.New("a recipient is required")
	}
	return nil
}
`
	u := mustCallable(t, src, "Send")
	rels := evidence.ScanRelationships(u)
	if findRel(rels, schema.RelRequiredGroup) == nil {
		t.Fatalf("no required-group relationship in %v", rels)
	}
}

func TestScanRelationshipsConditional(t *testing.T) {
	src := `
func Auth(token string, user string) error {
	if token != "" && user == "" {
		return errors.New("user must be set with token")
	}
	return nil
}
`
	u := mustCallable(t, src, "Auth")
	rels := evidence.ScanRelationships(u)
	r := findRel(rels, schema.RelConditional)
	if r == nil {
		t.Fatalf("no conditional-requirement in %v", rels)
	}
	if r.If != "token" || r.Then != "user" {
		t.Errorf("conditional = %s -> %s, want token -> user", r.If, r.Then)
	}
}

func TestScanRelationshipsDependency(t *testing.T) {
	src := `
func Join(channel string, key string) error {
	if channel != "" && key == "" {
		return errors.New("channel requires key")
	}
	return nil
}
`
	u := mustCallable(t, src, "Join")
	rels := evidence.ScanRelationships(u)
	r := findRel(rels, schema.RelDependency)
	if r == nil {
		t.Fatalf("no dependency in %v", rels)
	}
	if r.If != "channel" || r.Then != "key" {
		t.Errorf("dependency = %s -> %s, want channel -> key", r.If, r.Then)
	}
}

func TestScanRelationshipsValueConstraint(t *testing.T) {
	src := `
func Scale(enabled bool, factor int) error {
	if enabled && factor < 1 {
		return errors.New("factor must be at least 1 when enabled")
	}
	return nil
}
`
	u := mustCallable(t, src, "Scale")
	rels := evidence.ScanRelationships(u)
	r := findRel(rels, schema.RelValueConstraint)
	if r == nil {
		t.Fatalf("no value-constraint in %v", rels)
	}
	if r.Operator != ">=" || r.Value != "1" {
		t.Errorf("constraint = %s %s, want >= 1", r.Operator, r.Value)
	}
}

func TestScanRelationshipsValueConditional(t *testing.T) {
	src := `
func Export(format string, template string) error {
	if format == "html" && template == "" {
		return errors.New("html export needs a template")
	}
	return nil
}
`
	u := mustCallable(t, src, "Export")
	rels := evidence.ScanRelationships(u)
	r := findRel(rels, schema.RelValueConditional)
	if r == nil {
		t.Fatalf("no value-conditional in %v", rels)
	}
	if r.If != "format" || r.Then != "template" || r.Value != "html" {
		t.Errorf("got %+v, want format=html -> template", r)
	}
}

func TestScanRelationshipsDedup(t *testing.T) {
	src := `
func Sync(local string, remote string) error {
	if local != "" && remote != "" {
		return errors.New("pick one side")
	}
	if remote != "" && local != "" {
		return errors.New("pick one side")
	}
	return nil
}
`
	u := mustCallable(t, src, "Sync")
	rels := evidence.ScanRelationships(u)
	n := 0
	for _, r := range rels {
		if r.Type == schema.RelMutuallyExclusive {
			n++
		}
	}
	if n != 1 {
		t.Errorf("got %d mutually-exclusive relationships, want 1 after dedup", n)
	}
}

func TestCollect(t *testing.T) {
	src := `
// Put stores a value.
//
// Parameters:
//   key - string, the lookup key
//   value - string, the payload
func Put(key, value string) error {
	if key == "" {
		return errors.New("key required")
	}
	return nil
}
`
	u := mustCallable(t, src, "Put")
	sets := evidence.Collect(u, nil)

	if sets.Doc["key"] == nil || sets.Doc["value"] == nil {
		t.Error("doc scan should cover both parameters")
	}
	if sets.Code["key"] == nil || sets.Code["key"].Optional != schema.Required {
		t.Error("code scan should mark key required")
	}
	if sets.Signature["value"] == nil {
		t.Error("signature scan should cover value")
	}
	if sets.Return.Convention != schema.ConventionSentinel {
		t.Errorf("convention = %q, want explicit-sentinel", sets.Return.Convention)
	}
}

func findRel(rels []schema.Relationship, typ schema.RelationshipType) *schema.Relationship {
	for i := range rels {
		if rels[i].Type == typ {
			return &rels[i]
		}
	}
	return nil
}

func f64Ptr(f float64) *float64 { return &f }
