package merge_test

import (
	"testing"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/evidence"
	"github.com/scry-dev/scry/internal/merge"
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
		t.Fatalf("callable %q not found", name)
	}
	return u
}

func TestBuildPriorityDocOverCode(t *testing.T) {
	u := mustCallable(t, `func Op(n int) {}`, "Op")
	sets := evidence.Sets{
		Doc:       map[string]*evidence.Finding{"n": {Type: schema.TypeString}},
		Code:      map[string]*evidence.Finding{"n": {Type: schema.TypeInteger}},
		Signature: map[string]*evidence.Finding{"n": {Type: schema.TypeInteger, Position: intPtr(0)}},
	}
	s := merge.Build(u, sets, nil)
	if s.Input["n"].Type != schema.TypeString {
		t.Errorf("type = %q, want doc finding to win", s.Input["n"].Type)
	}
}

func TestBuildSpecificBeatsGeneric(t *testing.T) {
	u := mustCallable(t, `func Op(v any) {}`, "Op")
	sets := evidence.Sets{
		Doc:       map[string]*evidence.Finding{"v": {Type: schema.TypeUnknown, Generic: true}},
		Code:      map[string]*evidence.Finding{"v": {Type: schema.TypeString}},
		Signature: map[string]*evidence.Finding{"v": {Type: schema.TypeUnknown, Generic: true, Position: intPtr(0)}},
	}
	s := merge.Build(u, sets, nil)
	if s.Input["v"].Type != schema.TypeString {
		t.Errorf("type = %q, want specific code finding over generic doc", s.Input["v"].Type)
	}
}

func TestBuildPositionMajorityVote(t *testing.T) {
	u := mustCallable(t, `func Op(a, b int) {}`, "Op")
	sets := evidence.Sets{
		Doc:       map[string]*evidence.Finding{"b": {Position: intPtr(1)}},
		Code:      map[string]*evidence.Finding{"b": {Position: intPtr(3)}},
		Signature: map[string]*evidence.Finding{"b": {Type: schema.TypeInteger, Position: intPtr(1)}},
	}
	s := merge.Build(u, sets, nil)
	p := s.Input["b"]
	if p.Position == nil || *p.Position != 1 {
		t.Errorf("position = %v, want majority 1", p.Position)
	}
}

func TestBuildPositionLowestTiebreak(t *testing.T) {
	u := mustCallable(t, `func Op(a int) {}`, "Op")
	sets := evidence.Sets{
		Doc:       map[string]*evidence.Finding{"a": {Position: intPtr(2)}},
		Signature: map[string]*evidence.Finding{"a": {Type: schema.TypeInteger, Position: intPtr(0)}},
	}
	s := merge.Build(u, sets, nil)
	p := s.Input["a"]
	if p.Position == nil || *p.Position != 0 {
		t.Errorf("position = %v, want lowest on tie", p.Position)
	}
}

func TestBuildOptionalityOrder(t *testing.T) {
	tests := []struct {
		name string
		doc  *evidence.Finding
		code *evidence.Finding
		sig  *evidence.Finding
		want schema.Tri
	}{
		{
			"doc beats code",
			&evidence.Finding{Optional: schema.Optional},
			&evidence.Finding{Optional: schema.Required},
			nil,
			schema.Optional,
		},
		{
			"code when doc silent",
			&evidence.Finding{Type: schema.TypeString},
			&evidence.Finding{Optional: schema.Required},
			nil,
			schema.Required,
		},
		{
			"default required with evidence",
			&evidence.Finding{Type: schema.TypeString},
			nil,
			nil,
			schema.Required,
		},
		{
			"unknown without evidence",
			nil,
			nil,
			&evidence.Finding{},
			schema.OptionalUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustCallable(t, `func Op(x string) {}`, "Op")
			sets := evidence.Sets{
				Doc:       findingMap("x", tt.doc),
				Code:      findingMap("x", tt.code),
				Signature: findingMap("x", tt.sig),
			}
			s := merge.Build(u, sets, nil)
			if got := s.Input["x"].Optional; got != tt.want {
				t.Errorf("optional = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildConstraintsFoldInPriorityOrder(t *testing.T) {
	u := mustCallable(t, `func Op(n int) {}`, "Op")
	sets := evidence.Sets{
		Doc:  map[string]*evidence.Finding{"n": {Min: f64Ptr(1)}},
		Code: map[string]*evidence.Finding{"n": {Min: f64Ptr(5), Max: f64Ptr(10)}},
	}
	s := merge.Build(u, sets, nil)
	p := s.Input["n"]
	if p.Min == nil || *p.Min != 1 {
		t.Errorf("min = %v, want doc value 1", p.Min)
	}
	if p.Max == nil || *p.Max != 10 {
		t.Errorf("max = %v, want code value 10 filling the gap", p.Max)
	}
}

func TestBuildReturnBooleanOverride(t *testing.T) {
	u := mustCallable(t, `func IsOn() bool { return true }`, "IsOn")
	sets := evidence.Sets{
		Return: evidence.ReturnFindings{
			Code:         &evidence.ReturnFinding{Type: schema.TypeInteger},
			Boolean:      true,
			BooleanScore: 7,
		},
	}
	s := merge.Build(u, sets, nil)
	if s.Output == nil || s.Output.Type != schema.TypeBoolean {
		t.Errorf("output = %+v, want boolean override", s.Output)
	}
	if s.Output.BooleanScore != 7 {
		t.Errorf("boolean score = %d, want raw score kept", s.Output.BooleanScore)
	}
}

func TestBuildNoReturnEvidence(t *testing.T) {
	u := mustCallable(t, `func Op() {}`, "Op")
	s := merge.Build(u, evidence.Sets{}, nil)
	if s.Output != nil {
		t.Errorf("output = %+v, want nil without evidence", s.Output)
	}
	if s.OutputConfidence != schema.ConfidenceNone {
		t.Errorf("output confidence = %q, want none", s.OutputConfidence)
	}
}

func TestBuildConfidenceTiers(t *testing.T) {
	u := mustCallable(t, `func Op(a string) {}`, "Op")

	rich := evidence.Sets{
		Doc: map[string]*evidence.Finding{"a": {
			Type:     schema.TypeString,
			Optional: schema.Required,
			Min:      f64Ptr(1),
			Matches:  "^x",
		}},
		Signature: map[string]*evidence.Finding{"a": {Type: schema.TypeString, Position: intPtr(0)}},
	}
	s := merge.Build(u, rich, nil)
	if !s.InputConfidence.AtLeast(schema.ConfidenceHigh) {
		t.Errorf("rich evidence confidence = %q, want high", s.InputConfidence)
	}

	sparse := evidence.Sets{
		Signature: map[string]*evidence.Finding{"a": {Type: schema.TypeUnknown, Generic: true, Position: intPtr(0)}},
	}
	s = merge.Build(u, sparse, nil)
	if s.InputConfidence.AtLeast(schema.ConfidenceMedium) {
		t.Errorf("sparse evidence confidence = %q, want below medium", s.InputConfidence)
	}

	s = merge.Build(mustCallable(t, `func Nullary() {}`, "Nullary"), evidence.Sets{}, nil)
	if s.InputConfidence != schema.ConfidenceNone {
		t.Errorf("no-parameter confidence = %q, want none", s.InputConfidence)
	}
}

func TestBuildNamedArgStyle(t *testing.T) {
	tests := []struct {
		src  string
		fn   string
		want bool
	}{
		{`func A(opts map[string]any) {}`, "A", true},
		{`func B(o *RenderOptions) {}`, "B", true},
		{`func C(a, b string) {}`, "C", false},
		{`func D(n int) {}`, "D", false},
	}
	for _, tt := range tests {
		u := mustCallable(t, tt.src, tt.fn)
		s := merge.Build(u, evidence.Sets{}, nil)
		if s.Config.NamedArgs != tt.want {
			t.Errorf("%s: named args = %v, want %v", tt.fn, s.Config.NamedArgs, tt.want)
		}
	}
}

func TestBuildEndToEnd(t *testing.T) {
	src := `
// Connect opens a session.
//
// Parameters:
//   host - string, the server
//   port - integer (1-65535), listening port
func Connect(host string, port int) error {
	if host == "" {
		return errors.New("host required")
	}
	return nil
}
`
	u := mustCallable(t, src, "Connect")
	cfg := config.DefaultConfig().Extract
	sets := evidence.Collect(u, &cfg)
	s := merge.Build(u, sets, &cfg)

	host := s.Input["host"]
	if host == nil || host.Type != schema.TypeString || host.Optional != schema.Required {
		t.Errorf("host = %+v, want required string", host)
	}
	port := s.Input["port"]
	if port == nil || port.Min == nil || *port.Min != 1 || port.Max == nil || *port.Max != 65535 {
		t.Errorf("port = %+v, want doc range merged", port)
	}
	if s.Output == nil || s.Output.Convention != schema.ConventionSentinel {
		t.Errorf("output = %+v, want sentinel convention", s.Output)
	}
	if s.InputConfidence == schema.ConfidenceNone {
		t.Error("end-to-end confidence should not be none")
	}

	ordered := s.ParamsInOrder()
	if len(ordered) != 2 || ordered[0].Name != "host" || ordered[1].Name != "port" {
		t.Errorf("ordered params = %v, want host then port", ordered)
	}
}

func findingMap(name string, f *evidence.Finding) map[string]*evidence.Finding {
	if f == nil {
		return nil
	}
	return map[string]*evidence.Finding{name: f}
}

func intPtr(i int) *int { return &i }

func f64Ptr(f float64) *float64 { return &f }
