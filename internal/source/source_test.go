package source_test

import (
	"strings"
	"testing"

	"github.com/scry-dev/scry/internal/source"
)

const fixtureSrc = `package fixture

import "errors"

// Resize scales an image.
func Resize(width int, height int) error {
	if width < 1 {
		return errors.New("width must be positive")
	}
	if height < 1 {
		return errors.New("height must be positive")
	}
	return nil
}

func helper(a, b string) {}

func SetupSuite() {}

func init() {}

type Store struct{ n int }

// Count returns the stored count.
func (s *Store) Count() int {
	return s.n
}
`

func parseFixture(t *testing.T) *source.File {
	t.Helper()
	f, err := source.ParseSource("fixture.go", fixtureSrc)
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	return f
}

func TestCallables_ExtractsAllFuncDecls(t *testing.T) {
	f := parseFixture(t)
	units := f.Callables()
	if len(units) != 5 {
		t.Fatalf("Callables() returned %d units, want 5", len(units))
	}
}

func TestCallable_FieldPopulation(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("Resize")
	if u == nil {
		t.Fatal("Resize not found")
	}

	if u.Doc != "Resize scales an image." {
		t.Errorf("Doc = %q", u.Doc)
	}
	if len(u.Params) != 2 {
		t.Fatalf("Params = %d, want 2", len(u.Params))
	}
	if u.Params[0].Name != "width" || u.Params[0].TypeExpr != "int" || u.Params[0].Position != 0 {
		t.Errorf("Params[0] = %+v", u.Params[0])
	}
	if u.Kind != source.KindPlain {
		t.Errorf("Kind = %s, want plain", u.Kind)
	}
	if !strings.Contains(u.Body, "width must be positive") {
		t.Errorf("Body does not contain function source: %q", u.Body)
	}
}

func TestCallable_MultiNameParams(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("helper")
	if u == nil {
		t.Fatal("helper not found")
	}
	if len(u.Params) != 2 {
		t.Fatalf("Params = %d, want 2 (multi-name field expansion)", len(u.Params))
	}
	if u.Params[1].Name != "b" || u.Params[1].Position != 1 {
		t.Errorf("Params[1] = %+v", u.Params[1])
	}
}

func TestClassifyKind(t *testing.T) {
	f := parseFixture(t)

	tests := []struct {
		name string
		want source.Kind
	}{
		{"Resize", source.KindPlain},
		{"SetupSuite", source.KindSetup},
		{"init", source.KindInit},
	}
	for _, tt := range tests {
		u := f.Callable(tt.name)
		if u == nil {
			t.Fatalf("%s not found", tt.name)
		}
		if u.Kind != tt.want {
			t.Errorf("%s Kind = %s, want %s", tt.name, u.Kind, tt.want)
		}
	}
}

func TestQualifiedName_Method(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("Count")
	if u == nil {
		t.Fatal("Count not found")
	}
	if u.Receiver != "*Store" {
		t.Errorf("Receiver = %q, want *Store", u.Receiver)
	}
	if got := u.QualifiedName(); got != "(*Store).Count" {
		t.Errorf("QualifiedName() = %q", got)
	}
}

func TestQueries_IfAndReturnStatements(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("Resize")

	if got := len(u.IfStmts()); got != 2 {
		t.Errorf("IfStmts() = %d, want 2", got)
	}
	if got := len(u.ReturnStmts()); got != 3 {
		t.Errorf("ReturnStmts() = %d, want 3", got)
	}
	if got := len(u.Comparisons()); got != 2 {
		t.Errorf("Comparisons() = %d, want 2", got)
	}
}

func TestFailsFast_GuardClauses(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("Resize")

	guards := u.IfStmts()
	for i, g := range guards {
		if !source.FailsFast(g.Body) {
			t.Errorf("guard %d should be a failure path", i)
		}
	}
}

func TestMentionsError_ExtractsMessage(t *testing.T) {
	f := parseFixture(t)
	u := f.Callable("Resize")

	msg, ok := source.MentionsError(u, u.IfStmts()[0].Body)
	if !ok {
		t.Fatal("expected error message in first guard")
	}
	if msg != "width must be positive" {
		t.Errorf("message = %q", msg)
	}
}

func TestReturnStmts_SkipsFuncLits(t *testing.T) {
	src := `package p

func Outer() int {
	f := func() int { return 1 }
	return f()
}
`
	file, err := source.ParseSource("lit.go", src)
	if err != nil {
		t.Fatal(err)
	}
	u := file.Callable("Outer")
	if got := len(u.ReturnStmts()); got != 1 {
		t.Errorf("ReturnStmts() = %d, want 1 (func lit returns excluded)", got)
	}
}
