package objects_test

import (
	"testing"

	"github.com/scry-dev/scry/internal/objects"
	"github.com/scry-dev/scry/internal/source"
)

func mustScope(t *testing.T, src string) *objects.Scope {
	t.Helper()
	f, err := source.ParseSource("fixture.go", "package fixture\n\n"+src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return objects.ScopeFromFile(f)
}

func resolve(t *testing.T, src, name string) (*objects.Scope, *source.CallableUnit) {
	t.Helper()
	sc := mustScope(t, src)
	f, _ := source.ParseSource("fixture.go", "package fixture\n\n"+src)
	u := f.Callable(name)
	if u == nil {
		t.Fatalf("callable %q not found", name)
	}
	return sc, u
}

func TestResolveFactoryByName(t *testing.T) {
	src := `
type Store struct{ path string }

func NewStore(path string) *Store { return &Store{path: path} }
`
	sc, u := resolve(t, src, "NewStore")
	if inst := sc.Resolve(u); inst != nil {
		t.Errorf("factory resolved to %+v, want nil", inst)
	}
}

func TestResolveFactoryByReturnShape(t *testing.T) {
	src := `
type Cache struct{}

func freshCache() *Cache { return &Cache{} }
`
	sc, u := resolve(t, src, "freshCache")
	if inst := sc.Resolve(u); inst != nil {
		t.Errorf("construction-returning function resolved to %+v, want nil", inst)
	}
}

func TestResolveSingletonAccessor(t *testing.T) {
	src := `
type registry struct{}

var shared *registry

func SharedRegistry() *registry {
	if shared == nil {
		shared = &registry{}
	}
	return shared
}
`
	sc, u := resolve(t, src, "SharedRegistry")
	if inst := sc.Resolve(u); inst != nil {
		t.Errorf("singleton accessor resolved to %+v, want nil", inst)
	}
}

func TestResolveInstanceMethod(t *testing.T) {
	src := `
type Queue struct{ items []string }

func NewQueue(capacity int, label string) *Queue {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	if label == "" {
		label = "default"
	}
	return &Queue{}
}

func (q *Queue) Len() int { return len(q.items) }
`
	sc, u := resolve(t, src, "Len")
	inst := sc.Resolve(u)
	if inst == nil {
		t.Fatal("instance method should require construction")
	}
	if inst.Class != "Queue" {
		t.Errorf("class = %q, want Queue", inst.Class)
	}
	if inst.External {
		t.Error("locally declared class should not be external")
	}
	if len(inst.Params) != 2 {
		t.Fatalf("constructor params = %v, want 2", inst.Params)
	}
	if len(inst.Required) != 1 || inst.Required[0] != "capacity" {
		t.Errorf("required = %v, want [capacity]", inst.Required)
	}
	if len(inst.Optional) != 1 || inst.Optional[0] != "label" {
		t.Errorf("optional = %v, want [label]", inst.Optional)
	}
}

func TestResolvePointerAndValueReceiverAgree(t *testing.T) {
	src := `
type Counter struct{ n int }

func (c *Counter) Inc()     { c.n++ }
func (c Counter) Value() int { return c.n }
`
	sc, inc := resolve(t, src, "Inc")
	ptr := sc.Resolve(inc)
	sc2, val := resolve(t, src, "Value")
	plain := sc2.Resolve(val)
	if ptr == nil || plain == nil {
		t.Fatal("both receiver forms should require construction")
	}
	if ptr.Class != "Counter" || plain.Class != "Counter" {
		t.Errorf("classes = %q/%q, want Counter for both", ptr.Class, plain.Class)
	}
	if ptr.External || plain.External {
		t.Error("locally declared receiver class should not be external")
	}
}

func TestResolveEmbeddingSubstitution(t *testing.T) {
	src := `
type Base struct{}

func NewBase() *Base { return &Base{} }

type Derived struct {
	*Base
}

func (d *Derived) Run() {}
`
	sc, u := resolve(t, src, "Run")
	inst := sc.Resolve(u)
	if inst == nil {
		t.Fatal("method on embedding type should require construction")
	}
	if inst.Class != "Base" {
		t.Errorf("class = %q, want embedded parent Base when no own constructor", inst.Class)
	}
}

func TestResolveExternalReceiver(t *testing.T) {
	src := `
func Touch(c *Client) {}

func (c *Client) ping() {}
`
	sc, u := resolve(t, src, "ping")
	inst := sc.Resolve(u)
	if inst == nil {
		t.Fatal("method on undeclared type should require construction")
	}
	if !inst.External {
		t.Error("undeclared receiver class should be external")
	}
	if inst.Class != "Client" {
		t.Errorf("class = %q, want Client", inst.Class)
	}
}

func TestResolveExternalFallback(t *testing.T) {
	src := `
func Publish(topic string) error {
	c := mq.NewConn("localhost")
	return c.Send(topic)
}
`
	sc, u := resolve(t, src, "Publish")
	inst := sc.Resolve(u)
	if inst == nil {
		t.Fatal("external construction should be reported")
	}
	if inst.Class != "Conn" || !inst.External {
		t.Errorf("got %+v, want external Conn", inst)
	}
}

func TestResolvePureFunction(t *testing.T) {
	src := `
func Add(a, b int) int { return a + b }
`
	sc, u := resolve(t, src, "Add")
	if inst := sc.Resolve(u); inst != nil {
		t.Errorf("pure function resolved to %+v, want nil", inst)
	}
}
