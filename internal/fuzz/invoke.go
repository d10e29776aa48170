package fuzz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"reflect"
	"regexp"
	"strings"

	"github.com/scry-dev/scry/internal/schema"
)

// Invocation is the outcome of one error-isolated target call.
type Invocation struct {
	// Output is the returned value, when the call produced one.
	Output Value

	// Err carries a hard failure: a returned error, a recovered
	// panic, or a non-zero subprocess exit.
	Err error

	// Warnings are suspicious diagnostic lines that did not amount
	// to a hard failure.
	Warnings []string
}

// Failed reports whether the invocation should be considered a
// failure: a hard error, or suspicious warnings with no error.
func (inv Invocation) Failed() bool {
	return inv.Err != nil || len(inv.Warnings) > 0
}

// Message renders the failure for a bug record.
func (inv Invocation) Message() string {
	if inv.Err != nil {
		return inv.Err.Error()
	}
	return strings.Join(inv.Warnings, "; ")
}

// Invoker executes the target once per input. Implementations
// isolate errors: a misbehaving target never aborts the fuzzing
// loop.
type Invoker interface {
	Invoke(ctx context.Context, input Value) Invocation
}

// warningRe matches diagnostic content treated as a soft failure
// when no hard error occurred.
var warningRe = regexp.MustCompile(`(?i)uninitialized|undefined|invalid`)

// Func invokes an in-process Go function through reflection. Named
// inputs are bound to positional arguments using the schema's
// parameter order.
type Func struct {
	fn     reflect.Value
	schema *schema.Schema
}

// NewFunc wraps a function value. The dynamic type must be a func;
// anything else is a setup error.
func NewFunc(fn any, s *schema.Schema) (*Func, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("target is %s, not a function", v.Kind())
	}
	return &Func{fn: v, schema: s}, nil
}

// Invoke calls the wrapped function. Panics are recovered into the
// invocation error; a trailing error result becomes the error.
func (f *Func) Invoke(ctx context.Context, input Value) (inv Invocation) {
	defer func() {
		if r := recover(); r != nil {
			inv.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	args, err := f.bindArgs(input)
	if err != nil {
		inv.Err = err
		return inv
	}

	results := f.fn.Call(args)
	for i, res := range results {
		if i == len(results)-1 && res.Type() == errType {
			if !res.IsNil() {
				inv.Err = res.Interface().(error)
			}
			continue
		}
		if inv.Output == nil {
			inv.Output = res.Interface()
		}
	}
	if s, ok := inv.Output.(string); ok && inv.Err == nil {
		if warningRe.MatchString(s) {
			inv.Warnings = append(inv.Warnings, s)
		}
	}
	return inv
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// bindArgs maps a named input to the function's positional
// arguments via the schema parameter order, converting generated
// values to the declared argument types.
func (f *Func) bindArgs(input Value) ([]reflect.Value, error) {
	named, ok := input.(map[string]Value)
	if !ok {
		// Single positional value.
		if f.fn.Type().NumIn() != 1 {
			return nil, fmt.Errorf("positional input needs a unary function")
		}
		return []reflect.Value{convert(input, f.fn.Type().In(0))}, nil
	}

	params := f.schema.ParamsInOrder()
	t := f.fn.Type()
	if len(params) != t.NumIn() {
		return nil, fmt.Errorf("schema has %d parameters, function takes %d",
			len(params), t.NumIn())
	}
	args := make([]reflect.Value, t.NumIn())
	for i, p := range params {
		args[i] = convert(named[p.Name], t.In(i))
	}
	return args, nil
}

// convert coerces a generated value into the declared argument
// type, falling back to the type's zero value when the shapes do
// not line up.
func convert(v Value, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	if rv.Kind() == reflect.Slice && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(convert(rv.Index(i).Interface(), t.Elem()))
		}
		return out
	}
	if rv.Kind() == reflect.Map && t.Kind() == reflect.Map {
		out := reflect.MakeMap(t)
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(
				convert(iter.Key().Interface(), t.Key()),
				convert(iter.Value().Interface(), t.Elem()))
		}
		return out
	}
	return reflect.Zero(t)
}

// Command invokes an external target once per input: the input is
// written to stdin as JSON, a non-zero exit is the hard failure
// signal, and stderr is scanned for suspicious diagnostics.
type Command struct {
	// Argv is the target command line.
	Argv []string
}

// Invoke runs the target subprocess under the context.
func (c *Command) Invoke(ctx context.Context, input Value) Invocation {
	var inv Invocation
	if len(c.Argv) == 0 {
		inv.Err = fmt.Errorf("empty target command")
		return inv
	}

	payload, err := json.Marshal(input)
	if err != nil {
		inv.Err = fmt.Errorf("encoding input: %w", err)
		return inv
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		inv.Err = fmt.Errorf("target failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
		return inv
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		var decoded Value
		if json.Unmarshal([]byte(out), &decoded) == nil {
			inv.Output = decoded
		} else {
			inv.Output = out
		}
	}
	for _, line := range strings.Split(stderr.String(), "\n") {
		if warningRe.MatchString(line) {
			inv.Warnings = append(inv.Warnings, strings.TrimSpace(line))
		}
	}
	return inv
}
