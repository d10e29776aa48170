package mutation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/format"
	"os/exec"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/source"
)

// Runner is the kill oracle. Run reports whether the project's test
// suite passed against the current state of the workspace; a non-nil
// error means the runner itself could not execute, not that tests
// failed.
type Runner interface {
	Run(ctx context.Context) (passed bool, err error)
}

// CommandRunner executes an external test command in the project
// root. Only the exit status is consulted.
type CommandRunner struct {
	Argv []string
	Dir  string
}

func (r CommandRunner) Run(ctx context.Context) (bool, error) {
	if len(r.Argv) == 0 {
		return false, fmt.Errorf("empty test command")
	}
	cmd := exec.CommandContext(ctx, r.Argv[0], r.Argv[1:]...)
	cmd.Dir = r.Dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return false, nil
	}
	return false, fmt.Errorf("running %v: %w", r.Argv, err)
}

// Result is one scored mutant. Err is set when the mutant could not
// be applied or the runner failed to execute; such mutants count
// neither killed nor survived.
type Result struct {
	Mutant *Mutant
	Killed bool
	Err    error
}

// Engine applies mutants one at a time and scores each against the
// test runner. Mutants are written only to the workspace mirror and
// reverted after scoring, so the original source is never touched.
type Engine struct {
	ws        *Workspace
	operators []Operator
	runner    Runner
	cfg       *config.MutationConfig
}

// NewEngine wires a workspace to a runner. A nil runner falls back
// to the configured test command executed in the mirrored root.
func NewEngine(ws *Workspace, runner Runner, cfg *config.MutationConfig) *Engine {
	if cfg == nil {
		cfg = &config.DefaultConfig().Mutation
	}
	if runner == nil {
		runner = CommandRunner{Argv: cfg.TestCommand, Dir: ws.Root}
	}
	return &Engine{
		ws:        ws,
		operators: DefaultOperators(),
		runner:    runner,
		cfg:       cfg,
	}
}

// Mutants scans the snapshotted target with every operator and
// applies deduplication.
func (e *Engine) Mutants() ([]*Mutant, error) {
	f, err := source.ParseSource(e.ws.Path, string(e.ws.Original()))
	if err != nil {
		return nil, err
	}
	var out []*Mutant
	for _, op := range e.operators {
		out = append(out, op.Scan(f)...)
	}
	return Deduplicate(out, e.cfg.FastDedup), nil
}

// Run scores every mutant in enumeration order. Per-mutant failures
// are recorded in the result and never abort the run; only context
// cancellation or a failed restore stops early.
func (e *Engine) Run(ctx context.Context) ([]Result, error) {
	mutants, err := e.Mutants()
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(mutants))
	for _, m := range mutants {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		results = append(results, e.score(ctx, m))
	}
	return results, nil
}

// score applies one mutant, consults the runner, and restores the
// original. A test failure means the mutant was killed.
func (e *Engine) score(ctx context.Context, m *Mutant) Result {
	f, err := source.ParseSource(e.ws.Path, string(e.ws.Original()))
	if err != nil {
		return Result{Mutant: m, Err: err}
	}
	if err := m.Transform(f); err != nil {
		return Result{Mutant: m, Err: err}
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, f.Fset, f.Ast); err != nil {
		return Result{Mutant: m, Err: fmt.Errorf("rendering mutant %s: %w", m.ID, err)}
	}
	if err := e.ws.WriteMutated(buf.Bytes()); err != nil {
		return Result{Mutant: m, Err: err}
	}
	passed, runErr := e.runner.Run(ctx)
	if err := e.ws.Restore(); err != nil {
		return Result{Mutant: m, Err: err}
	}
	if runErr != nil {
		return Result{Mutant: m, Err: runErr}
	}
	return Result{Mutant: m, Killed: !passed}
}
