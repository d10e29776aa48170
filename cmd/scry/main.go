package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/evidence"
	"github.com/scry-dev/scry/internal/fuzz"
	"github.com/scry-dev/scry/internal/merge"
	"github.com/scry-dev/scry/internal/mutation"
	"github.com/scry-dev/scry/internal/objects"
	"github.com/scry-dev/scry/internal/report"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "scry",
		Short: "Scry — schema extraction, fuzzing, and mutation scoring",
		Long: `Scry statically derives confidence-scored test schemas for Go
callables by merging evidence from documentation, code patterns,
and signatures, then uses those schemas to drive coverage-guided
fuzzing and source-mutation scoring.`,
		Version: version,
	}

	root.AddCommand(newExtractCmd())
	root.AddCommand(newFuzzCmd())
	root.AddCommand(newMutateCmd())
	root.AddCommand(newSchemaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: an explicit path,
// else .scry.yaml in the working directory, else defaults.
func loadConfig(path string) (*config.ScryConfig, error) {
	if path == "" {
		if _, err := os.Stat(".scry.yaml"); err != nil {
			return config.DefaultConfig(), nil
		}
		path = ".scry.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// extractParams holds the parsed flags for the extract command.
type extractParams struct {
	pkgPath           string
	format            string
	function          string
	includeUnexported bool
	interactive       bool
	configPath        string
	outDir            string
	stdout            io.Writer
	stderr            io.Writer
}

// runExtract is the extracted, testable body of the extract command.
func runExtract(p extractParams) error {
	if p.format != "text" && p.format != "json" && p.format != "html" {
		return fmt.Errorf("invalid format %q: must be 'text', 'json', or 'html'", p.format)
	}
	if p.format == "html" {
		return fmt.Errorf("HTML report format is not yet implemented")
	}

	cfg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}

	logger.Info("extracting schemas", "pkg", p.pkgPath)
	res, err := source.Load(p.pkgPath)
	if err != nil {
		return err
	}

	units := source.Extract(res, source.Options{
		IncludeUnexported: p.includeUnexported,
		FunctionFilter:    p.function,
	})
	if len(units) == 0 {
		if p.function != "" {
			return fmt.Errorf("function %q not found in package %q", p.function, p.pkgPath)
		}
		logger.Warn("no callables found to extract")
		return nil
	}

	scope := objects.ScopeFromResult(res, units)
	schemas := make([]*schema.Schema, 0, len(units))
	for _, u := range units {
		sets := evidence.Collect(u, &cfg.Extract)
		sc := merge.Build(u, sets, &cfg.Extract)
		sc.New = scope.Resolve(u)
		schemas = append(schemas, sc)
	}

	logger.Info("extraction complete", "schemas", len(schemas))

	if p.outDir != "" {
		if err := saveSchemas(p.outDir, schemas); err != nil {
			return err
		}
	}

	if p.interactive {
		return runInteractiveExtract(schemas)
	}

	switch p.format {
	case "json":
		return report.WriteJSON(p.stdout, schemas, version)
	default:
		return report.WriteText(p.stdout, schemas)
	}
}

// saveSchemas persists one JSON document per callable into the
// output directory.
func saveSchemas(dir string, schemas []*schema.Schema) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	for _, sc := range schemas {
		path := filepath.Join(dir, sc.Function+".json")
		if err := schema.SaveFile(path, sc); err != nil {
			return err
		}
	}
	return nil
}

func newExtractCmd() *cobra.Command {
	var (
		function          string
		format            string
		includeUnexported bool
		interactive       bool
		configPath        string
		outDir            string
	)

	cmd := &cobra.Command{
		Use:   "extract [package]",
		Short: "Derive test schemas for Go callables",
		Long: `Extract a Go package (or specific function) and derive a
confidence-scored test schema for each callable from its
documentation, code patterns, and signature.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(extractParams{
				pkgPath:           args[0],
				format:            format,
				function:          function,
				includeUnexported: includeUnexported,
				interactive:       interactive,
				configPath:        configPath,
				outDir:            outDir,
				stdout:            os.Stdout,
				stderr:            os.Stderr,
			})
		},
	}

	cmd.Flags().StringVarP(&function, "function", "f", "",
		"extract a specific function (default: all exported)")
	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text, json, or html")
	cmd.Flags().BoolVar(&includeUnexported, "include-unexported", false,
		"include unexported functions")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"launch interactive TUI for browsing schemas")
	cmd.Flags().StringVar(&configPath, "config", "",
		"config file (default: .scry.yaml if present)")
	cmd.Flags().StringVar(&outDir, "out", "",
		"directory to write per-callable schema JSON files")

	return cmd
}

// fuzzParams holds the parsed flags for the fuzz command.
type fuzzParams struct {
	schemaPath   string
	targetCmd    []string
	corpusPath   string
	coverProfile string
	iterations   int
	seed         int64
	configPath   string
	stdout       io.Writer
	stderr       io.Writer
}

// runFuzz is the extracted, testable body of the fuzz command.
func runFuzz(p fuzzParams) error {
	if len(p.targetCmd) == 0 {
		return fmt.Errorf("no target command: set --cmd to the harness argv")
	}

	cfg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}
	if p.iterations > 0 {
		cfg.Fuzz.Iterations = p.iterations
	}

	sc, err := schema.LoadFile(p.schemaPath)
	if err != nil {
		return err
	}
	if !sc.Config.Fuzz {
		logger.Warn("fuzzing disabled for callable", "function", sc.Function)
		return nil
	}

	seed := p.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var cov fuzz.Coverage = fuzz.NoCoverage{}
	if p.coverProfile != "" {
		cov = fuzz.NewProfileCoverage(p.coverProfile)
	}

	corpusPath := p.corpusPath
	if corpusPath == "" {
		corpusPath = corpusPathFor(p.schemaPath)
	}

	f := fuzz.New(sc, &fuzz.Command{Argv: p.targetCmd}, cov, &cfg.Fuzz, seed)
	if prev, err := fuzz.LoadCorpus(corpusPath); err == nil {
		logger.Info("resuming corpus", "path", corpusPath,
			"entries", len(prev.Entries), "bugs", len(prev.Bugs))
		f.Resume(prev)
	}

	logger.Info("fuzzing", "function", sc.Function,
		"iterations", cfg.Fuzz.Iterations, "seed", seed)
	stats, err := f.Run(context.Background())
	if err != nil {
		return err
	}

	if err := f.Corpus().Save(corpusPath); err != nil {
		return err
	}

	logger.Info("fuzzing complete",
		"executed", stats.Executed,
		"retained", stats.Retained,
		"bugs", stats.Bugs)
	fmt.Fprintf(p.stdout, "%d iteration(s), %d input(s) retained, %d bug(s)\n",
		stats.Executed, stats.Retained, stats.Bugs)
	return nil
}

// corpusPathFor derives the default corpus location from the schema
// file name, e.g. Resize.json -> Resize.corpus.json.
func corpusPathFor(schemaPath string) string {
	ext := filepath.Ext(schemaPath)
	return schemaPath[:len(schemaPath)-len(ext)] + ".corpus.json"
}

func newFuzzCmd() *cobra.Command {
	var (
		targetCmd    []string
		corpusPath   string
		coverProfile string
		iterations   int
		seed         int64
		configPath   string
	)

	cmd := &cobra.Command{
		Use:   "fuzz [schema.json]",
		Short: "Fuzz a callable using its derived schema",
		Long: `Run schema-directed, coverage-guided fuzzing against a target
harness. The harness reads a JSON input document on stdin and
exits non-zero on failure; interesting inputs accumulate in a
persistent corpus next to the schema file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzz(fuzzParams{
				schemaPath:   args[0],
				targetCmd:    targetCmd,
				corpusPath:   corpusPath,
				coverProfile: coverProfile,
				iterations:   iterations,
				seed:         seed,
				configPath:   configPath,
				stdout:       os.Stdout,
				stderr:       os.Stderr,
			})
		},
	}

	cmd.Flags().StringSliceVar(&targetCmd, "cmd", nil,
		"target harness argv (reads JSON input on stdin)")
	cmd.Flags().StringVar(&corpusPath, "corpus", "",
		"corpus file (default: derived from schema file name)")
	cmd.Flags().StringVar(&coverProfile, "coverprofile", "",
		"coverage profile refreshed by the harness per run")
	cmd.Flags().IntVar(&iterations, "iterations", 0,
		"iteration count (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 0,
		"RNG seed (0 = time-based)")
	cmd.Flags().StringVar(&configPath, "config", "",
		"config file (default: .scry.yaml if present)")

	return cmd
}

// mutateParams holds the parsed flags for the mutate command.
type mutateParams struct {
	target     string
	root       string
	format     string
	testCmd    []string
	schemaPath string
	configPath string
	runner     mutation.Runner
	stdout     io.Writer
	stderr     io.Writer
}

// runMutate is the extracted, testable body of the mutate command.
func runMutate(p mutateParams) error {
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}

	cfg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}
	if len(p.testCmd) > 0 {
		cfg.Mutation.TestCommand = p.testCmd
	}

	if p.schemaPath != "" {
		sc, err := schema.LoadFile(p.schemaPath)
		if err != nil {
			return err
		}
		if !sc.Config.Mutation {
			logger.Warn("mutation disabled for callable", "function", sc.Function)
			return nil
		}
	}

	ws, err := mutation.NewWorkspace(p.root, p.target)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logger.Warn("removing workspace mirror", "err", err)
		}
	}()

	eng := mutation.NewEngine(ws, p.runner, &cfg.Mutation)
	logger.Info("scoring mutants", "target", p.target)
	results, err := eng.Run(context.Background())
	if err != nil {
		return err
	}

	rep := mutation.BuildReport(results)
	for _, res := range results {
		if res.Err != nil {
			logger.Warn("mutant not scored", "id", res.Mutant.ID, "err", res.Err)
		}
	}
	logger.Info("mutation complete",
		"total", rep.Total, "killed", rep.Killed, "score", rep.Score)

	switch p.format {
	case "json":
		return mutation.WriteJSON(p.stdout, rep)
	default:
		return report.WriteMutationText(p.stdout, rep)
	}
}

func newMutateCmd() *cobra.Command {
	var (
		root       string
		format     string
		testCmd    []string
		schemaPath string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "mutate [file]",
		Short: "Score a test suite by mutating one source file",
		Long: `Apply semantic mutations to a source file one at a time and run
the test suite against each mutant. A failing suite kills the
mutant; survivors point at untested behavior. The original file
is restored after every mutant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting working directory: %w", err)
				}
				root = wd
			}
			return runMutate(mutateParams{
				target:     args[0],
				root:       root,
				format:     format,
				testCmd:    testCmd,
				schemaPath: schemaPath,
				configPath: configPath,
				stdout:     os.Stdout,
				stderr:     os.Stderr,
			})
		},
	}

	cmd.Flags().StringVar(&root, "root", "",
		"project root the target file belongs to (default: cwd)")
	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")
	cmd.Flags().StringSliceVar(&testCmd, "test-cmd", nil,
		"test runner argv (default: go test ./...)")
	cmd.Flags().StringVar(&schemaPath, "schema", "",
		"schema file whose mutation toggle gates the run")
	cmd.Flags().StringVar(&configPath, "config", "",
		"config file (default: .scry.yaml if present)")

	return cmd
}

func newSchemaCmd() *cobra.Command {
	var doc string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print an embedded JSON Schema document",
		Long: `Print one of the JSON Schema (Draft 2020-12) documents that
describe Scry's persisted files: callable schemas, fuzzing
corpora, or mutation reports. Useful for validating output or
generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch doc {
			case "schema":
				text = schema.SchemaDoc
			case "corpus":
				text = schema.CorpusDoc
			case "mutation-report":
				text = schema.MutationReportDoc
			default:
				return fmt.Errorf("invalid document %q: must be 'schema', 'corpus', or 'mutation-report'", doc)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVar(&doc, "doc", "schema",
		"document to print: schema, corpus, or mutation-report")

	return cmd
}
