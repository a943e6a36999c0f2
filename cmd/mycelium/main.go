// Command mycelium runs the six-phase repository analysis pipeline and
// writes its JSON artifact to disk. Wiring only: parse flags, build
// config.Config, run pipeline.Run, hand the result to
// internal/artifact. None of the six phases' logic lives here, matching
// the teacher's cmd/aleutian/main.go (rootCmd.Execute(), flags parsed
// into a package-level config struct, the actual work delegated to
// internal packages).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aleutian-oss/mycelium/internal/artifact"
	"github.com/aleutian-oss/mycelium/internal/config"
	"github.com/aleutian-oss/mycelium/internal/pipeline"
	"github.com/aleutian-oss/mycelium/internal/telemetry"
)

// Exit codes per spec.md §6.
const (
	exitSuccess       = 0
	exitInvalidArgs   = 1
	exitIOFailure     = 2
	exitInternalError = 3
)

var (
	flagOutput       string
	flagLanguages    string
	flagResolution   float64
	flagMaxProcesses int
	flagMaxDepth     int
	flagExclude      string
	flagVerbose      bool
	flagQuiet        bool
	flagConfig       string
	flagMetricsAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "mycelium [repo-path]",
	Short: "Analyze a repository's structure, call graph, and execution processes",
	Long:  `mycelium runs a deterministic, single-shot static analysis pipeline over a repository and emits one JSON artifact describing its file/symbol topology, a confidence-scored call graph, communities, and traced entry-point processes.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return &configError{err}
		}
		return nil
	},
	RunE: runAnalyze,
}

func init() {
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "destination artifact path (default <repo_name>.mycelium.json)")
	rootCmd.Flags().StringVarP(&flagLanguages, "languages", "l", "", "comma list of language tags to restrict parsing to (default: auto)")
	rootCmd.Flags().Float64Var(&flagResolution, "resolution", 1.0, "initial Louvain resolution (gamma)")
	rootCmd.Flags().IntVar(&flagMaxProcesses, "max-processes", 75, "Phase 6 process cap")
	rootCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 10, "Phase 6 BFS depth cap")
	rootCmd.Flags().StringVar(&flagExclude, "exclude", "", "comma list of extra ignore glob patterns")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "print per-phase progress")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress all but error output")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file (default: <repo-path>/.mycelium.yaml if present)")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics for this run on this address (e.g. :9090) until interrupted")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &configError{err} })
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to spec.md §6's exit code table. A
// *os.PathError or equivalent I/O failure from Config.Validate maps to
// 2; everything else from flag/arg handling to 1; errors returned by
// pipeline.Run (e.g. context cancellation) to 3.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *configError:
		return exitInvalidArgs
	case *ioError:
		return exitIOFailure
	default:
		return exitInternalError
	}
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type ioError struct{ err error }

func (e *ioError) Error() string { return e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.RepoRoot = args[0]

	if err := applyFileConfig(cmd, &cfg); err != nil {
		return &configError{err}
	}
	applyFlagOverrides(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return &ioError{err}
		}
		return &configError{err}
	}

	configureLogging(cfg)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Configure(ctx, "mycelium", rootCmd.Version)
	if err != nil {
		return &ioError{fmt.Errorf("configuring telemetry: %w", err)}
	}
	defer func() { _ = shutdownTelemetry(ctx) }()

	progress := progressReporter(cfg)
	result, err := pipeline.Run(ctx, cfg.ToPipelineOptions(progress))
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	a := artifact.Build(result, cfg.RepoRoot, time.Now())
	outPath := cfg.OutputPath()
	if err := artifact.WriteFile(outPath, a); err != nil {
		return &ioError{fmt.Errorf("writing artifact: %w", err)}
	}

	if !cfg.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d files, %d symbols, %d calls, %d communities, %d processes)\n",
			outPath, a.Stats.Files, a.Stats.Symbols, a.Stats.Calls, a.Stats.Communities, a.Stats.Processes)
	}

	if flagMetricsAddr != "" {
		if err := serveMetrics(cmd, a, result); err != nil {
			return &ioError{fmt.Errorf("serving metrics: %w", err)}
		}
	}
	return nil
}

// applyFileConfig loads an optional YAML config file onto cfg: the
// explicit --config path if given, else "<repo-path>/.mycelium.yaml"
// when it exists. Absence of an auto-discovered file is not an error;
// an unreadable or malformed explicit --config path is.
func applyFileConfig(cmd *cobra.Command, cfg *config.Config) error {
	path := flagConfig
	if path == "" {
		candidate := filepath.Join(cfg.RepoRoot, ".mycelium.yaml")
		if _, err := os.Stat(candidate); err != nil {
			return nil
		}
		path = candidate
	}
	fc, err := config.LoadFile(path)
	if err != nil {
		if flagConfig == "" {
			return nil // auto-discovered candidate vanished or isn't readable; not fatal
		}
		return err
	}
	*cfg = cfg.ApplyFile(fc)
	return nil
}

// applyFlagOverrides lets explicitly-passed flags win over both the
// Default() baseline and anything applyFileConfig set, per flag
// precedence defaults < file < CLI flags.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = flagOutput
	}
	if flags.Changed("languages") {
		cfg.Languages = config.ParseLanguages(flagLanguages)
	}
	if flags.Changed("resolution") {
		cfg.Resolution = flagResolution
	}
	if flags.Changed("max-processes") {
		cfg.MaxProcesses = flagMaxProcesses
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = flagMaxDepth
	}
	if flags.Changed("exclude") {
		cfg.Exclude = config.ParseGlobs(flagExclude)
	}
	cfg.Verbose = flagVerbose
	cfg.Quiet = flagQuiet
}

// serveMetrics exposes this run's stats as Prometheus metrics on
// --metrics-addr until the process receives an interrupt, so an operator
// can scrape a one-off run before the CLI exits.
func serveMetrics(cmd *cobra.Command, a *artifact.Artifact, result *pipeline.Result) error {
	sink, err := telemetry.NewSink(telemetry.DefaultSinkConfig())
	if err != nil {
		return err
	}
	sink.Observe(telemetry.Stats{
		Files:           a.Stats.Files,
		Folders:         a.Stats.Folders,
		Symbols:         a.Stats.Symbols,
		Imports:         a.Stats.Imports,
		Calls:           a.Stats.Calls,
		Communities:     a.Stats.Communities,
		Processes:       a.Stats.Processes,
		DurationSeconds: result.Duration.Seconds(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Handler())
	server := &http.Server{Addr: flagMetricsAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on http://%s/metrics (ctrl-c to exit)\n", flagMetricsAddr)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
	}
	return nil
}

// configureLogging sets the default slog level from --verbose/--quiet.
// isatty gates whether the handler adds color-friendly formatting — a
// non-terminal destination (redirected to a file, piped to another
// process) always gets the plain, parseable form.
func configureLogging(cfg config.Config) {
	level := slog.LevelInfo
	switch {
	case cfg.Quiet:
		level = slog.LevelError
	case cfg.Verbose:
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func progressReporter(cfg config.Config) pipeline.ProgressFunc {
	if cfg.Quiet {
		return nil
	}
	return func(p pipeline.Progress) {
		if cfg.Verbose {
			slog.Debug("phase progress", slog.String("phase", p.Phase.String()), slog.Int("files_processed", p.FilesProcessed), slog.Int("files_total", p.FilesTotal))
		}
	}
}
