package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/cppig/internal/config"
	"github.com/efebarandurmaz/cppig/internal/depgraph"
	"github.com/efebarandurmaz/cppig/internal/graph"
	graphneo4j "github.com/efebarandurmaz/cppig/internal/graph/neo4j"
	"github.com/efebarandurmaz/cppig/internal/metrics"
	"github.com/efebarandurmaz/cppig/internal/observability"
	"github.com/efebarandurmaz/cppig/internal/source"
	temporalmod "github.com/efebarandurmaz/cppig/internal/temporal"
	"github.com/efebarandurmaz/cppig/internal/traverse"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitLimit   = 2
)

var version = "0.1.0"

type cliOptions struct {
	configPath   string
	stats        bool
	statsJSON    bool
	verbose      bool
	otlpEndpoint string
	remote       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps its outcome to a process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, traverse.ErrLimitExceeded):
		fmt.Fprintln(stderr, err)
		return exitLimit
	case temporalmod.IsLimitExceeded(err):
		fmt.Fprintf(stderr, "%v: %v\n", traverse.ErrLimitExceeded, err)
		return exitLimit
	default:
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "cppig [flags] [--] <files...>",
		Short: "Print the #include dependency graph of C/C++ source files",
		Long: `cppig follows #include directives breadth-first from the given files and
prints every include edge it discovers as a graph.

Includes are resolved relative to the working directory, then against each
--include-path prefix in order. Files that cannot be opened are reported and
skipped.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
				return traverse.ErrNoSeeds
			}

			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
			if opts.otlpEndpoint != "" {
				cfg.Tracing.OTLPEndpoint = opts.otlpEndpoint
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if opts.remote {
				return runRemote(cmd.Context(), cfg, opts, args, stdout, stderr)
			}
			return runLocal(cmd.Context(), cfg, opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	def := config.Default()
	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringP("name", "n", def.Graph.Name, "Name of the graph")
	flags.StringP("format", "f", def.Graph.Format, "Output format ("+formatList()+")")
	flags.BoolP("silent", "s", def.Graph.Silent, "Do not report files that could not be opened")
	flags.StringArrayP("include-path", "I", nil, "Directory searched for includes not found as given (repeatable)")
	flags.Int("max-queue", def.Limits.MaxQueue, "Maximum number of pending files")
	flags.Int("max-visited", def.Limits.MaxVisited, "Maximum number of distinct files visited")
	flags.String("file-arena", def.Limits.FileArena, "Memory for the file being read")
	flags.String("graph-arena", def.Limits.GraphArena, "Memory for discovered file names")
	flags.String("log-level", def.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log-format", def.Log.Format, "Log format (text, json)")
	flags.StringVar(&opts.configPath, "config", "", "Config file path")
	flags.BoolVar(&opts.stats, "stats", false, "Print a run summary to stderr")
	flags.BoolVar(&opts.statsJSON, "stats-json", false, "Print the run summary to stderr as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log rejected include lines")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces")
	flags.BoolVar(&opts.remote, "remote", false, "Run the traversal on a cppig worker through Temporal")

	return cmd
}

func runLocal(ctx context.Context, cfg *config.Config, opts *cliOptions, files []string, stdout, stderr io.Writer) (err error) {
	logger, err := observability.NewLogger(cfg.Log.Observability(), stderr)
	if err != nil {
		return err
	}

	tp, err := initTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("tracing shutdown failed", "error", shutdownErr)
		}
	}()

	limits, err := cfg.Limits.Traverse()
	if err != nil {
		return err
	}
	format, err := depgraph.ParseFormat(cfg.Graph.Format)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	defer func() {
		if flushErr := out.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("writing graph: %w", flushErr)
		}
	}()

	emitter, err := depgraph.NewEmitter(format, out)
	if err != nil {
		return err
	}

	if cfg.Neo4j.URI != "" {
		repo, err := graphneo4j.NewNeo4j(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			return err
		}
		defer repo.Close(context.Background())
		emitter = depgraph.Multi(emitter, graph.NewSink(repo))
		logger.Debug("storing edges in neo4j", "uri", cfg.Neo4j.URI)
	}

	m := metrics.New(cfg.Graph.Name, string(format), len(files), limits)
	engine := traverse.New(source.NewReader(nil, cfg.Graph.IncludePaths), emitter, traverse.Options{
		Limits: limits,
		Silent: cfg.Graph.Silent,
		Logger: logger,
	})

	stats, err := engine.Run(ctx, cfg.Graph.Name, files)
	m.Finish(stats, err)
	if reportErr := report(m, opts, stderr); reportErr != nil {
		logger.Warn("could not write summary", "error", reportErr)
	}
	return err
}

func runRemote(ctx context.Context, cfg *config.Config, opts *cliOptions, files []string, stdout, stderr io.Writer) error {
	limits, err := cfg.Limits.Traverse()
	if err != nil {
		return err
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporalLogger(stderr, cfg),
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("cppig-%s-%d", cfg.Graph.Name, time.Now().UnixNano()),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.IncludeGraphWorkflow, temporalmod.ScanInput{
		Name:         cfg.Graph.Name,
		Files:        files,
		Format:       cfg.Graph.Format,
		IncludePaths: cfg.Graph.IncludePaths,
		Limits:       limits,
		Silent:       cfg.Graph.Silent,
	})
	if err != nil {
		return fmt.Errorf("starting workflow: %w", err)
	}

	m := metrics.New(cfg.Graph.Name, cfg.Graph.Format, len(files), limits)
	var out temporalmod.ScanOutput
	err = run.Get(ctx, &out)
	m.Finish(out.Stats, err)
	if err == nil {
		err = reportFailures(cfg, out.Failures, stderr)
	}
	if err == nil {
		if _, err = io.WriteString(stdout, out.Graph); err != nil {
			err = fmt.Errorf("writing graph: %w", err)
		}
	}
	if reportErr := report(m, opts, stderr); reportErr != nil && err == nil {
		err = reportErr
	}
	return err
}

func initTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	tcfg := observability.DefaultTracingConfig()
	tcfg.ServiceVersion = version
	tcfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	if cfg.Tracing.Environment != "" {
		tcfg.Environment = cfg.Tracing.Environment
	}
	return observability.InitTracing(ctx, tcfg)
}

func report(m *metrics.RunMetrics, opts *cliOptions, w io.Writer) error {
	if opts.statsJSON {
		data, err := m.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if opts.stats {
		m.PrintSummary(w)
	}
	return nil
}

// temporalLogger logs Temporal client messages at warn and above unless
// debugging.
// reportFailures logs the files a worker could not open the same way a local
// run does.
func reportFailures(cfg *config.Config, failures []temporalmod.FileFailure, w io.Writer) error {
	if cfg.Graph.Silent || len(failures) == 0 {
		return nil
	}
	logger, err := observability.NewLogger(cfg.Log.Observability(), w)
	if err != nil {
		return err
	}
	for _, f := range failures {
		logger.Warn("could not open file", "file", f.File, "error", f.Error)
	}
	return nil
}

func temporalLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func formatList() string {
	names := make([]string, 0, len(depgraph.Formats()))
	for _, f := range depgraph.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
