package temporal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/cppig/internal/arena"
	"github.com/efebarandurmaz/cppig/internal/depgraph"
	"github.com/efebarandurmaz/cppig/internal/observability"
	"github.com/efebarandurmaz/cppig/internal/source"
	"github.com/efebarandurmaz/cppig/internal/traverse"
)

// Application error types returned by ScanActivity.
const (
	errLimitExceeded = "LimitExceeded"
	errNoSeeds       = "NoSeeds"
	errBadInput      = "BadInput"
)

var (
	logger  = slog.Default()
	metrics *observability.ScanMetrics
)

// SetLogger replaces the logger used by activities (called during worker setup).
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// SetMetrics enables Prometheus recording of scans.
func SetMetrics(m *observability.ScanMetrics) {
	metrics = m
}

// ScanActivity traverses the include graph on the worker's filesystem and
// returns the rendered graph. Memory limit failures are not retried.
func ScanActivity(ctx context.Context, input ScanInput) (ScanOutput, error) {
	format, err := depgraph.ParseFormat(input.Format)
	if err != nil {
		return ScanOutput{}, sdktemporal.NewNonRetryableApplicationError(err.Error(), errBadInput, err)
	}

	var buf bytes.Buffer
	emitter, err := depgraph.NewEmitter(format, &buf)
	if err != nil {
		return ScanOutput{}, sdktemporal.NewNonRetryableApplicationError(err.Error(), errBadInput, err)
	}

	reader := &failureRecorder{Reader: source.NewReader(nil, input.IncludePaths)}
	engine := traverse.New(reader, emitter, traverse.Options{
		Limits: input.Limits,
		Silent: input.Silent,
		Logger: logger.With("graph", input.Name),
	})

	var record func(result string, visited, failed, edges int)
	if metrics != nil {
		record = metrics.StartScan()
	}

	stats, err := engine.Run(ctx, input.Name, input.Files)
	result := observability.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, traverse.ErrLimitExceeded):
		result = observability.ResultLimitExceeded
		err = sdktemporal.NewNonRetryableApplicationError(err.Error(), errLimitExceeded, err, stats)
	case errors.Is(err, traverse.ErrNoSeeds):
		result = observability.ResultError
		err = sdktemporal.NewNonRetryableApplicationError(err.Error(), errNoSeeds, err)
	default:
		result = observability.ResultError
	}
	if record != nil {
		record(result, stats.FilesVisited, stats.FilesFailed, stats.Edges)
	}
	if err != nil {
		return ScanOutput{}, err
	}
	return ScanOutput{Graph: buf.String(), Stats: stats, Failures: reader.failures}, nil
}

// failureRecorder keeps the open failures so the client can report them.
type failureRecorder struct {
	traverse.Reader
	failures []FileFailure
}

func (r *failureRecorder) ReadFile(path string, dst *arena.Arena) ([]byte, error) {
	content, err := r.Reader.ReadFile(path, dst)
	if err != nil {
		r.failures = append(r.failures, FileFailure{File: path, Error: err.Error()})
	}
	return content, err
}
