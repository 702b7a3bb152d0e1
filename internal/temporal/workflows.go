package temporal

import (
	"errors"
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/cppig/internal/traverse"
)

// ScanInput holds the workflow parameters.
type ScanInput struct {
	Name         string
	Files        []string
	Format       string
	IncludePaths []string
	Limits       traverse.Limits
	Silent       bool
}

// ScanOutput holds the workflow result.
type ScanOutput struct {
	Graph    string // rendered graph text in the requested format
	Stats    traverse.Stats
	Failures []FileFailure // files the worker could not open, in visit order
}

// FileFailure describes one file that could not be opened during a scan.
type FileFailure struct {
	File  string
	Error string
}

// IncludeGraphWorkflow builds the include graph of the input files on a
// worker host.
func IncludeGraphWorkflow(ctx workflow.Context, input ScanInput) (*ScanOutput, error) {
	if len(input.Files) == 0 {
		return nil, sdktemporal.NewNonRetryableApplicationError(traverse.ErrNoSeeds.Error(), errNoSeeds, nil)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	workflow.GetLogger(ctx).Info("scanning includes", "graph", input.Name, "files", len(input.Files))

	var out ScanOutput
	if err := workflow.ExecuteActivity(ctx, ScanActivity, input).Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return &out, nil
}

// IsLimitExceeded reports whether err carries a memory limit failure from
// ScanActivity. Errors wrapped inside the workflow arrive as application
// errors of their own, so the whole cause chain is searched.
func IsLimitExceeded(err error) bool {
	for err != nil {
		var appErr *sdktemporal.ApplicationError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type() == errLimitExceeded {
			return true
		}
		err = appErr.Unwrap()
	}
	return false
}
