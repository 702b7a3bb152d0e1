package temporal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/efebarandurmaz/cppig/internal/observability"
	"github.com/efebarandurmaz/cppig/internal/traverse"
)

type workflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
	dir string
}

func TestIncludeGraphWorkflow(t *testing.T) {
	suite.Run(t, new(workflowSuite))
}

func (s *workflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(ScanActivity)
	s.dir = s.T().TempDir()
	s.write("main.c", "#include \"a.h\"\n#include <b.h>\n")
	s.write("a.h", "#include \"b.h\"\n")
	s.write("b.h", "")
}

func (s *workflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *workflowSuite) write(name, content string) {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644))
}

func (s *workflowSuite) TestRendersGraph() {
	s.env.ExecuteWorkflow(IncludeGraphWorkflow, ScanInput{
		Name:         "remote",
		Files:        []string{filepath.Join(s.dir, "main.c")},
		Format:       "jsonl",
		IncludePaths: []string{s.dir},
		Silent:       true,
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var out ScanOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	mainPath := filepath.Join(s.dir, "main.c")
	s.Equal(
		`{"graph":"remote","from":"`+mainPath+`","to":"a.h"}`+"\n"+
			`{"graph":"remote","from":"`+mainPath+`","to":"b.h"}`+"\n"+
			`{"graph":"remote","from":"a.h","to":"b.h"}`+"\n",
		out.Graph)
	s.Equal(3, out.Stats.FilesVisited)
	s.Equal(3, out.Stats.Edges)
	s.Equal(0, out.Stats.FilesFailed)
	s.Empty(out.Failures)
}

func (s *workflowSuite) TestReturnsOpenFailures() {
	s.write("broken.c", "#include \"gone.h\"\n#include \"b.h\"\n")

	s.env.ExecuteWorkflow(IncludeGraphWorkflow, ScanInput{
		Name:         "g",
		Files:        []string{filepath.Join(s.dir, "broken.c")},
		Format:       "dot",
		IncludePaths: []string{s.dir},
		Silent:       true,
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var out ScanOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	s.Require().Len(out.Failures, 1)
	s.Equal("gone.h", out.Failures[0].File)
	s.NotEmpty(out.Failures[0].Error)
	s.Equal(1, out.Stats.FilesFailed)
}

func (s *workflowSuite) TestNoFiles() {
	s.env.ExecuteWorkflow(IncludeGraphWorkflow, ScanInput{Name: "g", Format: "dot"})

	s.Require().True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.Contains(err.Error(), "no files are provided")
}

func (s *workflowSuite) TestLimitExceededIsNotRetried() {
	s.env.ExecuteWorkflow(IncludeGraphWorkflow, ScanInput{
		Name:         "g",
		Files:        []string{filepath.Join(s.dir, "main.c")},
		Format:       "dot",
		IncludePaths: []string{s.dir},
		Limits:       traverse.Limits{GraphArena: 4},
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.True(IsLimitExceeded(err))

	var actErr *sdktemporal.ActivityError
	s.Require().True(errors.As(err, &actErr))
	var appErr *sdktemporal.ApplicationError
	s.Require().True(errors.As(actErr.Unwrap(), &appErr))
	s.Equal("LimitExceeded", appErr.Type())
	s.True(appErr.NonRetryable())
}

func TestScanActivity_UnknownFormat(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(ScanActivity)

	_, err := env.ExecuteActivity(ScanActivity, ScanInput{Name: "g", Files: []string{"x.c"}, Format: "svg"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown graph format")
	assert.False(t, IsLimitExceeded(err))
}

func TestScanActivity_MissingFileIsReportedNotFatal(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(ScanActivity)

	missing := filepath.Join(t.TempDir(), "absent.c")
	val, err := env.ExecuteActivity(ScanActivity, ScanInput{
		Name:   "g",
		Files:  []string{missing},
		Format: "dot",
		Silent: true,
	})
	require.NoError(t, err)

	var out ScanOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "digraph g {\n}\n", out.Graph)
	assert.Equal(t, 1, out.Stats.FilesFailed)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, missing, out.Failures[0].File)
	assert.Contains(t, out.Failures[0].Error, "absent.c")
}

func TestScanActivity_RecordsMetrics(t *testing.T) {
	m := observability.NewScanMetrics()
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), []byte("#include \"gone.h\"\n"), 0o644))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(ScanActivity)
	_, err := env.ExecuteActivity(ScanActivity, ScanInput{
		Name:   "g",
		Files:  []string{filepath.Join(dir, "a.c")},
		Format: "dot",
		Silent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(observability.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesVisited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edges))
}

func TestIsLimitExceeded(t *testing.T) {
	limit := sdktemporal.NewNonRetryableApplicationError("memory limit exceeded", errLimitExceeded, nil)
	outer := sdktemporal.NewApplicationErrorWithCause("scan: memory limit exceeded", "wrapError", limit)

	assert.True(t, IsLimitExceeded(limit))
	assert.True(t, IsLimitExceeded(outer))
	assert.False(t, IsLimitExceeded(sdktemporal.NewApplicationError("boom", "Other")))
	assert.False(t, IsLimitExceeded(errors.New("plain")))
	assert.False(t, IsLimitExceeded(nil))
}
