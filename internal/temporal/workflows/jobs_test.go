package workflows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/ami-notifications/notifier/internal/temporal/activities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

type fakePublisher struct {
	report notification.PublishReport
	err    error
	calls  atomic.Int32
}

func (f *fakePublisher) PublishDue(context.Context) (notification.PublishReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

type fakeSweeper struct {
	deleted int64
	err     error
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) {
	return f.deleted, f.err
}

func TestPublishDueWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	publisher := &fakePublisher{report: notification.PublishReport{Candidates: 2, Published: 2}}
	env.RegisterActivity(&activities.Activities{Publisher: publisher, Sweeper: &fakeSweeper{}})

	env.ExecuteWorkflow(PublishDueWorkflow)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var report notification.PublishReport
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, int32(1), publisher.calls.Load())
}

func TestPublishDueWorkflow_RetriesThenFails(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	publisher := &fakePublisher{err: errors.New("database unavailable")}
	env.RegisterActivity(&activities.Activities{Publisher: publisher, Sweeper: &fakeSweeper{}})

	env.ExecuteWorkflow(PublishDueWorkflow)
	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.Equal(t, int32(3), publisher.calls.Load())
}

func TestSweepWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{Publisher: &fakePublisher{}, Sweeper: &fakeSweeper{deleted: 7}})

	env.ExecuteWorkflow(SweepWorkflow)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var deleted int64
	require.NoError(t, env.GetWorkflowResult(&deleted))
	assert.Equal(t, int64(7), deleted)
}
