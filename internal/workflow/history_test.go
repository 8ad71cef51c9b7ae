package workflow

import (
	"fmt"
	"testing"
	"time"

	"infraops/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyEntry(id string, started time.Time, completed *time.Time) api.WorkflowExecution {
	return api.WorkflowExecution{
		ExecutionID: id,
		WorkflowID:  "wf",
		Status:      api.ExecutionCompleted,
		StartedAt:   started,
		CompletedAt: completed,
	}
}

func TestHistoryPruneKeepsRecentAndRunning(t *testing.T) {
	history := NewHistory()
	now := time.Now()

	old := now.Add(-72 * time.Hour)
	fresh := now.Add(-time.Hour)
	history.Add(historyEntry("exec-1", old, &old))
	history.Add(historyEntry("exec-2", fresh, &fresh))

	running := historyEntry("exec-3", old, nil)
	running.Status = api.ExecutionRunning
	history.Add(running)

	pruned := history.Prune(48 * time.Hour)
	assert.Equal(t, 1, pruned)

	_, exists := history.Get("exec-1")
	assert.False(t, exists, "terminal execution past retention must be dropped")
	_, exists = history.Get("exec-2")
	assert.True(t, exists)
	_, exists = history.Get("exec-3")
	assert.True(t, exists, "running executions are never pruned")
	assert.Equal(t, 2, history.Size())
}

func TestHistorySnapshotsAreIsolated(t *testing.T) {
	history := NewHistory()
	execution := historyEntry("exec-1", time.Now(), nil)
	execution.Steps = []api.StepResult{{StepID: "one", Status: api.StepCompleted}}
	history.Add(execution)

	// Mutating the caller's copy must not reach the stored snapshot.
	execution.Steps[0].Status = api.StepFailed
	execution.Steps = append(execution.Steps, api.StepResult{StepID: "two"})

	stored, exists := history.Get("exec-1")
	require.True(t, exists)
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, api.StepCompleted, stored.Steps[0].Status)
}

func TestHistoryRecentOrderAndLimit(t *testing.T) {
	history := NewHistory()
	base := time.Now()
	for i := 0; i < 4; i++ {
		started := base.Add(time.Duration(i) * time.Minute)
		history.Add(historyEntry(fmt.Sprintf("exec-%d", i), started, nil))
	}

	recent := history.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "exec-3", recent[0].ExecutionID)
	assert.Equal(t, "exec-2", recent[1].ExecutionID)

	assert.Len(t, history.Recent(0), 4)
}
