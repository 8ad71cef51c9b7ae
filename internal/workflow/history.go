package workflow

import (
	"sort"
	"sync"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"
)

// History is the bounded in-memory store of workflow executions. It is
// guarded by a mutex so executions can be recorded and listed concurrently.
type History struct {
	mu         sync.RWMutex
	executions map[string]*api.WorkflowExecution
}

// NewHistory creates an empty execution history.
func NewHistory() *History {
	return &History{
		executions: make(map[string]*api.WorkflowExecution),
	}
}

// Add records a snapshot of an execution, replacing any earlier snapshot
// with the same id. The engine records once at creation and once when the
// execution reaches its terminal status.
func (h *History) Add(execution api.WorkflowExecution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := copyExecution(&execution)
	h.executions[execution.ExecutionID] = &copied
}

// Get returns a copy of one execution by id.
func (h *History) Get(executionID string) (api.WorkflowExecution, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	execution, exists := h.executions[executionID]
	if !exists {
		return api.WorkflowExecution{}, false
	}
	return copyExecution(execution), true
}

// Recent returns up to limit executions in reverse-chronological start
// order. A non-positive limit returns everything.
func (h *History) Recent(limit int) []api.WorkflowExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all := make([]api.WorkflowExecution, 0, len(h.executions))
	for _, execution := range h.executions {
		all = append(all, copyExecution(execution))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Prune discards terminal executions whose completion is older than the
// retention window. Running executions are never pruned.
func (h *History) Prune(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	h.mu.Lock()
	defer h.mu.Unlock()

	pruned := 0
	for id, execution := range h.executions {
		if execution.CompletedAt == nil {
			continue
		}
		if execution.CompletedAt.Before(cutoff) {
			delete(h.executions, id)
			pruned++
		}
	}
	if pruned > 0 {
		logging.Debug("Workflow", "Pruned %d executions older than %s", pruned, retention)
	}
	return pruned
}

// Size returns the number of retained executions.
func (h *History) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.executions)
}

func copyExecution(execution *api.WorkflowExecution) api.WorkflowExecution {
	out := *execution
	out.Steps = make([]api.StepResult, len(execution.Steps))
	copy(out.Steps, execution.Steps)
	return out
}
