// Package taskqueue implements TaskQueue (spec.md §4.4): a bounded,
// retrying, in-memory queue of per-file embedding tasks owned exclusively by
// one FolderLifecycleManager.
package taskqueue

import (
	"sync"
	"time"

	"github.com/okets/folder-mcp-core/internal/folder"
)

// Statistics is the result of getStatistics() (spec.md §4.4).
type Statistics struct {
	TotalTasks      int
	PendingTasks    int
	InProgressTasks int
	CompletedTasks  int
	FailedTasks     int
	RetryingTasks   int
}

// Queue is TaskQueue. All methods are safe for concurrent use.
type Queue struct {
	mu             sync.Mutex
	order          []string
	tasks          map[string]*folder.FileEmbeddingTask
	retryDelay     time.Duration
	maxConcurrency int
}

// New builds an empty Queue. retryDelay is the default delay before a
// retried task becomes eligible again (spec.md §4.4 default 1000ms).
func New(retryDelay time.Duration) *Queue {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Queue{
		tasks:      make(map[string]*folder.FileEmbeddingTask),
		retryDelay: retryDelay,
	}
}

// Enqueue appends task, preserving insertion order.
func (q *Queue) Enqueue(task *folder.FileEmbeddingTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.Status == "" {
		task.Status = folder.TaskStatusPending
	}
	if task.MaxRetries <= 0 {
		task.MaxRetries = folder.DefaultMaxRetries
	}
	q.tasks[task.ID] = task
	q.order = append(q.order, task.ID)
}

// GetNextTask returns the oldest pending task that is not in-progress and
// whose retry-delay (if any) has elapsed, or nil if none is eligible.
func (q *Queue) GetNextTask() *folder.FileEmbeddingTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for _, id := range q.order {
		t := q.tasks[id]
		if t == nil || t.Status != folder.TaskStatusPending {
			continue
		}
		if !t.EligibleAt.IsZero() && t.EligibleAt.After(now) {
			continue
		}
		return t
	}
	return nil
}

// MarkInProgress transitions task id to in-progress and records startedAt.
func (q *Queue) MarkInProgress(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	t.Status = folder.TaskStatusInProgress
	t.StartedAt = &now
}

// UpdateTaskStatus applies the completion result from spec.md §4.4: on
// success the task becomes terminal; on error it retries (incrementing
// retryCount, reverting to pending with an eligibility delay) until
// maxRetries is exhausted, at which point it becomes terminally errored.
func (q *Queue) UpdateTaskStatus(id string, success bool, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	t.CompletedAt = &now

	if success {
		t.Status = folder.TaskStatusSuccess
		t.ErrorMessage = ""
		return
	}

	t.ErrorMessage = errMsg
	if t.RetryCount < t.MaxRetries {
		t.RetryCount++
		t.Status = folder.TaskStatusPending
		t.CompletedAt = nil
		t.EligibleAt = now.Add(q.retryDelay)
		return
	}
	t.Status = folder.TaskStatusError
}

// GetStatistics summarizes the current task set.
func (q *Queue) GetStatistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats Statistics
	stats.TotalTasks = len(q.tasks)
	for _, t := range q.tasks {
		switch t.Status {
		case folder.TaskStatusPending:
			if t.RetryCount > 0 {
				stats.RetryingTasks++
			}
			stats.PendingTasks++
		case folder.TaskStatusInProgress:
			stats.InProgressTasks++
		case folder.TaskStatusSuccess:
			stats.CompletedTasks++
		case folder.TaskStatusError:
			stats.FailedTasks++
		}
	}
	return stats
}

// Snapshot returns a defensive copy of every task, in insertion order.
func (q *Queue) Snapshot() []*folder.FileEmbeddingTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*folder.FileEmbeddingTask, 0, len(q.order))
	for _, id := range q.order {
		if t, ok := q.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// IsAllTasksComplete reports whether every task has reached a terminal
// state (success or error).
func (q *Queue) IsAllTasksComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Status == folder.TaskStatusPending || t.Status == folder.TaskStatusInProgress {
			return false
		}
	}
	return true
}

// ClearAll drops every task (used on stop/reset).
func (q *Queue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.tasks = make(map[string]*folder.FileEmbeddingTask)
}
