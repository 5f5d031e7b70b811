// Package taskmanager runs background jobs on detached contexts with a
// bounded number of in-flight tasks. The prefetch coordinator uses it to
// keep speculative scene generation off the request path.
package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTooManyTasks is returned when the active task limit is reached.
var ErrTooManyTasks = errors.New("maximum number of active tasks reached")

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskFunc is the work executed by a task. It receives a context detached
// from the submitting request so the task outlives the HTTP response.
type TaskFunc func(ctx context.Context) error

// Task describes a submitted background job.
type Task struct {
	ID        uuid.UUID
	Name      string
	Status    TaskStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
	cancel    context.CancelFunc
}

// Manager tracks and executes background tasks.
type Manager struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*Task
	maxTasks int
	closing  chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a task manager. maxTasks bounds concurrently active tasks.
func New(maxTasks int, logger *zap.Logger) *Manager {
	if maxTasks <= 0 {
		maxTasks = 10
	}
	return &Manager{
		tasks:    make(map[uuid.UUID]*Task),
		maxTasks: maxTasks,
		closing:  make(chan struct{}),
		logger:   logger.Named("TaskManager"),
	}
}

// Submit registers and starts a new task. The task runs on its own context;
// cancelling the submitting request does not cancel the task.
func (m *Manager) Submit(ctx context.Context, name string, fn TaskFunc) (uuid.UUID, error) {
	select {
	case <-m.closing:
		return uuid.UUID{}, errors.New("task manager is shutting down")
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, task := range m.tasks {
		if task.Status == TaskStatusPending || task.Status == TaskStatusRunning {
			active++
		}
	}
	if active >= m.maxTasks {
		return uuid.UUID{}, ErrTooManyTasks
	}

	taskCtx, cancel := context.WithCancel(context.Background())

	task := &Task{
		ID:        uuid.New(),
		Name:      name,
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		cancel:    cancel,
	}
	m.tasks[task.ID] = task

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(taskCtx, task, fn)
	}()

	return task.ID, nil
}

func (m *Manager) run(ctx context.Context, task *Task, fn TaskFunc) {
	m.setStatus(task, TaskStatusRunning, "")

	err := fn(ctx)

	if ctx.Err() != nil {
		m.logger.Info("Task cancelled",
			zap.String("task_id", task.ID.String()),
			zap.String("task", task.Name))
		m.setStatus(task, TaskStatusCancelled, "task cancelled")
		return
	}

	if err != nil {
		m.logger.Warn("Task failed",
			zap.String("task_id", task.ID.String()),
			zap.String("task", task.Name),
			zap.Error(err))
		m.setStatus(task, TaskStatusFailed, err.Error())
		return
	}

	m.logger.Debug("Task completed",
		zap.String("task_id", task.ID.String()),
		zap.String("task", task.Name))
	m.setStatus(task, TaskStatusCompleted, "")
}

func (m *Manager) setStatus(task *Task, status TaskStatus, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now()
}

// GetTask returns a snapshot of the task with the given ID.
func (m *Manager) GetTask(taskID uuid.UUID) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	snapshot := *task
	return &snapshot, nil
}

// ActiveTasks returns the number of pending or running tasks.
func (m *Manager) ActiveTasks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	for _, task := range m.tasks {
		if task.Status == TaskStatusPending || task.Status == TaskStatusRunning {
			active++
		}
	}
	return active
}

// CleanupTasks removes finished tasks older than the given age.
func (m *Manager) CleanupTasks(age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, task := range m.tasks {
		switch task.Status {
		case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
			if now.Sub(task.UpdatedAt) > age {
				delete(m.tasks, id)
			}
		}
	}
}

// Shutdown stops accepting tasks and waits for in-flight tasks to finish
// or for the context to expire. Expiry cancels the remaining tasks.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.closing)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for _, task := range m.tasks {
			if task.Status == TaskStatusPending || task.Status == TaskStatusRunning {
				task.cancel()
			}
		}
		m.mu.Unlock()
		return errors.New("timed out waiting for tasks to finish")
	}
}
