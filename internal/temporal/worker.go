package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// WorkerConfig contains configuration for the harvest worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize bounds concurrent connector fetches
	// and index writes. Default: 20
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize is the maximum concurrent workflow task executions.
	// Default: 10
	MaxConcurrentWorkflowTaskExecutionSize int

	MaxConcurrentActivityTaskPollers int
	MaxConcurrentWorkflowTaskPollers int
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     20,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
		MaxConcurrentActivityTaskPollers:       4,
		MaxConcurrentWorkflowTaskPollers:       2,
	}
}

// workerOptionsFromConfig builds worker.Options, filling zero fields with
// the DefaultWorkerConfig values.
func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	def := DefaultWorkerConfig(config.TaskQueue)
	pick := func(v, fallback int) int {
		if v == 0 {
			return fallback
		}
		return v
	}
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     pick(config.MaxConcurrentActivityExecutionSize, def.MaxConcurrentActivityExecutionSize),
		MaxConcurrentWorkflowTaskExecutionSize: pick(config.MaxConcurrentWorkflowTaskExecutionSize, def.MaxConcurrentWorkflowTaskExecutionSize),
		MaxConcurrentActivityTaskPollers:       pick(config.MaxConcurrentActivityTaskPollers, def.MaxConcurrentActivityTaskPollers),
		MaxConcurrentWorkflowTaskPollers:       pick(config.MaxConcurrentWorkflowTaskPollers, def.MaxConcurrentWorkflowTaskPollers),
	}
}

// WorkerManager manages the lifecycle of a Temporal worker.
type WorkerManager struct {
	worker    worker.Worker
	taskQueue string
}

// NewWorkerManager creates a worker polling config.TaskQueue.
func NewWorkerManager(c client.Client, config WorkerConfig) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}
	return &WorkerManager{
		worker:    worker.New(c, config.TaskQueue, workerOptionsFromConfig(config)),
		taskQueue: config.TaskQueue,
	}, nil
}

// RegisterWorkflow registers fn under name.
func (m *WorkerManager) RegisterWorkflow(name string, fn interface{}) {
	m.worker.RegisterWorkflowWithOptions(fn, workflow.RegisterOptions{Name: name})
}

// RegisterActivity registers every exported method of a struct, or a function.
func (m *WorkerManager) RegisterActivity(a interface{}) {
	m.worker.RegisterActivityWithOptions(a, activity.RegisterOptions{})
}

// Worker returns the underlying Temporal worker.
func (m *WorkerManager) Worker() worker.Worker {
	return m.worker
}

// TaskQueue returns the configured task queue name.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Start runs the worker and blocks until ctx is cancelled.
func (m *WorkerManager) Start(ctx context.Context) error {
	return StartWorker(ctx, m.worker)
}

// StartWorker runs w and blocks until ctx is cancelled or w fails.
func StartWorker(ctx context.Context, w worker.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
