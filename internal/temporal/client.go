package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/helixir/oa-metasearch/internal/observability"
)

// Default timeout constants for workflow execution and health checks.
const (
	// DefaultWorkflowExecutionTimeout is the maximum time a harvest is allowed to run.
	DefaultWorkflowExecutionTimeout = 2 * time.Hour

	// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
	DefaultHealthCheckTimeout = 5 * time.Second
)

var (
	// ErrHarvestRunning indicates a harvest into the same index is already running.
	ErrHarvestRunning = errors.New("harvest already running for index")

	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrQueryFailed indicates the workflow query failed.
	ErrQueryFailed = errors.New("query failed")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeadlineExceeded indicates the operation deadline was exceeded.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// TemporalError wraps a Temporal error with additional context.
type TemporalError struct {
	Op         string // Operation that failed
	Kind       error  // Category of error (sentinel)
	WorkflowID string
	Err        error
}

// Error returns the error message.
func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TemporalError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapTemporalError maps Temporal service errors to the sentinels above.
func wrapTemporalError(op string, err error, workflowID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{Op: op, WorkflowID: workflowID, Err: err}

	var notFoundErr *serviceerror.NotFound
	var alreadyStartedErr *serviceerror.WorkflowExecutionAlreadyStarted
	var invalidArgumentErr *serviceerror.InvalidArgument
	var deadlineExceededErr *serviceerror.DeadlineExceeded
	var queryFailedErr *serviceerror.QueryFailed

	switch {
	case errors.As(err, &notFoundErr):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStartedErr):
		te.Kind = ErrHarvestRunning
	case errors.As(err, &invalidArgumentErr):
		te.Kind = ErrInvalidArgument
	case errors.As(err, &deadlineExceededErr), errors.Is(err, context.DeadlineExceeded):
		te.Kind = ErrDeadlineExceeded
	case errors.As(err, &queryFailedErr):
		te.Kind = ErrQueryFailed
	case errors.Is(err, context.Canceled):
		te.Kind = ErrClientClosed
	default:
		te.Kind = ErrConnectionFailed
	}
	return te
}

// TLSConfig contains TLS configuration for the Temporal client.
type TLSConfig struct {
	Enabled bool

	// CertPath and KeyPath locate the PEM client certificate and key.
	CertPath string
	KeyPath  string

	// CACertPath is the path to the CA certificate file (PEM format).
	CACertPath string

	ServerName string
}

func (t *TLSConfig) buildTLSConfig() (*tls.Config, error) {
	if t == nil || !t.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		ServerName: t.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if t.CACertPath != "" {
		caCert, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// ClientConfig contains configuration for the Temporal client.
type ClientConfig struct {
	// HostPort is the Temporal server address (e.g., "localhost:7233").
	HostPort string

	Namespace string

	// TaskQueue is the queue harvests are started on.
	TaskQueue string

	TLS *TLSConfig
}

// NewClient dials Temporal. SDK logs go through logger.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	}

	tlsConfig, err := cfg.TLS.buildTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("configure TLS: %w", err)
	}
	if tlsConfig != nil {
		options.ConnectionOptions = client.ConnectionOptions{TLS: tlsConfig}
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// HarvestClient starts and controls harvest workflows.
type HarvestClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewHarvestClient creates a HarvestClient for taskQueue.
func NewHarvestClient(c client.Client, taskQueue string) *HarvestClient {
	return &HarvestClient{
		client:             c,
		taskQueue:          taskQueue,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *HarvestClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *HarvestClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// TaskQueue returns the configured task queue name.
func (c *HarvestClient) TaskQueue() string {
	return c.taskQueue
}

// Health checks the connection to the Temporal server.
func (c *HarvestClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}
	ctx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "")
	}
	return nil
}

// StartHarvest validates input and starts a harvest into input.Index. It
// fails with ErrHarvestRunning when a harvest into that index is running.
func (c *HarvestClient) StartHarvest(ctx context.Context, input HarvestInput) (workflowID, runID string, err error) {
	if c.isClosed() {
		return "", "", &TemporalError{Op: "StartHarvest", Kind: ErrClientClosed}
	}
	input = input.WithDefaults()
	if err := input.Validate(); err != nil {
		return "", "", err
	}

	workflowID = HarvestWorkflowID(input.Index)
	options := client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                c.taskQueue,
		WorkflowExecutionTimeout:                 DefaultWorkflowExecutionTimeout,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, HarvestWorkflowName, input)
	if err != nil {
		return "", "", wrapTemporalError("StartHarvest", err, workflowID)
	}
	return workflowID, run.GetRunID(), nil
}

// Progress queries the latest harvest into index.
func (c *HarvestClient) Progress(ctx context.Context, index string) (*HarvestProgress, error) {
	workflowID := HarvestWorkflowID(index)
	if c.isClosed() {
		return nil, &TemporalError{Op: "Progress", Kind: ErrClientClosed, WorkflowID: workflowID}
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, "", QueryProgress)
	if err != nil {
		return nil, wrapTemporalError("Progress", err, workflowID)
	}
	var progress HarvestProgress
	if err := resp.Get(&progress); err != nil {
		return nil, &TemporalError{
			Op:         "Progress",
			Kind:       ErrQueryFailed,
			WorkflowID: workflowID,
			Err:        fmt.Errorf("decode query result: %w", err),
		}
	}
	return &progress, nil
}

// Cancel asks the running harvest into index to stop after its current batch.
func (c *HarvestClient) Cancel(ctx context.Context, index, reason string) error {
	workflowID := HarvestWorkflowID(index)
	if c.isClosed() {
		return &TemporalError{Op: "Cancel", Kind: ErrClientClosed, WorkflowID: workflowID}
	}
	if err := c.client.SignalWorkflow(ctx, workflowID, "", SignalCancel, CancelSignal{Reason: reason}); err != nil {
		return wrapTemporalError("Cancel", err, workflowID)
	}
	return nil
}

// Result waits for the latest harvest into index to finish.
func (c *HarvestClient) Result(ctx context.Context, index string) (*HarvestResult, error) {
	workflowID := HarvestWorkflowID(index)
	if c.isClosed() {
		return nil, &TemporalError{Op: "Result", Kind: ErrClientClosed, WorkflowID: workflowID}
	}
	var result HarvestResult
	if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		return nil, wrapTemporalError("Result", err, workflowID)
	}
	return &result, nil
}
