// Package health keeps the gRPC health service in step with the search backend.
package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the search API.
const ServiceName = "oasearch.v1.SearchService"

// Defaults for NewWatcher.
const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 3 * time.Second
)

// Pinger is satisfied by search.Adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher pings the backend and publishes the result on a gRPC health server,
// both for ServiceName and for the overall server ("").
type Watcher struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewWatcher creates a watcher. Zero durations fall back to the defaults.
func NewWatcher(server *health.Server, pinger Pinger, interval, timeout time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Watcher{
		server:   server,
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "health").Logger(),
	}
}

// Check pings once and updates the serving status.
func (w *Watcher) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := w.pinger.Ping(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("search backend ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.set(status)
	return status
}

// Run checks immediately and then on every interval until ctx is done, when
// it marks the services NOT_SERVING.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

func (w *Watcher) set(status healthpb.HealthCheckResponse_ServingStatus) {
	w.server.SetServingStatus(ServiceName, status)
	w.server.SetServingStatus("", status)
}
