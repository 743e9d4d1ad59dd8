//go:build integration

package temporal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvestClient_Integration(t *testing.T) {
	hostPort := os.Getenv("OASEARCH_TEST_TEMPORAL_HOST_PORT")
	if hostPort == "" {
		hostPort = "localhost:7233"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewClient(ClientConfig{HostPort: hostPort, Namespace: "default", TaskQueue: "oasearch-it"}, zerolog.Nop())
	require.NoError(t, err, "failed to connect to Temporal; is a dev server running?")
	hc := NewHarvestClient(c, "oasearch-it")
	defer hc.Close()

	require.NoError(t, hc.Health(ctx))

	_, err = hc.Progress(ctx, "index-that-never-harvested")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}
