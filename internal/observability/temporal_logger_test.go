package observability

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTemporalLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(zerolog.New(&buf))

	l.Info("worker started", "task_queue", "oa-harvest", "workers", 4)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "temporal-sdk", entry["component"])
	assert.Equal(t, "oa-harvest", entry["task_queue"])
	assert.Equal(t, float64(4), entry["workers"])
	assert.Equal(t, "worker started", entry["message"])
}

func TestTemporalLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(zerolog.New(&buf)).With("workflow_id", "harvest-oa")

	l.Warn("retrying")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "harvest-oa", entry["workflow_id"])
	assert.Equal(t, "warn", entry["level"])
}

func TestKeyvalToMap(t *testing.T) {
	m := keyvalToMap([]interface{}{"a", 1, 2, "b", "dangling"})

	assert.Equal(t, 1, m["a"])
	assert.Equal(t, "b", m["2"])
	assert.Equal(t, "dangling", m["extra_value"])
}
