package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/temporal"
)

// scriptedReader returns queued messages or errors, then cancels the run.
type scriptedReader struct {
	mu     sync.Mutex
	queue  []readResult
	cancel context.CancelFunc
	closed bool
}

type readResult struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	return next.msg, next.err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) StartHarvest(ctx context.Context, input temporal.HarvestInput) (string, string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.String(1), args.Error(2)
}

func message(value string) readResult {
	return readResult{msg: kafka.Message{Value: []byte(value)}}
}

func TestHarvestListener_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{
		cancel: cancel,
		queue: []readResult{
			message(`{"queries":[{"titleOrKeywords":"open science"}]}`),
			message(`not json`),
			{err: errors.New("broker unavailable")},
			message(`{"index":"oa_records","queries":[{"doi":"10.1/x"}],"requestedBy":"cron"}`),
		},
	}

	starter := &mockStarter{}
	starter.On("StartHarvest", mock.Anything, mock.MatchedBy(func(in temporal.HarvestInput) bool {
		return in.RequestedBy == "kafka" && in.Index == "oa_records" && in.BatchSize == 50 &&
			in.Queries[0].TitleOrKeywords == "open science"
	})).Return("harvest-oa_records", "run-1", nil).Once()
	starter.On("StartHarvest", mock.Anything, mock.MatchedBy(func(in temporal.HarvestInput) bool {
		return in.RequestedBy == "cron" && in.Index == "oa_records"
	})).Return("", "", temporal.ErrHarvestRunning).Once()

	defaults := temporal.HarvestInput{Index: "oa_records", BatchSize: 50}
	l := newHarvestListener(reader, starter, defaults, zerolog.Nop())
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	starter.AssertExpectations(t)

	require.NoError(t, l.Close())
	assert.True(t, reader.closed)
}
