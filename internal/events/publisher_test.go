package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/domain"
)

type mockWriter struct {
	mock.Mock
	written []kafka.Message
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.written = append(m.written, msgs...)
	return m.Called(ctx, len(msgs)).Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestKafkaPublisher_PublishIndexed(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, 2).Return(nil).Once()

	p := newKafkaPublisher(w, zerolog.Nop())
	p.now = func() time.Time { return testTime }

	records := []domain.OARecord{
		domain.NewRecord(domain.SourceArXiv, "2301.00001", "a", testTime),
		domain.NewRecord(domain.SourceDOAJ, "abc", "b", testTime),
	}
	require.NoError(t, p.PublishIndexed(context.Background(), "oa_records", records))
	w.AssertExpectations(t)

	require.Len(t, w.written, 2)
	assert.Equal(t, "arxiv:2301.00001", string(w.written[0].Key))
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)

	var ev domain.IndexEvent
	require.NoError(t, json.Unmarshal(w.written[1].Value, &ev))
	assert.Equal(t, domain.EventTypeRecordsIndexed, ev.Type)
	assert.Equal(t, "doaj:abc", ev.RecordID)
	assert.Equal(t, domain.SourceDOAJ, ev.Source)
	assert.Equal(t, "oa_records", ev.Index)
	assert.True(t, testTime.Equal(ev.IndexedAt))
	assert.NotEmpty(t, ev.EventID)
}

func TestKafkaPublisher_EmptyIsNoop(t *testing.T) {
	w := &mockWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())
	require.NoError(t, p.PublishIndexed(context.Background(), "oa_records", nil))
	w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, 1).Return(errors.New("leader not available"))
	p := newKafkaPublisher(w, zerolog.Nop())

	err := p.PublishIndexed(context.Background(), "oa_records", []domain.OARecord{
		domain.NewRecord(domain.SourceArXiv, "1", "a", testTime),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	w.On("Close").Return(nil).Once()
	require.NoError(t, newKafkaPublisher(w, zerolog.Nop()).Close())
	w.AssertExpectations(t)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishIndexed(context.Background(), "i", []domain.OARecord{{}}))
	assert.NoError(t, p.Close())
}
