package events

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type MockWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &MockWriter{}
	publisher := NewKafkaPublisher(writer, nil)

	err := publisher.Publish(context.Background(), PaymentEvent{
		CheckoutID:    "c-1",
		TransactionID: "tx-1",
		ServiceID:     10,
		CategoryID:    1,
		Amount:        "100.00",
		Currency:      "USD",
	})
	require.NoError(t, err)
	require.Len(t, writer.Messages, 1)

	msg := writer.Messages[0]
	assert.Equal(t, "tx-1", string(msg.Key))

	var event PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.Equal(t, "c-1", event.CheckoutID)
	assert.Equal(t, "100.00", event.Amount)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	writer := &MockWriter{Err: errors.New("broker unavailable")}
	publisher := NewKafkaPublisher(writer, nil)

	err := publisher.Publish(context.Background(), PaymentEvent{TransactionID: "tx-1"})
	assert.EqualError(t, err, "broker unavailable")
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &MockWriter{}
	require.NoError(t, NewKafkaPublisher(writer, nil).Close())
	assert.True(t, writer.Closed)
}

func TestNewWriterSplitsBrokers(t *testing.T) {
	w := NewWriter("k1:9092,k2:9092", "payment-events")
	assert.Equal(t, "payment-events", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
