package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type mockChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	m.declared = append(m.declared, name+":"+kind)
	return m.declareErr
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func TestPublisher_DeclaresTopicExchange(t *testing.T) {
	t.Parallel()

	ch := &mockChannel{}
	_, err := NewPublisher(ch, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mtolling.trips:topic"}, ch.declared)

	_, err = NewPublisher(&mockChannel{declareErr: errors.New("access refused")}, "x")
	assert.Error(t, err)
}

func TestPublisher_PublishTripEvent(t *testing.T) {
	t.Parallel()

	ch := &mockChannel{}
	p, err := NewPublisher(ch, "")
	require.NoError(t, err)

	event := &domain.TripEvent{ID: "evt-1", TripNumber: 12, Highways: "A2", TotalCost: 4.1, DetectedAt: time.Now().UTC()}
	require.NoError(t, p.PublishTripEvent(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, RoutingKeyNewTrip, got.key)
	assert.Equal(t, "evt-1", got.msg.MessageId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var decoded domain.TripEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, int64(12), decoded.TripNumber)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	t.Parallel()

	p, err := NewPublisher(&mockChannel{publishErr: amqp.ErrClosed}, "")
	require.NoError(t, err)
	assert.ErrorIs(t, p.PublishTripEvent(context.Background(), &domain.TripEvent{ID: "e"}), amqp.ErrClosed)
}
