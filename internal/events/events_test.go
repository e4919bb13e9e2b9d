package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		ID:        "4b0f3c1e-8f55-4f7e-9d5c-2c1f3b9b0a11",
		Type:      EventTicketStatusChanged,
		TicketID:  7,
		Actor:     "helper@example.com",
		Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Payload:   TicketStatusChangedPayload{OldStatus: "Open", NewStatus: "Resolved"},
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)
	var calls []string
	dispatcher.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("sink down")
	})
	dispatcher.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRedisStreamSinkAppendsEvent(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	sink := NewRedisStreamSink(rdb, "helpdesk.ticket.events", 1000)
	event := sampleEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "helpdesk.ticket.events",
		MaxLen: 1000,
		Approx: true,
		Values: []interface{}{
			"id", event.ID,
			"type", "ticket_status_changed",
			"ticket_id", int64(7),
			"payload", string(payload),
		},
	}).SetVal("1-0")

	require.NoError(t, sink.Handle(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStreamSinkReportsFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	sink := NewRedisStreamSink(rdb, "events", 0)
	event := sampleEvent()
	payload, _ := json.Marshal(event)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "events",
		Values: []interface{}{
			"id", event.ID,
			"type", "ticket_status_changed",
			"ticket_id", int64(7),
			"payload", string(payload),
		},
	}).SetErr(errors.New("connection refused"))

	err := sink.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStreamSinkRegistersForEveryType(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	dispatcher := NewInMemoryDispatcher(nil)
	NewRedisStreamSink(rdb, "events", 0).Register(dispatcher)

	event := sampleEvent()
	event.Type = EventWorkloadBalanced
	event.TicketID = 0
	event.Payload = WorkloadBalancedPayload{Reassigned: 3, AverageLoad: 4.5}
	payload, _ := json.Marshal(event)
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "events",
		Values: []interface{}{
			"id", event.ID,
			"type", "workload_balanced",
			"ticket_id", int64(0),
			"payload", string(payload),
		},
	}).SetVal("2-0")

	require.NoError(t, dispatcher.Publish(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}
