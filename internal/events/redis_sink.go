package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStreamSink appends published events to a Redis stream.
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink writing to stream. A positive maxLen trims
// the stream approximately to that many entries.
func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Register subscribes the sink to every event type.
func (s *RedisStreamSink) Register(dispatcher Dispatcher) {
	for _, eventType := range EventTypes {
		dispatcher.Subscribe(eventType, s.Handle)
	}
}

// Handle writes a single event as one stream entry.
func (s *RedisStreamSink) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: []interface{}{
			"id", event.ID,
			"type", string(event.Type),
			"ticket_id", event.TicketID,
			"payload", string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
