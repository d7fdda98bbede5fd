package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is the Redis stream external notifiers consume.
const DefaultStream = "helpdesk:events"

const streamMaxLen = 10000

// StreamForwarder copies every event onto a Redis stream for out-of-process notifiers.
type StreamForwarder struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamForwarder builds a forwarder.
func NewStreamForwarder(client *redis.Client, stream string, logger *zap.Logger) *StreamForwarder {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamForwarder{client: client, stream: stream, logger: logger}
}

// Register subscribes the forwarder to every event type.
func (f *StreamForwarder) Register(d Dispatcher) {
	if f == nil || f.client == nil || d == nil {
		return
	}
	for _, t := range AllEventTypes {
		d.Subscribe(t, f.Forward)
	}
}

// Forward appends event to the stream.
func (f *StreamForwarder) Forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	id, err := f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"id":        event.ID,
			"type":      string(event.Type),
			"ticket_id": strconv.FormatInt(event.TicketID, 10),
			"data":      string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", f.stream, err)
	}
	f.logger.Debug("event forwarded",
		zap.String("stream", f.stream),
		zap.String("stream_id", id),
		zap.String("event_type", string(event.Type)))
	return nil
}
