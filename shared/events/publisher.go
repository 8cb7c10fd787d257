package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// eventField is the single stream field carrying the JSON encoded Event.
const eventField = "event"

// Publisher appends events to Redis streams. When maxLen is positive each
// XADD trims the stream to roughly that many entries.
type Publisher struct {
	client *redis.Client
	maxLen int64
	now    func() time.Time
}

func NewPublisher(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	payload, err := encodeEvent(Event{Type: eventType, Timestamp: p.now().UTC(), Data: data})
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: []any{eventField, payload},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", eventType, stream, err)
	}
	return nil
}

// NopPublisher discards events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

func encodeEvent(event Event) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return string(raw), nil
}

func decodeMessage(message redis.XMessage) (Event, error) {
	var event Event
	raw, ok := message.Values[eventField].(string)
	if !ok {
		return event, fmt.Errorf("message %s has no %q field", message.ID, eventField)
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal message %s: %w", message.ID, err)
	}
	return event, nil
}
