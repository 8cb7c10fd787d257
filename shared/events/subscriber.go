package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one decoded event. Returning an error leaves the entry
// pending; the subscriber replays it until it succeeds or runs out of
// deliveries.
type Handler func(ctx context.Context, event Event) error

const (
	defaultBatchSize     = 10
	defaultBlockDuration = 5 * time.Second
	defaultRetryDelay    = time.Second
	defaultMaxDeliveries = 5

	// pendingID asks XREADGROUP for entries already delivered to this
	// consumer and not yet acknowledged. newID asks for undelivered ones.
	pendingID = "0"
	newID     = ">"
)

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	Handler  Handler

	BatchSize     int64
	BlockDuration time.Duration
	// RetryDelay is the pause before a failed entry is replayed.
	RetryDelay time.Duration
	// MaxDeliveries caps how often one entry is handed to Handler. After the
	// last failure the entry is acknowledged and dropped with a log line.
	MaxDeliveries int
}

// Subscriber consumes a stream through a consumer group. On start and after
// every handler failure it drains its own pending list before asking for new
// entries, so an unacknowledged entry is never stranded.
type Subscriber struct {
	client *redis.Client
	cfg    SubscriberConfig

	// failures counts handler errors per entry id for this process.
	failures map[string]int
}

func NewSubscriber(client *redis.Client, cfg SubscriberConfig) *Subscriber {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = defaultBlockDuration
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = defaultMaxDeliveries
	}
	return &Subscriber{client: client, cfg: cfg, failures: make(map[string]int)}
}

// Start blocks consuming the stream until ctx is cancelled, then returns
// ctx.Err().
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.cfg.Stream, s.cfg.Group, s.cfg.Consumer)

	replay := true
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("Subscriber stopping: %s", s.cfg.Stream)
			return err
		}

		id := newID
		if replay {
			id = pendingID
		}
		read, failed, err := s.consume(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Error reading stream %s: %v", s.cfg.Stream, err)
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				return err
			}
		case failed > 0:
			replay = true
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				return err
			}
		case replay && read == 0:
			replay = false
		}
	}
}

// consume reads one batch starting at id and hands every entry to the
// handler. It reports how many entries were read and how many stay pending.
func (s *Subscriber) consume(ctx context.Context, id string) (read, failed int, err error) {
	args := &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, id},
		Count:    s.cfg.BatchSize,
		Block:    -1,
	}
	if id == newID {
		args.Block = s.cfg.BlockDuration
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("xreadgroup %s: %w", id, err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			read++
			if !s.handle(ctx, message) {
				failed++
			}
		}
	}
	return read, failed, nil
}

// handle runs the handler for one entry and reports whether the entry is
// settled, either acknowledged after success or dropped after its last
// allowed delivery.
func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) bool {
	err := s.dispatch(ctx, message)
	if err == nil {
		delete(s.failures, message.ID)
		s.ack(ctx, message.ID)
		return true
	}

	s.failures[message.ID]++
	attempts := s.failures[message.ID]
	if attempts >= s.cfg.MaxDeliveries {
		log.Printf("Dropping message %s after %d failed deliveries: %v", message.ID, attempts, err)
		delete(s.failures, message.ID)
		s.ack(ctx, message.ID)
		return true
	}
	log.Printf("Failed to process message %s (attempt %d of %d): %v", message.ID, attempts, s.cfg.MaxDeliveries, err)
	return false
}

func (s *Subscriber) dispatch(ctx context.Context, message redis.XMessage) error {
	event, err := decodeMessage(message)
	if err != nil {
		return err
	}
	return s.cfg.Handler(ctx, event)
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err(); err != nil {
		log.Printf("Failed to ACK message %s: %v", id, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
