package events

import (
	"context"
	"strconv"
	"time"

	"userdb/internal/shared/logger"

	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
)

const (
	// StreamName is the Redis stream holding the durable user event feed.
	StreamName = "userdb:events:users"

	// NotifyChannel mirrors stream appends for fire-and-forget pub/sub
	// subscribers that do not need replay.
	NotifyChannel = "userdb:events"

	maxEventsPerRead = 1000
)

// RedisEventStore persists user lifecycle events to a Redis Stream and
// mirrors them on a pub/sub channel.
type RedisEventStore struct {
	client    *redis.Client
	logger    logger.Logger
	maxLength int64
}

// NewRedisEventStore creates a new Redis-based event store.
func NewRedisEventStore(client *redis.Client, maxLength int64, log logger.Logger) *RedisEventStore {
	if log == nil {
		log = logger.NewLogger()
	}
	if maxLength <= 0 {
		maxLength = 10000
	}
	return &RedisEventStore{
		client:    client,
		logger:    log.WithComponent("redis_event_store"),
		maxLength: maxLength,
	}
}

// StoreEvent appends an event to the stream and notifies pub/sub subscribers.
// Transient failures are retried with exponential backoff; the final error is
// returned so callers can decide whether delivery matters.
func (r *RedisEventStore) StoreEvent(ctx context.Context, event UserEvent) error {
	values := map[string]interface{}{
		"type":      event.Type,
		"userId":    event.UserID,
		"email":     event.Email,
		"status":    event.Status,
		"timestamp": event.Timestamp.UnixNano(),
	}

	b := &backoff.Backoff{
		Min:    50 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var entryID string
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		entryID, err = r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamName,
			MaxLen: r.maxLength,
			Approx: true,
			Values: values,
		}).Result()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d := b.Duration()
		r.logger.WithFields(map[string]interface{}{
			"eventType": event.Type,
			"attempt":   attempt + 1,
			"retry_in":  d.String(),
			"error":     err.Error(),
		}).Warn("Failed to append event, retrying")

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"eventType": event.Type,
			"error":     err.Error(),
		}).Error("Failed to store event in Redis")
		return err
	}

	// Pub/sub mirror is best effort; stream entry is the durable record.
	if pubErr := r.client.Publish(ctx, NotifyChannel, entryID).Err(); pubErr != nil {
		r.logger.WithFields(map[string]interface{}{
			"entryId": entryID,
			"error":   pubErr.Error(),
		}).Warn("Failed to publish event notification")
	}

	r.logger.WithFields(map[string]interface{}{
		"eventType": event.Type,
		"userId":    event.UserID,
		"entryId":   entryID,
	}).Debug("Event stored")

	return nil
}

// EventsSince retrieves events appended after the given resume token. An
// empty token replays the stream from the beginning.
func (r *RedisEventStore) EventsSince(ctx context.Context, resumeToken ResumeToken) ([]UserEvent, error) {
	lastID := "0"
	if resumeToken != "" {
		lastID = string(resumeToken)
	}

	exists, err := r.client.Exists(ctx, StreamName).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return []UserEvent{}, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.client.XRead(readCtx, &redis.XReadArgs{
		Streams: []string{StreamName, lastID},
		Count:   maxEventsPerRead,
		Block:   0,
	}).Result()
	if err != nil {
		if err == redis.Nil || err == context.DeadlineExceeded {
			return []UserEvent{}, nil
		}
		return nil, err
	}

	return eventsFromStreams(res), nil
}

// eventsFromStreams flattens XREAD results into events, stamping each with
// its stream entry ID so callers can resume where they left off.
func eventsFromStreams(streams []redis.XStream) []UserEvent {
	var events []UserEvent
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			event := parseEventFromMessage(msg)
			event.ResumeToken = ResumeToken(msg.ID)
			events = append(events, event)
		}
	}
	return events
}

// EventCount returns the current length of the event stream.
func (r *RedisEventStore) EventCount(ctx context.Context) int64 {
	length, err := r.client.XLen(ctx, StreamName).Result()
	if err != nil {
		return 0
	}
	return length
}

// Trim caps the stream at the configured maximum length.
func (r *RedisEventStore) Trim(ctx context.Context) error {
	trimmed, err := r.client.XTrimMaxLen(ctx, StreamName, r.maxLength).Result()
	if err != nil {
		return err
	}
	if trimmed > 0 {
		r.logger.WithFields(map[string]interface{}{"trimmed": trimmed}).Info("Trimmed event stream")
	}
	return nil
}

// Ping verifies the Redis connection.
func (r *RedisEventStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func parseEventFromMessage(msg redis.XMessage) UserEvent {
	event := UserEvent{}

	if s, ok := msg.Values["type"].(string); ok {
		event.Type = s
	}
	if s, ok := msg.Values["userId"].(string); ok {
		event.UserID = s
	}
	if s, ok := msg.Values["email"].(string); ok {
		event.Email = s
	}
	if s, ok := msg.Values["status"].(string); ok {
		event.Status = s
	}
	if s, ok := msg.Values["timestamp"].(string); ok {
		if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
			event.Timestamp = time.Unix(0, ns)
		}
	}

	return event
}
