// Package journal persists the world event feed to a Redis Stream so the
// history survives restarts and external consumers can replay it.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/hub"
)

const (
	defaultStream = "demiurge:events"
	maxStreamLen  = 10000
	writeTimeout  = 5 * time.Second
)

// streamClient is the slice of redis.Client the journal needs.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
	Close() error
}

// Journal appends every hub event to a capped Redis Stream.
type Journal struct {
	rdb    streamClient
	stream string
	logger *zap.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(redisURL string, logger *zap.Logger) (*Journal, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Journal{rdb: rdb, stream: defaultStream, logger: logger}, nil
}

func (j *Journal) ID() string { return "event-journal" }

// Deliver appends the event to the stream. The stream is trimmed
// approximately to maxStreamLen so it cannot grow without bound.
func (j *Journal) Deliver(ev *hub.Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = j.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: j.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      string(ev.Type),
			"data":      string(payload),
			"timestamp": ev.Timestamp.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

// Replay reads the most recent count entries from the stream and converts
// them back into events, oldest first. The hub seeds its history from
// this at startup so the feed survives restarts.
func (j *Journal) Replay(ctx context.Context, count int64) ([]*hub.Event, error) {
	entries, err := j.rdb.XRevRangeN(ctx, j.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange: %w", err)
	}

	// XREVRANGE yields newest first.
	events := make([]*hub.Event, len(entries))
	for i, entry := range entries {
		ev := &hub.Event{}
		if v, ok := entry.Values["type"].(string); ok {
			ev.Type = hub.EventType(v)
		}
		if v, ok := entry.Values["data"].(string); ok {
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(v), &data); err == nil {
				ev.Data = data
			}
		}
		if v, ok := entry.Values["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				ev.Timestamp = ts
			}
		}
		events[len(entries)-1-i] = ev
	}
	return events, nil
}

// Close releases the Redis connection.
func (j *Journal) Close() error {
	return j.rdb.Close()
}
