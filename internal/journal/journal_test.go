package journal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/hub"
)

type fakeStream struct {
	added []*redis.XAddArgs
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.added = append(f.added, a)
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStream) XRevRangeN(_ context.Context, _, _, _ string, count int64) *redis.XMessageSliceCmd {
	// Newest first, as XREVRANGE returns them.
	entries := make([]redis.XMessage, 0, len(f.added))
	for i := len(f.added) - 1; i >= 0; i-- {
		entries = append(entries, redis.XMessage{
			ID:     "1-0",
			Values: f.added[i].Values.(map[string]interface{}),
		})
	}
	if int64(len(entries)) > count {
		entries = entries[:count]
	}
	return redis.NewXMessageSliceCmdResult(entries, nil)
}

func (f *fakeStream) Close() error { return nil }

func newTestJournal() (*Journal, *fakeStream) {
	fake := &fakeStream{}
	return &Journal{rdb: fake, stream: defaultStream, logger: zap.NewNop()}, fake
}

func TestDeliverEncodesEventFields(t *testing.T) {
	j, fake := newTestJournal()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := j.Deliver(&hub.Event{
		Type:      hub.EventProposal,
		Data:      map[string]interface{}{"author": "Veridicus"},
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}

	if len(fake.added) != 1 {
		t.Fatalf("XADD calls = %d, want 1", len(fake.added))
	}
	args := fake.added[0]
	if args.Stream != defaultStream {
		t.Errorf("stream = %q, want %q", args.Stream, defaultStream)
	}
	if args.MaxLen != maxStreamLen || !args.Approx {
		t.Errorf("trim = %d approx %v, want %d approx true", args.MaxLen, args.Approx, maxStreamLen)
	}

	values := args.Values.(map[string]interface{})
	if got := values["type"]; got != "proposal" {
		t.Errorf("type field = %v, want proposal", got)
	}
	if data, _ := values["data"].(string); !strings.Contains(data, `"author":"Veridicus"`) {
		t.Errorf("data field %q does not carry the author", data)
	}
	if got := values["timestamp"]; got != ts.Format(time.RFC3339Nano) {
		t.Errorf("timestamp field = %v, want %s", got, ts.Format(time.RFC3339Nano))
	}
}

func TestReplayRoundTrip(t *testing.T) {
	j, _ := newTestJournal()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := j.Deliver(&hub.Event{
			Type:      hub.EventCycleStart,
			Data:      map[string]interface{}{"cycle": float64(i + 1)},
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Deliver() error: %v", err)
		}
	}

	events, err := j.Replay(context.Background(), 10)
	if err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("replayed %d events, want 3", len(events))
	}
	// Oldest first, ready for hub seeding.
	for i, ev := range events {
		if ev.Type != hub.EventCycleStart {
			t.Errorf("event %d type = %q, want %q", i, ev.Type, hub.EventCycleStart)
		}
		if got := ev.Data["cycle"]; got != float64(i+1) {
			t.Errorf("event %d cycle = %v, want %v", i, got, float64(i+1))
		}
		if want := base.Add(time.Duration(i) * time.Minute); !ev.Timestamp.Equal(want) {
			t.Errorf("event %d timestamp = %v, want %v", i, ev.Timestamp, want)
		}
	}
}

func TestReplayLimitsCount(t *testing.T) {
	j, _ := newTestJournal()
	for i := 0; i < 5; i++ {
		j.Deliver(&hub.Event{
			Type:      hub.EventAgentThought,
			Data:      map[string]interface{}{"n": float64(i)},
			Timestamp: time.Now(),
		})
	}

	events, err := j.Replay(context.Background(), 2)
	if err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("replayed %d events, want 2", len(events))
	}
	// The two most recent, oldest first.
	if got := events[0].Data["n"]; got != float64(3) {
		t.Errorf("first event n = %v, want 3", got)
	}
	if got := events[1].Data["n"]; got != float64(4) {
		t.Errorf("second event n = %v, want 4", got)
	}
}
