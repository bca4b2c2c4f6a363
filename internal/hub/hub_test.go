package hub

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type recordingListener struct {
	id     string
	events []*Event
	fail   bool
}

func (l *recordingListener) ID() string { return l.id }

func (l *recordingListener) Deliver(ev *Event) error {
	if l.fail {
		return errors.New("delivery refused")
	}
	l.events = append(l.events, ev)
	return nil
}

func TestPublishFansOut(t *testing.T) {
	h := New(zap.NewNop())
	a := &recordingListener{id: "a"}
	b := &recordingListener{id: "b"}
	h.Add(a)
	h.Add(b)

	h.Publish(EventCycleStart, map[string]interface{}{"cycle": 1})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("deliveries = %d, %d, want 1, 1", len(a.events), len(b.events))
	}
	if a.events[0].Type != EventCycleStart {
		t.Errorf("event type = %q, want %q", a.events[0].Type, EventCycleStart)
	}
}

func TestPublishPrunesFailedListener(t *testing.T) {
	h := New(zap.NewNop())
	good := &recordingListener{id: "good"}
	bad := &recordingListener{id: "bad", fail: true}
	h.Add(good)
	h.Add(bad)

	h.Publish(EventAgentUpdate, nil)

	if got := h.ListenerCount(); got != 1 {
		t.Fatalf("ListenerCount() = %d, want 1", got)
	}
	if len(good.events) != 1 {
		t.Errorf("healthy listener deliveries = %d, want 1", len(good.events))
	}

	// Subsequent publishes skip the pruned listener.
	h.Publish(EventAgentUpdate, nil)
	if len(good.events) != 2 {
		t.Errorf("deliveries after prune = %d, want 2", len(good.events))
	}
}

func TestHistoryKeepsRecentEvents(t *testing.T) {
	h := New(zap.NewNop())
	for i := 0; i < historySize+20; i++ {
		h.Publish(EventAgentThought, map[string]interface{}{"n": i})
	}

	all := h.History(0)
	if len(all) != historySize {
		t.Fatalf("history length = %d, want %d", len(all), historySize)
	}
	if got := all[len(all)-1].Data["n"]; got != historySize+19 {
		t.Errorf("newest event n = %v, want %d", got, historySize+19)
	}

	last5 := h.History(5)
	if len(last5) != 5 {
		t.Fatalf("History(5) length = %d, want 5", len(last5))
	}
}

func TestSeedPrependsHistory(t *testing.T) {
	h := New(zap.NewNop())
	h.Publish(EventCycleStart, map[string]interface{}{"cycle": 5})

	h.Seed([]*Event{
		{Type: EventCycleStart, Data: map[string]interface{}{"cycle": 3}},
		{Type: EventCycleEnd, Data: map[string]interface{}{"cycle": 3}},
	})

	all := h.History(0)
	if len(all) != 3 {
		t.Fatalf("history length = %d, want 3", len(all))
	}
	if got := all[0].Data["cycle"]; got != 3 {
		t.Errorf("oldest event cycle = %v, want 3", got)
	}
	if got := all[2].Data["cycle"]; got != 5 {
		t.Errorf("newest event cycle = %v, want 5", got)
	}
}

func TestSeedRespectsHistoryCap(t *testing.T) {
	h := New(zap.NewNop())
	h.Publish(EventCycleStart, map[string]interface{}{"n": "live"})

	seeded := make([]*Event, historySize+10)
	for i := range seeded {
		seeded[i] = &Event{Type: EventAgentThought, Data: map[string]interface{}{"n": i}}
	}
	h.Seed(seeded)

	all := h.History(0)
	if len(all) != historySize {
		t.Fatalf("history length = %d, want %d", len(all), historySize)
	}
	if got := all[len(all)-1].Data["n"]; got != "live" {
		t.Errorf("newest event = %v, want the live publish", got)
	}
}

func TestRelayMessageFormatting(t *testing.T) {
	ev := &Event{
		Type: EventStructureSpawn,
		Data: map[string]interface{}{"name": "Monument of Cycle 3"},
	}
	got := formatRelayMessage(ev)
	want := "A new structure rises: **Monument of Cycle 3**"
	if got != want {
		t.Errorf("formatRelayMessage() = %q, want %q", got, want)
	}

	if formatRelayMessage(&Event{Type: EventAgentUpdate}) != "" {
		t.Error("non-relayed event should format to empty string")
	}
}
