package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType categorizes broadcast events.
type EventType string

const (
	EventCycleStart     EventType = "cycle_start"
	EventCycleEnd       EventType = "cycle_end"
	EventDebatePhase    EventType = "debate_phase"
	EventProposal       EventType = "proposal"
	EventChallenge      EventType = "challenge"
	EventVote           EventType = "vote"
	EventDebateResult   EventType = "debate_result"
	EventStructureSpawn EventType = "structure_spawn"
	EventAgentUpdate    EventType = "agent_update"
	EventAgentThought   EventType = "agent_thought"
	EventAgentAction    EventType = "agent_action"
	EventChatMessage    EventType = "chat_message"
	EventChatResponse   EventType = "chat_response"
	EventAgentChat      EventType = "agent_chat"
	EventUserPresence   EventType = "user_presence"
	EventWorldState     EventType = "world_state"
)

// Event is a typed broadcast message delivered to all listeners.
type Event struct {
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Listener receives events. Deliver must be safe for concurrent use; a
// returned error marks the listener dead and it is pruned from the hub.
type Listener interface {
	ID() string
	Deliver(ev *Event) error
}

const historySize = 100

// Hub fans events out to registered listeners. Delivery is best-effort:
// a failed listener is dropped and the batch continues.
type Hub struct {
	listeners map[string]Listener
	history   []*Event
	mu        sync.RWMutex
	logger    *zap.Logger
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		listeners: make(map[string]Listener),
		logger:    logger,
	}
}

// Add registers a listener.
func (h *Hub) Add(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[l.ID()] = l
	h.logger.Info("listener registered", zap.String("listener", l.ID()))
}

// Remove unregisters a listener by ID.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		h.logger.Info("listener removed", zap.String("listener", id))
	}
}

// ListenerCount returns the number of live listeners.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Publish delivers an event to every listener. Listeners whose Deliver
// fails are pruned; the rest of the batch is unaffected.
func (h *Hub) Publish(evType EventType, data map[string]interface{}) {
	ev := &Event{Type: evType, Data: data, Timestamp: time.Now()}

	h.mu.Lock()
	h.history = append(h.history, ev)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	targets := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		targets = append(targets, l)
	}
	h.mu.Unlock()

	var dead []string
	for _, l := range targets {
		if err := l.Deliver(ev); err != nil {
			h.logger.Warn("listener delivery failed, pruning",
				zap.String("listener", l.ID()),
				zap.String("event", string(evType)),
				zap.Error(err))
			dead = append(dead, l.ID())
		}
	}
	for _, id := range dead {
		h.Remove(id)
	}
}

// Seed preloads the history with previously journaled events, oldest
// first. Seeded events sit before anything published afterwards; the
// history cap still applies.
func (h *Hub) Seed(events []*Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	merged := make([]*Event, 0, len(events)+len(h.history))
	merged = append(merged, events...)
	merged = append(merged, h.history...)
	if len(merged) > historySize {
		merged = merged[len(merged)-historySize:]
	}
	h.history = merged
}

// History returns the most recent events, newest last.
func (h *Hub) History(limit int) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}
	out := make([]*Event, limit)
	copy(out, h.history[len(h.history)-limit:])
	return out
}
