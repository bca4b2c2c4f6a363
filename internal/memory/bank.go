package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const importantThreshold = 0.8

// Bank is an agent's in-process interaction memory. Each agent keeps its
// own perspective on shared interactions.
type Bank struct {
	agentID   string
	agentName string

	mu            sync.RWMutex
	interactions  []*Interaction
	conversations map[string]*Conversation
	entities      map[string]*EntityMemory
	important     []string
	now           func() time.Time
}

// NewBank creates an empty memory bank for the given agent.
func NewBank(agentID, agentName string) *Bank {
	return &Bank{
		agentID:       agentID,
		agentName:     agentName,
		conversations: make(map[string]*Conversation),
		entities:      make(map[string]*EntityMemory),
		now:           time.Now,
	}
}

// Record stores a new interaction and updates entity memory. Interactions
// with importance >= 0.8 are flagged for long-term retention.
func (b *Bank) Record(in *Interaction) *Interaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = b.now()
	}
	b.interactions = append(b.interactions, in)

	other := in.FromEntity
	if other == b.agentID {
		other = in.ToEntity
	}
	b.updateEntity(other, in)

	if in.Importance >= importantThreshold {
		b.important = append(b.important, in.ID)
	}
	return in
}

func (b *Bank) updateEntity(entityID string, in *Interaction) {
	mem, ok := b.entities[entityID]
	if !ok {
		mem = &EntityMemory{FirstInteraction: in.Timestamp}
		b.entities[entityID] = mem
	}
	mem.TotalInteractions++
	mem.LastInteraction = in.Timestamp

	switch in.EmotionalState {
	case EmotionPleased, EmotionExcited, EmotionInspired, EmotionCurious:
		mem.Sentiment = min(1.0, mem.Sentiment+0.05)
		mem.PositiveInteractions++
	case EmotionFrustrated, EmotionConcerned:
		mem.Sentiment = max(-1.0, mem.Sentiment-0.03)
	}
}

// StartConversation opens a new conversation thread.
func (b *Bank) StartConversation(participants []string, topic string) *Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()

	conv := &Conversation{
		ID:           uuid.New().String(),
		StartedAt:    b.now(),
		Participants: participants,
		Topic:        topic,
		IsActive:     true,
	}
	b.conversations[conv.ID] = conv
	return conv
}

// EndConversation marks a conversation inactive.
func (b *Bank) EndConversation(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conv, ok := b.conversations[conversationID]; ok {
		conv.IsActive = false
		conv.EndedAt = b.now()
	}
}

// Conversation returns a conversation by ID.
func (b *Bank) Conversation(id string) (*Conversation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conv, ok := b.conversations[id]
	return conv, ok
}

// Recall returns past interactions matching the filter, newest first.
func (b *Bank) Recall(f RecallFilter) []*Interaction {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*Interaction
	for _, in := range b.interactions {
		if f.WithEntity != "" && in.FromEntity != f.WithEntity && in.ToEntity != f.WithEntity {
			continue
		}
		if f.Type != "" && in.Type != f.Type {
			continue
		}
		if in.Importance < f.MinImportance {
			continue
		}
		out = append(out, in)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// ContextFor renders a prompt-ready summary of past interactions with an
// entity, most recent exchanges included verbatim.
func (b *Bank) ContextFor(entityID string, maxInteractions int) string {
	b.mu.RLock()
	mem, known := b.entities[entityID]
	b.mu.RUnlock()

	if !known {
		return fmt.Sprintf("This is your first interaction with %s.", entityID)
	}
	if maxInteractions <= 0 {
		maxInteractions = 5
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have interacted with %s %d times.", entityID, mem.TotalInteractions)
	switch {
	case mem.Sentiment > 0.3:
		sb.WriteString(" Your relationship is warm.")
	case mem.Sentiment < -0.3:
		sb.WriteString(" Your relationship is strained.")
	}

	recent := b.Recall(RecallFilter{WithEntity: entityID, Limit: maxInteractions})
	if len(recent) > 0 {
		sb.WriteString("\nRecent exchanges:")
		for i := len(recent) - 1; i >= 0; i-- {
			in := recent[i]
			fmt.Fprintf(&sb, "\n- %s to %s: %s", in.FromEntity, in.ToEntity, truncate(in.Content, 120))
		}
	}
	return sb.String()
}

// EntityMemoryFor returns the summary for one entity.
func (b *Bank) EntityMemoryFor(entityID string) (*EntityMemory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mem, ok := b.entities[entityID]
	return mem, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
