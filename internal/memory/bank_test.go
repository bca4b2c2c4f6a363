package memory

import (
	"strings"
	"testing"
	"time"
)

func newTestBank() *Bank {
	b := NewBank("agent_axioma", "Axioma")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	b.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return b
}

func TestRecordUpdatesEntityMemory(t *testing.T) {
	b := newTestBank()

	b.Record(&Interaction{
		Type:           InteractionUserMessage,
		FromEntity:     "user_1",
		ToEntity:       "agent_axioma",
		Content:        "What is order?",
		EmotionalState: EmotionCurious,
		Importance:     0.7,
	})
	b.Record(&Interaction{
		Type:           InteractionAgentResponse,
		FromEntity:     "agent_axioma",
		ToEntity:       "user_1",
		Content:        "Order is the lattice of truth.",
		EmotionalState: EmotionPleased,
		Importance:     0.6,
	})

	mem, ok := b.EntityMemoryFor("user_1")
	if !ok {
		t.Fatal("entity memory for user_1 not found")
	}
	if mem.TotalInteractions != 2 {
		t.Errorf("TotalInteractions = %d, want 2", mem.TotalInteractions)
	}
	if mem.PositiveInteractions != 2 {
		t.Errorf("PositiveInteractions = %d, want 2", mem.PositiveInteractions)
	}
	if got, want := mem.Sentiment, 0.1; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("Sentiment = %v, want %v", got, want)
	}
}

func TestRecallFiltersAndOrders(t *testing.T) {
	b := newTestBank()

	b.Record(&Interaction{Type: InteractionUserMessage, FromEntity: "user_1", ToEntity: "agent_axioma", Content: "first", Importance: 0.3})
	b.Record(&Interaction{Type: InteractionAgentToAgent, FromEntity: "agent_veridicus", ToEntity: "agent_axioma", Content: "second", Importance: 0.9})
	b.Record(&Interaction{Type: InteractionUserMessage, FromEntity: "user_1", ToEntity: "agent_axioma", Content: "third", Importance: 0.5})

	got := b.Recall(RecallFilter{WithEntity: "user_1"})
	if len(got) != 2 {
		t.Fatalf("recall with user_1 = %d interactions, want 2", len(got))
	}
	if got[0].Content != "third" {
		t.Errorf("newest first: got %q, want %q", got[0].Content, "third")
	}

	important := b.Recall(RecallFilter{MinImportance: 0.8})
	if len(important) != 1 || important[0].Content != "second" {
		t.Errorf("importance filter returned %d results", len(important))
	}
}

func TestContextForUnknownEntity(t *testing.T) {
	b := newTestBank()
	got := b.ContextFor("stranger", 5)
	if !strings.Contains(got, "first interaction") {
		t.Errorf("ContextFor(stranger) = %q, want first-interaction notice", got)
	}
}

func TestContextForKnownEntity(t *testing.T) {
	b := newTestBank()
	for i := 0; i < 8; i++ {
		b.Record(&Interaction{
			Type:           InteractionUserMessage,
			FromEntity:     "user_1",
			ToEntity:       "agent_axioma",
			Content:        "hello",
			EmotionalState: EmotionPleased,
			Importance:     0.5,
		})
	}

	got := b.ContextFor("user_1", 3)
	if !strings.Contains(got, "8 times") {
		t.Errorf("context missing interaction count: %q", got)
	}
	if !strings.Contains(got, "warm") {
		t.Errorf("context missing warm relationship: %q", got)
	}
}

func TestConversationLifecycle(t *testing.T) {
	b := newTestBank()
	conv := b.StartConversation([]string{"agent_axioma", "agent_paradoxia"}, "the nature of order")

	if !conv.IsActive {
		t.Fatal("new conversation should be active")
	}
	b.EndConversation(conv.ID)

	got, ok := b.Conversation(conv.ID)
	if !ok {
		t.Fatal("conversation not found after ending")
	}
	if got.IsActive {
		t.Error("conversation still active after EndConversation")
	}
	if got.EndedAt.IsZero() {
		t.Error("EndedAt not set")
	}
}
