package chat

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/hub"
)

type scriptedGenerator struct {
	response string
	prompts  []string
}

func (g *scriptedGenerator) Generate(_ context.Context, _, prompt string, _ int) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.response, nil
}

type collectingListener struct {
	events []*hub.Event
}

func (l *collectingListener) ID() string { return "collector" }
func (l *collectingListener) Deliver(ev *hub.Event) error {
	l.events = append(l.events, ev)
	return nil
}

func (l *collectingListener) ofType(t hub.EventType) []*hub.Event {
	var out []*hub.Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestManager(t *testing.T, response string) (*Manager, *scriptedGenerator, *collectingListener) {
	t.Helper()
	logger := zap.NewNop()
	agents := map[string]*agent.Agent{
		"Axioma":    agent.NewAxioma("agent_axioma", rand.New(rand.NewSource(1)), logger),
		"Veridicus": agent.NewVeridicus("agent_veridicus", rand.New(rand.NewSource(2)), logger),
		"Paradoxia": agent.NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(3)), logger),
	}
	h := hub.New(logger)
	listener := &collectingListener{}
	h.Add(listener)
	gen := &scriptedGenerator{response: response}
	return NewManager(agents, gen, h, nil, logger), gen, listener
}

func TestUserConnectionLifecycle(t *testing.T) {
	m, _, listener := newTestManager(t, "greetings")

	m.UserConnected("user_abcdefgh_long", "")
	if got := len(m.ActiveUsers()); got != 1 {
		t.Fatalf("active users = %d, want 1", got)
	}
	if got := m.ActiveUsers()[0].Username; got != "User_user_abc" {
		t.Errorf("default username = %q, want %q", got, "User_user_abc")
	}

	// Agents notice the new presence.
	for name, ag := range m.agents {
		if ag.Autonomy.DesireCount() == 0 {
			t.Errorf("%s gained no desire from new user", name)
		}
	}

	m.UserDisconnected("user_abcdefgh_long")
	if got := len(m.ActiveUsers()); got != 0 {
		t.Errorf("active users after disconnect = %d, want 0", got)
	}

	presence := listener.ofType(hub.EventUserPresence)
	if len(presence) != 2 {
		t.Fatalf("presence events = %d, want 2", len(presence))
	}
	if presence[0].Data["status"] != "joined" || presence[1].Data["status"] != "left" {
		t.Errorf("presence statuses = %v, %v", presence[0].Data["status"], presence[1].Data["status"])
	}
}

func TestSendUserMessageRoundTrip(t *testing.T) {
	m, _, listener := newTestManager(t, "The spiral holds what the line cannot.")
	m.UserConnected("u1", "Asker")

	response, err := m.SendUserMessage(context.Background(), "u1", "Paradoxia", "why do you break things?")
	if err != nil {
		t.Fatalf("SendUserMessage() error: %v", err)
	}
	if response != "The spiral holds what the line cannot." {
		t.Errorf("response = %q", response)
	}

	msgs := listener.ofType(hub.EventChatMessage)
	if len(msgs) != 1 {
		t.Fatalf("chat_message events = %d, want 1", len(msgs))
	}
	if msgs[0].Data["user_id"] != "u1" {
		t.Errorf("chat_message user_id = %v", msgs[0].Data["user_id"])
	}

	responses := listener.ofType(hub.EventChatResponse)
	if len(responses) != 1 {
		t.Fatalf("chat_response events = %d, want 1", len(responses))
	}
	data := responses[0].Data
	if data["agent_name"] != "Paradoxia" {
		t.Errorf("chat_response agent_name = %v", data["agent_name"])
	}
	if data["content"] != response {
		t.Errorf("chat_response content = %v", data["content"])
	}
	// The message contains "why", so the agent turns curious.
	if data["emotional_state"] != "curious" {
		t.Errorf("emotional_state = %v, want curious", data["emotional_state"])
	}
}

func TestSendUserMessageUnknownAgent(t *testing.T) {
	m, _, _ := newTestManager(t, "x")
	if _, err := m.SendUserMessage(context.Background(), "u1", "Demiurge", "hello"); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestAgentConversation(t *testing.T) {
	m, _, listener := newTestManager(t, "I contest your geometry.")

	convID, err := m.InitiateAgentConversation(context.Background(), "Paradoxia", "Axioma", "sacred geometry")
	if err != nil {
		t.Fatalf("InitiateAgentConversation() error: %v", err)
	}

	convs := m.Conversations()
	meta, ok := convs[convID]
	if !ok {
		t.Fatalf("conversation %q not tracked", convID)
	}
	if meta.MessageCount != 2 {
		t.Errorf("message count = %d, want 2 after opening exchange", meta.MessageCount)
	}
	if meta.Topic != "sacred geometry" {
		t.Errorf("topic = %q", meta.Topic)
	}

	chats := listener.ofType(hub.EventAgentChat)
	if len(chats) != 2 {
		t.Fatalf("agent_chat events = %d, want 2", len(chats))
	}
	if chats[0].Data["from_agent"] != "Paradoxia" || chats[1].Data["from_agent"] != "Axioma" {
		t.Errorf("chat order: %v then %v", chats[0].Data["from_agent"], chats[1].Data["from_agent"])
	}

	if _, err := m.ContinueAgentConversation(context.Background(), convID, "Paradoxia", "And yet the circle laughs."); err != nil {
		t.Fatalf("ContinueAgentConversation() error: %v", err)
	}
	if got := m.Conversations()[convID].MessageCount; got != 4 {
		t.Errorf("message count after continuation = %d, want 4", got)
	}

	if _, err := m.ContinueAgentConversation(context.Background(), convID, "Veridicus", "May I interject?"); err == nil {
		t.Error("non-participant continuation succeeded")
	}
}

func TestExecuteActionShareThought(t *testing.T) {
	m, gen, listener := newTestManager(t, "All structure is a wager against entropy.")
	ag := m.agents["Veridicus"]

	m.ExecuteAction(context.Background(), ag, &agent.Action{
		Type:     agent.ActionShareThought,
		Target:   "world",
		Metadata: map[string]interface{}{"topics": []string{"empirical evidence"}},
	})

	thoughts := listener.ofType(hub.EventAgentThought)
	if len(thoughts) != 1 {
		t.Fatalf("agent_thought events = %d, want 1", len(thoughts))
	}
	if thoughts[0].Data["content"] != "All structure is a wager against entropy." {
		t.Errorf("thought content = %v", thoughts[0].Data["content"])
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "empirical evidence") {
		t.Errorf("thought prompt = %v", gen.prompts)
	}

	actions := listener.ofType(hub.EventAgentAction)
	if len(actions) != 1 {
		t.Fatalf("agent_action events = %d, want 1", len(actions))
	}
	if actions[0].Data["action_type"] != "share_thought" {
		t.Errorf("action_type = %v", actions[0].Data["action_type"])
	}
}

func TestExecuteActionAddressesUser(t *testing.T) {
	m, _, listener := newTestManager(t, "x")
	m.UserConnected("u1", "Wanderer")
	ag := m.agents["Axioma"]

	m.ExecuteAction(context.Background(), ag, &agent.Action{
		Type:   agent.ActionInitiateChat,
		Target: "u1",
	})

	thoughts := listener.ofType(hub.EventAgentThought)
	if len(thoughts) != 1 {
		t.Fatalf("agent_thought events = %d, want 1", len(thoughts))
	}
	want := "*Axioma turns to address Wanderer*"
	if thoughts[0].Data["content"] != want {
		t.Errorf("content = %v, want %q", thoughts[0].Data["content"], want)
	}
}

func TestExecuteActionEmotion(t *testing.T) {
	m, _, listener := newTestManager(t, "x")
	ag := m.agents["Paradoxia"]

	m.ExecuteAction(context.Background(), ag, &agent.Action{
		Type:    agent.ActionExpressEmotion,
		Target:  "world",
		Content: "*shifts colors playfully*",
	})

	thoughts := listener.ofType(hub.EventAgentThought)
	if len(thoughts) != 1 || thoughts[0].Data["content"] != "*shifts colors playfully*" {
		t.Errorf("thought events = %v", thoughts)
	}
}
