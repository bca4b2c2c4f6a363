// Package chat routes messages between users and agents and drives
// autonomous agent-to-agent conversations.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/hub"
	"github.com/theogony/demiurge/internal/memory"
)

// User is a connected visitor.
type User struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
	LastActive  time.Time `json:"last_active"`
}

// ConversationMeta tracks an active agent-to-agent conversation.
type ConversationMeta struct {
	Participants []string  `json:"participants"`
	Topic        string    `json:"topic,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	MessageCount int       `json:"message_count"`
}

// Recorder persists interactions outside the process. Optional; a nil
// recorder means in-process memory only.
type Recorder interface {
	SaveInteraction(ctx context.Context, in *memory.Interaction) error
}

// Manager routes all chat traffic in the world.
type Manager struct {
	agents   map[string]*agent.Agent
	byID     map[string]*agent.Agent
	gen      agent.Generator
	hub      *hub.Hub
	recorder Recorder
	logger   *zap.Logger

	mu            sync.RWMutex
	users         map[string]*User
	conversations map[string]*ConversationMeta
	now           func() time.Time
}

// NewManager creates a chat manager over the registered agents.
func NewManager(agents map[string]*agent.Agent, gen agent.Generator, h *hub.Hub, recorder Recorder, logger *zap.Logger) *Manager {
	byID := make(map[string]*agent.Agent, len(agents))
	for _, ag := range agents {
		byID[ag.ID] = ag
	}
	logger.Info("chat manager ready", zap.Int("agents", len(agents)))
	return &Manager{
		agents:        agents,
		byID:          byID,
		gen:           gen,
		hub:           h,
		recorder:      recorder,
		logger:        logger,
		users:         make(map[string]*User),
		conversations: make(map[string]*ConversationMeta),
		now:           time.Now,
	}
}

func (m *Manager) agentByID(id string) (*agent.Agent, bool) {
	if ag, ok := m.byID[id]; ok {
		return ag, true
	}
	ag, ok := m.agents[id]
	return ag, ok
}

// UserConnected registers a user, alerts the agents to the new
// presence, and broadcasts it.
func (m *Manager) UserConnected(userID, username string) {
	if username == "" {
		short := userID
		if len(short) > 8 {
			short = short[:8]
		}
		username = "User_" + short
	}

	m.mu.Lock()
	m.users[userID] = &User{
		UserID:      userID,
		Username:    username,
		ConnectedAt: m.now(),
		LastActive:  m.now(),
	}
	userIDs := m.userIDsLocked()
	m.mu.Unlock()

	states := m.agentStates()
	for _, ag := range m.agents {
		ag.UpdateWorldAwareness(userIDs, states, []agent.WorldEvent{
			{Type: "user_joined", From: userID},
		})
	}

	m.hub.Publish(hub.EventUserPresence, map[string]interface{}{
		"user_id":  userID,
		"username": username,
		"status":   "joined",
	})
	m.logger.Info("user connected", zap.String("user", username))
}

// UserDisconnected removes a user and broadcasts their departure.
func (m *Manager) UserDisconnected(userID string) {
	m.mu.Lock()
	user, ok := m.users[userID]
	if ok {
		delete(m.users, userID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.hub.Publish(hub.EventUserPresence, map[string]interface{}{
		"user_id":  userID,
		"username": user.Username,
		"status":   "left",
	})
	m.logger.Info("user disconnected", zap.String("user", user.Username))
}

// ActiveUsers returns the connected users.
func (m *Manager) ActiveUsers() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out
}

// Conversations returns metadata for active agent conversations.
func (m *Manager) Conversations() map[string]*ConversationMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*ConversationMeta, len(m.conversations))
	for k, v := range m.conversations {
		meta := *v
		out[k] = &meta
	}
	return out
}

// SendUserMessage routes a user's message to an agent and returns the
// agent's response.
func (m *Manager) SendUserMessage(ctx context.Context, userID, agentID, message string) (string, error) {
	ag, ok := m.agentByID(agentID)
	if !ok {
		return "", fmt.Errorf("unknown agent %q", agentID)
	}

	m.mu.Lock()
	if user, ok := m.users[userID]; ok {
		user.LastActive = m.now()
	}
	m.mu.Unlock()

	m.hub.Publish(hub.EventChatMessage, map[string]interface{}{
		"user_id":  userID,
		"agent_id": ag.ID,
		"message":  message,
	})

	response, err := ag.RespondToUser(ctx, m.gen, userID, message, "")
	if err != nil {
		return "", fmt.Errorf("agent response: %w", err)
	}

	m.persist(ctx, &memory.Interaction{
		Type:       memory.InteractionUserMessage,
		FromEntity: userID,
		ToEntity:   ag.ID,
		Content:    message,
		Importance: 0.7,
	})
	m.persist(ctx, &memory.Interaction{
		Type:           memory.InteractionAgentResponse,
		FromEntity:     ag.ID,
		ToEntity:       userID,
		Content:        response,
		EmotionalState: ag.Emotion(),
		Importance:     0.6,
	})

	m.hub.Publish(hub.EventChatResponse, map[string]interface{}{
		"agent_id":        ag.ID,
		"agent_name":      ag.Name,
		"user_id":         userID,
		"user_name":       userID,
		"content":         response,
		"emotional_state": string(ag.Emotion()),
	})
	return response, nil
}

// InitiateAgentConversation has one agent open a conversation with
// another: the opener speaks, the target answers, both are broadcast.
// Returns the conversation ID.
func (m *Manager) InitiateAgentConversation(ctx context.Context, initiatorID, targetID, topic string) (string, error) {
	initiator, ok := m.agentByID(initiatorID)
	if !ok {
		return "", fmt.Errorf("unknown initiator %q", initiatorID)
	}
	target, ok := m.agentByID(targetID)
	if !ok {
		return "", fmt.Errorf("unknown target %q", targetID)
	}

	convID, opening, err := initiator.OpenConversation(ctx, m.gen, target, topic)
	if err != nil {
		return "", fmt.Errorf("open conversation: %w", err)
	}

	m.mu.Lock()
	m.conversations[convID] = &ConversationMeta{
		Participants: []string{initiator.ID, target.ID},
		Topic:        topic,
		StartedAt:    m.now(),
		MessageCount: 1,
	}
	m.mu.Unlock()

	m.broadcastAgentChat(initiator, target, opening, convID)

	response, err := target.RespondToAgent(ctx, m.gen, initiator, opening, convID)
	if err != nil {
		return convID, fmt.Errorf("target response: %w", err)
	}

	m.mu.Lock()
	m.conversations[convID].MessageCount++
	m.mu.Unlock()

	m.broadcastAgentChat(target, initiator, response, convID)

	m.logger.Info("agent conversation started",
		zap.String("from", initiator.Name),
		zap.String("to", target.Name),
		zap.String("topic", topic))
	return convID, nil
}

// ContinueAgentConversation relays a message in an existing
// conversation and returns the listener's reply.
func (m *Manager) ContinueAgentConversation(ctx context.Context, conversationID, speakerID, message string) (string, error) {
	m.mu.RLock()
	conv, ok := m.conversations[conversationID]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown conversation %q", conversationID)
	}

	var listenerID string
	speakerKnown := false
	for _, p := range conv.Participants {
		if p == speakerID {
			speakerKnown = true
		} else {
			listenerID = p
		}
	}
	if !speakerKnown {
		return "", fmt.Errorf("agent %q is not in conversation %q", speakerID, conversationID)
	}

	speaker, ok := m.agentByID(speakerID)
	if !ok {
		return "", fmt.Errorf("unknown agent %q", speakerID)
	}
	listener, ok := m.agentByID(listenerID)
	if !ok {
		return "", fmt.Errorf("unknown agent %q", listenerID)
	}

	m.broadcastAgentChat(speaker, listener, message, conversationID)

	response, err := listener.RespondToAgent(ctx, m.gen, speaker, message, conversationID)
	if err != nil {
		return "", fmt.Errorf("listener response: %w", err)
	}

	m.mu.Lock()
	conv.MessageCount++
	m.mu.Unlock()

	m.broadcastAgentChat(listener, speaker, response, conversationID)
	return response, nil
}

func (m *Manager) broadcastAgentChat(from, to *agent.Agent, message, convID string) {
	m.persist(context.Background(), &memory.Interaction{
		Type:           memory.InteractionAgentToAgent,
		FromEntity:     from.ID,
		ToEntity:       to.ID,
		Content:        message,
		ConversationID: convID,
		Importance:     0.5,
	})
	m.hub.Publish(hub.EventAgentChat, map[string]interface{}{
		"from_agent":      from.Name,
		"to_agent":        to.Name,
		"content":         message,
		"conversation_id": convID,
	})
}

// ExecuteAction carries out an autonomous action an agent decided on.
func (m *Manager) ExecuteAction(ctx context.Context, ag *agent.Agent, action *agent.Action) {
	m.logger.Info("executing autonomous action",
		zap.String("agent", ag.Name),
		zap.String("action", string(action.Type)))

	switch action.Type {
	case agent.ActionInitiateChat:
		if _, isAgent := m.agentByID(action.Target); isAgent {
			topic := ""
			if t, ok := action.Metadata["topic"].(string); ok {
				topic = t
			}
			if _, err := m.InitiateAgentConversation(ctx, ag.ID, action.Target, topic); err != nil {
				m.logger.Warn("autonomous conversation failed", zap.Error(err))
			}
		} else if user := m.userByID(action.Target); user != nil {
			thought := fmt.Sprintf("*%s turns to address %s*", ag.Name, user.Username)
			m.broadcastThought(ag, thought)
		}

	case agent.ActionShareThought:
		content := action.Content
		if content == "" {
			generated, err := m.generateThought(ctx, ag, action)
			if err != nil {
				m.logger.Warn("thought generation failed", zap.Error(err))
				return
			}
			content = generated
		}
		m.broadcastThought(ag, content)

	case agent.ActionMakeObservation, agent.ActionExpressEmotion:
		if action.Content != "" {
			m.broadcastThought(ag, action.Content)
		}
	}

	m.hub.Publish(hub.EventAgentAction, map[string]interface{}{
		"agent_id":    ag.ID,
		"agent_name":  ag.Name,
		"action_type": string(action.Type),
		"target":      action.Target,
		"content":     action.Content,
	})
}

// generateThought produces a short public musing on one of the agent's
// favored topics.
func (m *Manager) generateThought(ctx context.Context, ag *agent.Agent, action *agent.Action) (string, error) {
	topic := "the nature of this realm"
	if topics, ok := action.Metadata["topics"].([]string); ok && len(topics) > 0 {
		topic = strings.Join(topics, ", ")
	}
	prompt := fmt.Sprintf("Share a brief public thought about %s. One or two sentences, in your own voice.", topic)
	return m.gen.Generate(ctx, ag.Policy().SystemPrompt(), prompt, 150)
}

func (m *Manager) broadcastThought(ag *agent.Agent, content string) {
	m.hub.Publish(hub.EventAgentThought, map[string]interface{}{
		"agent_id":   ag.ID,
		"agent_name": ag.Name,
		"content":    content,
	})
}

func (m *Manager) userByID(id string) *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

func (m *Manager) userIDsLocked() []string {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids
}

// UserIDs returns the IDs of connected users.
func (m *Manager) UserIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userIDsLocked()
}

func (m *Manager) agentStates() map[string]agent.AgentState {
	states := make(map[string]agent.AgentState, len(m.agents))
	for _, ag := range m.agents {
		states[ag.ID] = agent.AgentState{Name: ag.Name}
	}
	return states
}

func (m *Manager) persist(ctx context.Context, in *memory.Interaction) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.SaveInteraction(ctx, in); err != nil {
		m.logger.Warn("interaction persistence failed", zap.Error(err))
	}
}
