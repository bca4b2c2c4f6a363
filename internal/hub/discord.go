package hub

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// relayedEvents are the event types mirrored to external relay channels.
// High-frequency events (agent movement, phase ticks) stay off the relays.
var relayedEvents = map[EventType]bool{
	EventProposal:       true,
	EventDebateResult:   true,
	EventStructureSpawn: true,
	EventAgentChat:      true,
	EventChatResponse:   true,
}

// DiscordRelay mirrors notable world events into a Discord channel.
type DiscordRelay struct {
	token     string
	channelID string
	session   *discordgo.Session
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewDiscordRelay creates a relay for the given bot token and channel.
func NewDiscordRelay(token, channelID string, logger *zap.Logger) *DiscordRelay {
	return &DiscordRelay{
		token:     token,
		channelID: channelID,
		logger:    logger,
	}
}

func (r *DiscordRelay) ID() string { return "discord-relay" }

// Connect opens the Discord session. Must be called before the relay is
// added to the hub.
func (r *DiscordRelay) Connect() error {
	session, err := discordgo.New("Bot " + r.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages
	if err := session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
	r.logger.Info("discord relay connected", zap.String("channel", r.channelID))
	return nil
}

// Deliver posts relayed event types as channel messages.
func (r *DiscordRelay) Deliver(ev *Event) error {
	if !relayedEvents[ev.Type] {
		return nil
	}
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return fmt.Errorf("discord relay not connected")
	}
	content := formatRelayMessage(ev)
	if content == "" {
		return nil
	}
	if _, err := session.ChannelMessageSend(r.channelID, content); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close shuts down the Discord session.
func (r *DiscordRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

// formatRelayMessage renders an event as a short human-readable line.
func formatRelayMessage(ev *Event) string {
	str := func(key string) string {
		if v, ok := ev.Data[key].(string); ok {
			return v
		}
		return ""
	}
	switch ev.Type {
	case EventProposal:
		return fmt.Sprintf("**%s** proposes [%s]: %s", str("agent_name"), str("proposal_type"), str("content"))
	case EventDebateResult:
		return fmt.Sprintf("Cycle %v resolved: **%s**", ev.Data["cycle"], str("outcome"))
	case EventStructureSpawn:
		return fmt.Sprintf("A new structure rises: **%s**", str("name"))
	case EventAgentChat:
		return fmt.Sprintf("**%s** → **%s**: %s", str("from_agent"), str("to_agent"), str("content"))
	case EventChatResponse:
		return fmt.Sprintf("**%s** answers %s: %s", str("agent_name"), str("user_name"), str("content"))
	}
	return ""
}
