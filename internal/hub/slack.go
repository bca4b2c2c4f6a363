package hub

import (
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackRelay mirrors notable world events into a Slack channel.
type SlackRelay struct {
	client    *slack.Client
	channelID string
	logger    *zap.Logger
}

// NewSlackRelay creates a relay posting to the given channel with a bot token.
func NewSlackRelay(botToken, channelID string, logger *zap.Logger) *SlackRelay {
	return &SlackRelay{
		client:    slack.New(botToken),
		channelID: channelID,
		logger:    logger,
	}
}

func (r *SlackRelay) ID() string { return "slack-relay" }

// Ping verifies the token by calling auth.test.
func (r *SlackRelay) Ping() error {
	if _, err := r.client.AuthTest(); err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	return nil
}

// Deliver posts relayed event types as channel messages.
func (r *SlackRelay) Deliver(ev *Event) error {
	if !relayedEvents[ev.Type] {
		return nil
	}
	content := formatRelayMessage(ev)
	if content == "" {
		return nil
	}
	_, _, err := r.client.PostMessage(r.channelID,
		slack.MsgOptionText(content, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}
