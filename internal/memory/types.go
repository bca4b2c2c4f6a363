// Package memory stores agent interactions and conversations, both in
// process for prompt context and in Neo4j for durable recall.
package memory

import "time"

// InteractionType categorizes recorded interactions.
type InteractionType string

const (
	InteractionUserMessage   InteractionType = "user_message"
	InteractionAgentResponse InteractionType = "agent_response"
	InteractionAgentToAgent  InteractionType = "agent_to_agent"
	InteractionAgentThought  InteractionType = "agent_thought"
	InteractionWorldAction   InteractionType = "world_action"
	InteractionObservation   InteractionType = "observation"
)

// EmotionalState describes an agent's mood at interaction time.
type EmotionalState string

const (
	EmotionNeutral       EmotionalState = "neutral"
	EmotionCurious       EmotionalState = "curious"
	EmotionPleased       EmotionalState = "pleased"
	EmotionConcerned     EmotionalState = "concerned"
	EmotionExcited       EmotionalState = "excited"
	EmotionContemplative EmotionalState = "contemplative"
	EmotionFrustrated    EmotionalState = "frustrated"
	EmotionInspired      EmotionalState = "inspired"
)

// Interaction is a single recorded exchange involving an agent.
type Interaction struct {
	ID             string                 `json:"id"`
	Timestamp      time.Time              `json:"timestamp"`
	Type           InteractionType        `json:"interaction_type"`
	FromEntity     string                 `json:"from_entity"`
	ToEntity       string                 `json:"to_entity"`
	Content        string                 `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	EmotionalState EmotionalState         `json:"emotional_state,omitempty"`
	Importance     float64                `json:"importance"`
	ConversationID string                 `json:"conversation_id,omitempty"`
}

// Conversation is a thread of interactions between entities.
type Conversation struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	Participants []string  `json:"participants"`
	Topic        string    `json:"topic,omitempty"`
	IsActive     bool      `json:"is_active"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
}

// EntityMemory summarizes an agent's history with one entity.
type EntityMemory struct {
	FirstInteraction     time.Time `json:"first_interaction"`
	LastInteraction      time.Time `json:"last_interaction"`
	TotalInteractions    int       `json:"total_interactions"`
	PositiveInteractions int       `json:"positive_interactions"`
	Sentiment            float64   `json:"relationship_sentiment"`
}

// RecallFilter narrows interaction recall.
type RecallFilter struct {
	WithEntity    string
	Type          InteractionType
	MinImportance float64
	Limit         int
}
