// Package agent implements the three philosophical agents and their
// debate, autonomy, and relationship mechanics.
package agent

import (
	"context"
	"time"
)

// ProposalType classifies theological proposals.
type ProposalType string

const (
	ProposalBelief      ProposalType = "belief"
	ProposalRitual      ProposalType = "ritual"
	ProposalDeity       ProposalType = "deity"
	ProposalCommandment ProposalType = "commandment"
	ProposalMyth        ProposalType = "myth"
	ProposalSacredText  ProposalType = "sacred_text"
	ProposalHierarchy   ProposalType = "hierarchy"
	ProposalSchism      ProposalType = "schism"
)

// VoteType is one of the four voting options.
type VoteType string

const (
	VoteAccept VoteType = "accept"
	VoteReject VoteType = "reject"
	VoteMutate VoteType = "mutate"
	VoteDelay  VoteType = "delay"
)

// AllVoteTypes lists the vote options in declaration order.
var AllVoteTypes = []VoteType{VoteAccept, VoteReject, VoteMutate, VoteDelay}

// Proposal is a theological proposal raised during a debate cycle.
type Proposal struct {
	ID        string                 `json:"id"`
	Type      ProposalType           `json:"type"`
	Content   string                 `json:"content"`
	Author    string                 `json:"author"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Challenge is one agent's response to another's proposal.
type Challenge struct {
	AgentID       string    `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	Content       string    `json:"content"`
	ChallengeType string    `json:"challenge_type"`
	Timestamp     time.Time `json:"timestamp"`
}

// Vote is a cast ballot with reasoning and confidence.
type Vote struct {
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Vote       VoteType  `json:"vote"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Position is a location in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Relationship tracks one agent's standing with another entity.
type Relationship struct {
	TrustScore        float64 `json:"trust_score"`
	AgreementRate     float64 `json:"agreement_rate"`
	TotalInteractions int     `json:"total_interactions"`
	Alliances         int     `json:"alliances"`
	Conflicts         int     `json:"conflicts"`
}

// DebateContext is the slice of world state an agent sees when
// generating proposals and challenges.
type DebateContext struct {
	CycleNumber int
	Doctrines   []string
}

// Generator produces text from a system and user prompt. The provider
// router satisfies it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}
