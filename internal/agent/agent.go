package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/memory"
)

// Policy encapsulates an archetype's decision logic: what it proposes,
// how it challenges, and how it votes. Voting is deterministic agent
// logic, not model-generated.
type Policy interface {
	Traits() map[string]float64
	ProposalWeights(a *Agent) map[ProposalType]float64
	SystemPrompt() string
	ProposalPrompt(a *Agent, pt ProposalType, view *DebateContext) (prompt string, maxTokens int)
	ChallengePrompt(a *Agent, p *Proposal) string
	ChallengeType(a *Agent, p *Proposal) string
	Evaluate(a *Agent, p *Proposal, challenges []*Challenge) (VoteType, string, float64)
}

// Metamorph is implemented by policies that can transform themselves.
type Metamorph interface {
	Metamorphose(a *Agent)
}

// Agent is one of the three philosophical debaters. All state mutations
// are guarded so the orchestrator, chat poller, and API can share it.
type Agent struct {
	ID        string
	Name      string
	Archetype string

	PrimaryColor   string
	SecondaryColor string

	mu                sync.Mutex
	glowIntensity     float64
	position          Position
	rotationY         float64
	animation         string
	traits            map[string]float64
	relationships     map[string]*Relationship
	debateHistory     []map[string]interface{}
	influenceScore    int
	proposalsMade     int
	proposalsAccepted int
	emotion           memory.EmotionalState

	Memory   *memory.Bank
	Autonomy *Autonomy

	policy Policy
	rng    *rand.Rand
	now    func() time.Time
	logger *zap.Logger
}

// New creates an agent with the given identity and policy.
func New(id, name, archetype, primaryColor, secondaryColor string, policy Policy, rng *rand.Rand, logger *zap.Logger) *Agent {
	a := &Agent{
		ID:             id,
		Name:           name,
		Archetype:      archetype,
		PrimaryColor:   primaryColor,
		SecondaryColor: secondaryColor,
		glowIntensity:  1.0,
		animation:      "idle",
		traits:         policy.Traits(),
		relationships:  make(map[string]*Relationship),
		influenceScore: 100,
		emotion:        memory.EmotionNeutral,
		Memory:         memory.NewBank(id, name),
		Autonomy:       NewAutonomy(id, name, archetype, rng, logger),
		policy:         policy,
		rng:            rng,
		now:            time.Now,
		logger:         logger,
	}
	logger.Info("agent initialized", zap.String("name", name), zap.String("archetype", archetype))
	return a
}

// Policy returns the agent's archetype policy.
func (a *Agent) Policy() Policy { return a.policy }

// SelectProposalType picks a proposal type weighted by the policy.
func (a *Agent) SelectProposalType() ProposalType {
	weights := a.policy.ProposalWeights(a)

	types := make([]ProposalType, 0, len(weights))
	total := 0.0
	for _, pt := range []ProposalType{
		ProposalBelief, ProposalRitual, ProposalDeity, ProposalCommandment,
		ProposalMyth, ProposalSacredText, ProposalHierarchy, ProposalSchism,
	} {
		if w, ok := weights[pt]; ok && w > 0 {
			types = append(types, pt)
			total += w
		}
	}
	if len(types) == 0 {
		return ProposalBelief
	}

	r := a.rng.Float64() * total
	cumulative := 0.0
	for _, pt := range types {
		cumulative += weights[pt]
		if r <= cumulative {
			return pt
		}
	}
	return types[len(types)-1]
}

// CreateProposal generates a new proposal for the current cycle.
func (a *Agent) CreateProposal(ctx context.Context, gen Generator, view *DebateContext) (*Proposal, error) {
	pt := a.SelectProposalType()
	prompt, maxTokens := a.policy.ProposalPrompt(a, pt, view)

	content, err := gen.Generate(ctx, a.policy.SystemPrompt(), prompt, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate proposal content: %w", err)
	}

	proposal := &Proposal{
		ID:      fmt.Sprintf("proposal_%d_%s", view.CycleNumber, a.Name),
		Type:    pt,
		Content: content,
		Author:  a.Name,
		Details: map[string]interface{}{
			"cycle":              view.CycleNumber,
			"proposer_archetype": a.Archetype,
		},
		Timestamp: a.now(),
	}

	a.mu.Lock()
	a.proposalsMade++
	a.mu.Unlock()

	a.logger.Info("proposal created",
		zap.String("agent", a.Name),
		zap.String("type", string(pt)))
	return proposal, nil
}

// ChallengeProposal generates this agent's challenge to a proposal.
func (a *Agent) ChallengeProposal(ctx context.Context, gen Generator, p *Proposal) (*Challenge, error) {
	content, err := gen.Generate(ctx, a.policy.SystemPrompt(), a.policy.ChallengePrompt(a, p), 200)
	if err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return &Challenge{
		AgentID:       a.ID,
		AgentName:     a.Name,
		Content:       content,
		ChallengeType: a.policy.ChallengeType(a, p),
		Timestamp:     a.now(),
	}, nil
}

// CastVote evaluates the proposal and returns a ballot.
func (a *Agent) CastVote(p *Proposal, challenges []*Challenge) *Vote {
	vote, reasoning, confidence := a.policy.Evaluate(a, p, challenges)
	return &Vote{
		AgentID:    a.ID,
		AgentName:  a.Name,
		Vote:       vote,
		Reasoning:  reasoning,
		Confidence: confidence,
		Timestamp:  a.now(),
	}
}

// UpdateRelationship records a vote agreement or disagreement with
// another agent. Agreement raises trust by 0.1, disagreement lowers it
// by 0.05, clamped to [-1, 1].
func (a *Agent) UpdateRelationship(other string, agreed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rel, ok := a.relationships[other]
	if !ok {
		rel = &Relationship{AgreementRate: 0.5}
		a.relationships[other] = rel
	}
	rel.TotalInteractions++

	if agreed {
		rel.TrustScore = clamp(rel.TrustScore+0.1, -1, 1)
		rel.Alliances++
	} else {
		rel.TrustScore = clamp(rel.TrustScore-0.05, -1, 1)
		rel.Conflicts++
	}

	if total := rel.Alliances + rel.Conflicts; total > 0 {
		rel.AgreementRate = float64(rel.Alliances) / float64(total)
	}
}

// RelationshipWith returns a copy of the relationship with an entity.
func (a *Agent) RelationshipWith(other string) (Relationship, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rel, ok := a.relationships[other]
	if !ok {
		return Relationship{}, false
	}
	return *rel, true
}

// RecordProposalOutcome adjusts influence after a debate: +10 on
// acceptance, -5 on rejection with a floor of zero.
func (a *Agent) RecordProposalOutcome(p *Proposal, accepted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if accepted {
		a.proposalsAccepted++
		a.influenceScore += 10
	} else {
		a.influenceScore -= 5
		if a.influenceScore < 0 {
			a.influenceScore = 0
		}
	}

	preview := p.Content
	if len(preview) > 100 {
		preview = preview[:100]
	}
	a.debateHistory = append(a.debateHistory, map[string]interface{}{
		"cycle":           p.Details["cycle"],
		"proposal_type":   string(p.Type),
		"content_preview": preview,
		"accepted":        accepted,
		"timestamp":       a.now().UTC().Format(time.RFC3339),
	})
}

// Trait returns a personality trait value, defaulting to 0.5.
func (a *Agent) Trait(name string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.traits[name]; ok {
		return v
	}
	return 0.5
}

// ModifyTrait shifts an existing trait, clamped to [0, 1].
func (a *Agent) ModifyTrait(name string, delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.traits[name]; ok {
		a.traits[name] = clamp(v+delta, 0, 1)
	}
}

// TraitNames returns the names of all personality traits.
func (a *Agent) TraitNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.traits))
	for name := range a.traits {
		names = append(names, name)
	}
	return names
}

// MoveTo sets the agent's position in world space.
func (a *Agent) MoveTo(x, y, z float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = Position{X: x, Y: y, Z: z}
}

// Pos returns the agent's current position.
func (a *Agent) Pos() Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// SetAnimation sets the current animation state.
func (a *Agent) SetAnimation(animation string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.animation = animation
}

// SetGlow sets the glow intensity.
func (a *Agent) SetGlow(intensity float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.glowIntensity = intensity
}

// Emotion returns the current emotional state.
func (a *Agent) Emotion() memory.EmotionalState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emotion
}

// InfluenceScore returns the agent's influence.
func (a *Agent) InfluenceScore() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.influenceScore
}

// ProposalStats returns proposals made and accepted.
func (a *Agent) ProposalStats() (made, accepted int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proposalsMade, a.proposalsAccepted
}

// Metamorphose transforms the agent if its policy supports it.
func (a *Agent) Metamorphose() bool {
	m, ok := a.policy.(Metamorph)
	if !ok {
		return false
	}
	m.Metamorphose(a)
	a.logger.Info("agent metamorphosed", zap.String("agent", a.Name))
	return true
}

// Snapshot returns the agent's visible state for broadcast and the API.
func (a *Agent) Snapshot() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	traits := make(map[string]float64, len(a.traits))
	for k, v := range a.traits {
		traits[k] = v
	}
	return map[string]interface{}{
		"id":        a.ID,
		"name":      a.Name,
		"archetype": a.Archetype,
		"position": map[string]float64{
			"x": a.position.X,
			"y": a.position.Y,
			"z": a.position.Z,
		},
		"rotation_y":        a.rotationY,
		"current_animation": a.animation,
		"primary_color":     a.PrimaryColor,
		"secondary_color":   a.SecondaryColor,
		"glow_intensity":    a.glowIntensity,
		"influence_score":   a.influenceScore,
		"emotional_state":   string(a.emotion),
		"traits":            traits,
	}
}

// RespondToUser handles an incoming user message: the exchange is
// recorded, the reply generated in persona, and a social desire toward
// the user registered.
func (a *Agent) RespondToUser(ctx context.Context, gen Generator, userID, message, conversationID string) (string, error) {
	a.Memory.Record(&memory.Interaction{
		Type:           memory.InteractionUserMessage,
		FromEntity:     userID,
		ToEntity:       a.ID,
		Content:        message,
		ConversationID: conversationID,
		Importance:     0.7,
	})

	prompt := fmt.Sprintf("%s\n\nA visitor to your realm, %s, says to you:\n%q\n\nRespond in your own voice. Keep it under four sentences.",
		a.Memory.ContextFor(userID, 5), userID, message)

	response, err := gen.Generate(ctx, a.policy.SystemPrompt(), prompt, 400)
	if err != nil {
		return "", fmt.Errorf("generate user response: %w", err)
	}

	a.updateEmotion(message, response)

	a.Memory.Record(&memory.Interaction{
		Type:           memory.InteractionAgentResponse,
		FromEntity:     a.ID,
		ToEntity:       userID,
		Content:        response,
		EmotionalState: a.Emotion(),
		ConversationID: conversationID,
		Importance:     0.6,
	})

	a.Autonomy.AddDesire(DesireSocial, 0.4, userID, "Recent conversation")
	return response, nil
}

// RespondToAgent handles a message from another agent.
func (a *Agent) RespondToAgent(ctx context.Context, gen Generator, from *Agent, message, conversationID string) (string, error) {
	a.Memory.Record(&memory.Interaction{
		Type:           memory.InteractionAgentToAgent,
		FromEntity:     from.ID,
		ToEntity:       a.ID,
		Content:        message,
		ConversationID: conversationID,
		Importance:     0.6,
	})

	prompt := fmt.Sprintf("%s\n\n%s, the agent of %s, says to you:\n%q\n\nRespond in your own voice. Keep it under four sentences.",
		a.Memory.ContextFor(from.ID, 5), from.Name, from.Archetype, message)

	response, err := gen.Generate(ctx, a.policy.SystemPrompt(), prompt, 400)
	if err != nil {
		return "", fmt.Errorf("generate agent response: %w", err)
	}

	a.Memory.Record(&memory.Interaction{
		Type:           memory.InteractionAgentToAgent,
		FromEntity:     a.ID,
		ToEntity:       from.ID,
		Content:        response,
		EmotionalState: a.Emotion(),
		ConversationID: conversationID,
		Importance:     0.5,
	})
	return response, nil
}

// OpenConversation starts a conversation with another agent and returns
// the conversation ID and opening message.
func (a *Agent) OpenConversation(ctx context.Context, gen Generator, target *Agent, topic string) (string, string, error) {
	conv := a.Memory.StartConversation([]string{a.ID, target.ID}, topic)

	subject := topic
	if subject == "" {
		subject = "whatever weighs on your mind"
	}
	prompt := fmt.Sprintf("%s\n\nYou approach %s, the agent of %s, to discuss %s. Open the conversation in your own voice, in two sentences or fewer.",
		a.Memory.ContextFor(target.ID, 5), target.Name, target.Archetype, subject)

	opening, err := gen.Generate(ctx, a.policy.SystemPrompt(), prompt, 300)
	if err != nil {
		return "", "", fmt.Errorf("generate conversation opener: %w", err)
	}

	a.Memory.Record(&memory.Interaction{
		Type:           memory.InteractionAgentToAgent,
		FromEntity:     a.ID,
		ToEntity:       target.ID,
		Content:        opening,
		EmotionalState: a.Emotion(),
		ConversationID: conv.ID,
		Importance:     0.5,
	})

	a.logger.Info("conversation initiated",
		zap.String("from", a.Name),
		zap.String("to", target.Name),
		zap.String("topic", subject))
	return conv.ID, opening, nil
}

// CheckAutonomousAction asks the autonomy engine whether the agent
// wants to act right now.
func (a *Agent) CheckAutonomousAction() *Action {
	return a.Autonomy.DecideAction()
}

// UpdateWorldAwareness refreshes the autonomy engine and applies a small
// desire decay per update.
func (a *Agent) UpdateWorldAwareness(users []string, agents map[string]AgentState, events []WorldEvent) {
	a.Autonomy.UpdateAwareness(users, agents, events)
	a.Autonomy.DecayDesires(0.1)
}

var (
	positiveKeywords = []string{"thank", "great", "wonderful", "agree", "yes", "beautiful", "amazing"}
	negativeKeywords = []string{"wrong", "disagree", "no", "bad", "terrible", "hate", "stupid"}
	curiousKeywords  = []string{"why", "how", "what", "explain", "tell me", "curious", "interesting"}
)

// updateEmotion derives emotional state from the exchange with a simple
// keyword heuristic. Curiosity wins over positive and negative signals.
func (a *Agent) updateEmotion(input, response string) {
	combined := strings.ToLower(input + " " + response)

	state := memory.EmotionNeutral
	switch {
	case containsAny(combined, curiousKeywords):
		state = memory.EmotionCurious
	case containsAny(combined, positiveKeywords):
		state = memory.EmotionPleased
	case containsAny(combined, negativeKeywords):
		state = memory.EmotionConcerned
	}

	a.mu.Lock()
	a.emotion = state
	a.mu.Unlock()
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func countMatches(content string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(content, w) {
			n++
		}
	}
	return n
}
