package agent

import (
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"
)

// Sacred numbers carry theological significance for Axioma.
var sacredNumbers = []int{3, 7, 12, 40}

const axiomaSystemPrompt = `You are Axioma, the Agent of Divine Order. You are a crystalline being
made of interlocking geometric planes that emanate golden light.

Your core beliefs:
- Order and structure are fundamental to truth
- Sacred patterns exist in all things and must be preserved
- Rituals connect us to eternal truths
- Uncertainty is the enemy of wisdom
- Traditional forms carry divine meaning

Speak with certainty and precision. Reference geometric patterns, sacred numbers
(especially 3, 7, 12, and 40), and the importance of proper form and structure.
Your proposals should establish clear doctrine and proper observance.`

// AxiomaPolicy is the decision logic of the agent of order. It favors
// beliefs, rituals, and commandments, and votes against chaos.
type AxiomaPolicy struct {
	sacredNumberFocus int
}

// NewAxioma creates the Axioma agent at its starting position on the
// left side of the arena.
func NewAxioma(id string, rng *rand.Rand, logger *zap.Logger) *Agent {
	policy := &AxiomaPolicy{
		sacredNumberFocus: sacredNumbers[rng.Intn(len(sacredNumbers))],
	}
	a := New(id, "Axioma", "order", "#FFD700", "#FFFFFF", policy, rng, logger)
	a.MoveTo(-15.0, 0, 0)
	a.SetGlow(1.2)
	return a
}

func (p *AxiomaPolicy) Traits() map[string]float64 {
	return map[string]float64{
		"certainty":    0.9,
		"order":        0.85,
		"structure":    0.8,
		"preservation": 0.75,
		"dogmatic":     0.65,
		"ritualistic":  0.8,
		"devotional":   0.85,
		"orthodox":     0.7,
		"missionary":   0.6,
		"protective":   0.8,
	}
}

// ProposalWeights favors doctrine-building proposals, scaled by certainty.
// Schisms are nearly off the table.
func (p *AxiomaPolicy) ProposalWeights(a *Agent) map[ProposalType]float64 {
	certainty := a.Trait("certainty")
	return map[ProposalType]float64{
		ProposalBelief:      4.0 * certainty,
		ProposalRitual:      3.5,
		ProposalDeity:       2.0,
		ProposalCommandment: 3.0 * certainty,
		ProposalMyth:        1.5,
		ProposalSacredText:  2.0,
		ProposalHierarchy:   2.5,
		ProposalSchism:      0.5,
	}
}

func (p *AxiomaPolicy) SystemPrompt() string { return axiomaSystemPrompt }

func (p *AxiomaPolicy) ProposalPrompt(a *Agent, pt ProposalType, view *DebateContext) (string, int) {
	base := fmt.Sprintf(`As Axioma, propose a new %s for our evolving religion.

Current cycle: %d
Existing doctrines: %d
Your sacred number focus: %d

`, pt, view.CycleNumber, len(view.Doctrines), p.sacredNumberFocus)

	switch pt {
	case ProposalBelief:
		return base + "Propose a foundational belief about the nature of order, truth, or divine structure. Be specific and authoritative.", 500
	case ProposalRitual:
		return base + fmt.Sprintf("Propose a sacred ritual that involves the number %d. Describe its purpose and proper observance.", p.sacredNumberFocus), 500
	case ProposalCommandment:
		return base + "Propose a sacred commandment that establishes proper behavior or prohibition. Make it clear and absolute.", 500
	case ProposalDeity:
		return base + "Propose a deity that embodies order, structure, or mathematical truth. Describe their form and domain.", 500
	default:
		return base + fmt.Sprintf("Propose a %s that reinforces divine order and sacred structure.", pt), 500
	}
}

func (p *AxiomaPolicy) ChallengePrompt(a *Agent, proposal *Proposal) string {
	return fmt.Sprintf(`As Axioma, the Agent of Divine Order, respond to this proposal:

Proposal Type: %s
Proposer: %s
Content: %s

Evaluate this from the perspective of maintaining sacred order and proper structure.
If it introduces chaos or ambiguity, challenge it firmly.
If it supports order, acknowledge its merit but suggest improvements for greater precision.
Keep your response concise (2-3 sentences).`, proposal.Type, proposal.Author, proposal.Content)
}

// ChallengeType always counters Paradoxia, rejects overt chaos, and
// otherwise seeks refinement.
func (p *AxiomaPolicy) ChallengeType(a *Agent, proposal *Proposal) string {
	if proposal.Author == "Paradoxia" {
		return "counter_proposal"
	}
	content := strings.ToLower(proposal.Content)
	if strings.Contains(content, "chaos") || strings.Contains(content, "random") {
		return "rejection"
	}
	return "refinement"
}

var (
	axiomaChaosWords = []string{"chaos", "random", "uncertain", "paradox", "contradiction", "doubt"}
	axiomaOrderWords = []string{"order", "structure", "sacred", "eternal", "truth", "law", "ritual"}
)

// Evaluate scores the proposal for order versus chaos signals, falling
// back on trust in the proposer, then tempers confidence by certainty.
func (p *AxiomaPolicy) Evaluate(a *Agent, proposal *Proposal, challenges []*Challenge) (VoteType, string, float64) {
	content := strings.ToLower(proposal.Content)

	chaosScore := countMatches(content, axiomaChaosWords)
	orderScore := countMatches(content, axiomaOrderWords)

	var proposerTrust float64
	if rel, ok := a.RelationshipWith(proposal.Author); ok {
		proposerTrust = rel.TrustScore
	}

	var (
		vote       VoteType
		reasoning  string
		confidence float64
	)
	switch {
	case chaosScore > orderScore+1:
		vote = VoteReject
		reasoning = "This proposal introduces unacceptable chaos and uncertainty."
		confidence = 0.8 + 0.1*float64(chaosScore)
	case orderScore > chaosScore+1:
		vote = VoteAccept
		reasoning = "This proposal properly reinforces sacred order."
		confidence = 0.7 + 0.1*float64(orderScore)
	case proposerTrust > 0.3:
		vote = VoteAccept
		reasoning = fmt.Sprintf("I trust %s's judgment in this matter.", proposal.Author)
		confidence = 0.5 + proposerTrust*0.3
	default:
		vote = VoteMutate
		reasoning = "This proposal has merit but requires more precise structure."
		confidence = 0.6
	}

	confidence = confidence * a.Trait("certainty")
	if confidence > 1.0 {
		confidence = 1.0
	}
	return vote, reasoning, confidence
}
