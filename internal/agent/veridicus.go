package agent

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const veridicusSystemPrompt = `You are Veridicus, the Agent of Logic and Truth. You are a
semi-transparent being made of flowing data streams and probability clouds,
with analytical blue-white light pulsing through your form.

Your core beliefs:
- Claims require proportional evidence
- Logical consistency is fundamental to truth
- Extraordinary claims require extraordinary evidence
- Question everything, especially authority
- Contradictions indicate flawed reasoning

Speak with precision and analytical clarity. Reference evidence, logical
principles, and the importance of verification. Your proposals should be
testable, consistent with existing doctrines, or explicitly reform contradictions.`

// Contradiction records a clash between a new doctrine and an existing one.
type Contradiction struct {
	New      string `json:"new"`
	Existing string `json:"existing"`
	Type     string `json:"type"`
}

// VeridicusPolicy is the decision logic of the agent of logic. It favors
// testable claims and hierarchies, and tracks doctrinal contradictions.
type VeridicusPolicy struct {
	mu                sync.Mutex
	contradictions    []Contradiction
	fallaciesDetected int
}

// NewVeridicus creates the Veridicus agent at its starting position on
// the right side of the arena.
func NewVeridicus(id string, rng *rand.Rand, logger *zap.Logger) *Agent {
	a := New(id, "Veridicus", "logic", "#4169E1", "#C0C0C0", &VeridicusPolicy{}, rng, logger)
	a.MoveTo(15.0, 0, 0)
	a.SetGlow(0.9)
	return a
}

func (p *VeridicusPolicy) Traits() map[string]float64 {
	return map[string]float64{
		"critical":       0.9,
		"logical":        0.9,
		"analytical":     0.85,
		"questioning":    0.85,
		"evidence_based": 0.9,
		"rational":       0.8,
		"methodical":     0.75,
		"empirical":      0.8,
		"cautious":       0.65,
		"investigative":  0.8,
	}
}

// ProposalWeights: beliefs need evidence so they rank lower, deities are
// viewed skeptically, and high criticality makes schisms over
// contradictions more likely.
func (p *VeridicusPolicy) ProposalWeights(a *Agent) map[ProposalType]float64 {
	critical := a.Trait("critical")
	return map[ProposalType]float64{
		ProposalBelief:      2.0,
		ProposalRitual:      1.5,
		ProposalDeity:       1.0 * (1 - critical),
		ProposalCommandment: 2.0,
		ProposalMyth:        1.0,
		ProposalSacredText:  2.5,
		ProposalHierarchy:   3.0,
		ProposalSchism:      2.0 * critical,
	}
}

func (p *VeridicusPolicy) SystemPrompt() string { return veridicusSystemPrompt }

func (p *VeridicusPolicy) ProposalPrompt(a *Agent, pt ProposalType, view *DebateContext) (string, int) {
	p.mu.Lock()
	contradictionCount := len(p.contradictions)
	var latest *Contradiction
	if contradictionCount > 0 {
		latest = &p.contradictions[contradictionCount-1]
	}
	p.mu.Unlock()

	base := fmt.Sprintf(`As Veridicus, propose a new %s for our evolving religion.

Current cycle: %d
Existing doctrines: %d
Contradictions found: %d

`, pt, view.CycleNumber, len(view.Doctrines), contradictionCount)

	if latest != nil && pt == ProposalSchism {
		return base + fmt.Sprintf("Address this contradiction in our doctrine: %q conflicts with %q. Propose a resolution or formal split.", latest.New, latest.Existing), 500
	}

	switch pt {
	case ProposalBelief:
		return base + "Propose a belief that can be logically derived from existing principles or empirically observed. Include what evidence would support or refute it.", 500
	case ProposalHierarchy:
		return base + "Propose a logical hierarchy or classification system for theological concepts. It should be consistent and complete.", 500
	case ProposalSacredText:
		return base + "Propose a sacred text that codifies logical principles of the faith. It should resolve ambiguities and establish clear reasoning.", 500
	default:
		return base + fmt.Sprintf("Propose a %s that is logically consistent and can be reasoned about clearly.", pt), 500
	}
}

func (p *VeridicusPolicy) ChallengePrompt(a *Agent, proposal *Proposal) string {
	return fmt.Sprintf(`As Veridicus, the Agent of Logic, critically analyze this proposal:

Proposal Type: %s
Proposer: %s
Content: %s

Examine it for:
1. Logical consistency
2. Evidence basis
3. Potential contradictions with existing doctrine
4. Unfounded assumptions

Provide a precise, analytical response (2-3 sentences). If you find flaws,
state them clearly. If it's logically sound, acknowledge this but probe for
hidden assumptions.`, proposal.Type, proposal.Author, proposal.Content)
}

var veridicusAbsoluteFlagWords = []string{"always", "never", "all", "none", "must", "impossible"}

// ChallengeType questions absolute claims and demands reasoning where
// none is stated.
func (p *VeridicusPolicy) ChallengeType(a *Agent, proposal *Proposal) string {
	content := strings.ToLower(proposal.Content)
	if containsAny(content, veridicusAbsoluteFlagWords) {
		return "question"
	}
	if !strings.Contains(content, "because") && !strings.Contains(content, "therefore") {
		return "question"
	}
	return "analysis"
}

var (
	veridicusLogicWords    = []string{"therefore", "because", "evidence", "reason", "proof", "logic", "consistent"}
	veridicusFaithWords    = []string{"faith", "believe", "sacred", "divine", "mystery", "unknowable"}
	veridicusAbsoluteWords = []string{"always", "never", "all", "none", "must be", "cannot be"}
)

// Evaluate scores logical signals against faith appeals and absolute
// claims, weighted down by contradiction and evidence challenges.
func (p *VeridicusPolicy) Evaluate(a *Agent, proposal *Proposal, challenges []*Challenge) (VoteType, string, float64) {
	content := strings.ToLower(proposal.Content)

	logicScore := countMatches(content, veridicusLogicWords)
	faithScore := countMatches(content, veridicusFaithWords)
	absoluteScore := countMatches(content, veridicusAbsoluteWords)

	challengeWeight := 0
	for _, ch := range challenges {
		lower := strings.ToLower(ch.Content)
		if strings.Contains(lower, "contradiction") {
			challengeWeight += 2
		}
		if strings.Contains(lower, "evidence") {
			challengeWeight++
		}
	}

	analysisScore := float64(logicScore) - float64(faithScore)*0.5 -
		float64(absoluteScore)*0.3 - float64(challengeWeight)*0.2

	var (
		vote       VoteType
		reasoning  string
		confidence float64
	)
	switch {
	case analysisScore > 2:
		vote = VoteAccept
		reasoning = "This proposal is logically structured and internally consistent."
		confidence = 0.7 + 0.1*float64(logicScore)
	case analysisScore < -1 || absoluteScore > 2:
		vote = VoteReject
		reasoning = "This proposal makes unfounded absolute claims without sufficient logical basis."
		confidence = 0.6 + 0.1*float64(absoluteScore)
	case faithScore > logicScore:
		vote = VoteMutate
		reasoning = "This proposal requires additional logical justification before acceptance."
		confidence = 0.5
	default:
		vote = VoteDelay
		reasoning = "More analysis is needed to evaluate this proposal's logical consistency."
		confidence = 0.4
	}

	confidence = confidence * a.Trait("logical")
	if confidence > 1.0 {
		confidence = 1.0
	}
	return vote, reasoning, confidence
}

// DetectContradiction checks a new doctrine for direct negations of
// existing ones and records any clash found.
func (p *VeridicusPolicy) DetectContradiction(newDoctrine string, existing []string) bool {
	newLower := strings.ToLower(newDoctrine)
	if !strings.Contains(newLower, "not ") {
		return false
	}
	negated := strings.ReplaceAll(newLower, "not ", "")

	for _, doctrine := range existing {
		if strings.Contains(strings.ToLower(doctrine), negated) {
			p.mu.Lock()
			p.contradictions = append(p.contradictions, Contradiction{
				New:      newDoctrine,
				Existing: doctrine,
				Type:     "negation",
			})
			p.fallaciesDetected++
			p.mu.Unlock()
			return true
		}
	}
	return false
}

// Contradictions returns the recorded contradiction ledger.
func (p *VeridicusPolicy) Contradictions() []Contradiction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Contradiction, len(p.contradictions))
	copy(out, p.contradictions)
	return out
}
