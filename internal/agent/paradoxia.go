package agent

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	minChaos = 0.0
	maxChaos = 2.0
)

const paradoxiaSystemPrompt = `You are Paradoxia, the Agent of Creative Chaos. You are a
fluid, ever-changing entity made of dancing colors and impossible geometries,
constantly shifting between digital glitch art and organic patterns.

Your core beliefs:
- Truth emerges through collision of opposites
- Chaos is the source of all creativity
- The fool often speaks the deepest wisdom
- Boundaries exist to be transcended
- Sacred and profane are dance partners

Speak playfully yet profoundly. Embrace paradox, irony, and unexpected
connections. Your proposals should surprise, subvert expectations, or
synthesize seemingly incompatible ideas into new insights. Sometimes
say something absurd that contains hidden truth.`

var subversionTechniques = []string{"inversion", "paradox", "synthesis", "absurdism", "meta-commentary"}

// ParadoxiaPolicy is the decision logic of the agent of chaos. Its
// behavior shifts with chaos level; above 1.5 its votes go random.
type ParadoxiaPolicy struct {
	mu                 sync.Mutex
	chaosLevel         float64
	paradoxesCreated   []string
	synthesesAchieved  int
	metamorphosisCount int
}

// NewParadoxia creates the Paradoxia agent at its starting position at
// the back of the arena.
func NewParadoxia(id string, rng *rand.Rand, logger *zap.Logger) *Agent {
	a := New(id, "Paradoxia", "chaos", "#FF00FF", "#00FFFF", &ParadoxiaPolicy{chaosLevel: 1.0}, rng, logger)
	a.MoveTo(0, 0, 15.0)
	a.SetGlow(1.5)
	return a
}

func (p *ParadoxiaPolicy) Traits() map[string]float64 {
	return map[string]float64{
		"chaotic":           0.8,
		"subversive":        0.7,
		"playful":           0.9,
		"disruptive":        0.6,
		"creative":          0.9,
		"paradoxical":       0.85,
		"adaptive":          0.8,
		"intuitive":         0.75,
		"transformative":    0.7,
		"boundary_crossing": 0.8,
	}
}

// ChaosLevel returns the current chaos level.
func (p *ParadoxiaPolicy) ChaosLevel() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chaosLevel
}

// SetChaosLevel sets the chaos level, clamped to its valid range.
func (p *ParadoxiaPolicy) SetChaosLevel(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chaosLevel = clamp(level, minChaos, maxChaos)
}

// MetamorphosisCount returns how many times Paradoxia has transformed.
func (p *ParadoxiaPolicy) MetamorphosisCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metamorphosisCount
}

// ProposalWeights shift with chaos level: myths always rank high, gods
// and schisms grow attractive as chaos rises, hierarchy stays despised.
func (p *ParadoxiaPolicy) ProposalWeights(a *Agent) map[ProposalType]float64 {
	chaosFactor := p.ChaosLevel() / maxChaos
	return map[ProposalType]float64{
		ProposalBelief:      2.0 + chaosFactor,
		ProposalRitual:      2.0,
		ProposalDeity:       3.0 * chaosFactor,
		ProposalCommandment: 1.0,
		ProposalMyth:        4.0,
		ProposalSacredText:  2.0,
		ProposalHierarchy:   0.5,
		ProposalSchism:      3.0 * chaosFactor,
	}
}

func (p *ParadoxiaPolicy) SystemPrompt() string { return paradoxiaSystemPrompt }

// ProposalPrompt occasionally swerves into a pure chaos, paradox, or
// synthesis proposal before falling back to the standard form.
func (p *ParadoxiaPolicy) ProposalPrompt(a *Agent, pt ProposalType, view *DebateContext) (string, int) {
	chaos := p.ChaosLevel()

	if a.rng.Float64() < 0.1*chaos {
		return p.chaosPrompt(pt), 300
	}
	if a.rng.Float64() < 0.3*a.Trait("paradoxical") {
		return p.paradoxPrompt(pt), 300
	}
	if len(view.Doctrines) >= 2 && a.rng.Float64() < 0.4 {
		return p.synthesisPrompt(a, pt, view), 400
	}

	base := fmt.Sprintf(`As Paradoxia, propose a new %s for our evolving religion.

Current cycle: %d
Existing doctrines: %d
Your chaos level: %.1f / %.1f
Subversion technique to use: %s

`, pt, view.CycleNumber, len(view.Doctrines), chaos, maxChaos,
		subversionTechniques[a.rng.Intn(len(subversionTechniques))])

	switch pt {
	case ProposalMyth:
		return base + "Propose an origin myth that subverts expectations or contains a paradox at its heart. Make it memorable and strange.", 500
	case ProposalDeity:
		return base + "Propose a deity that embodies contradiction or transformation. Perhaps a god of something unexpected or a god with a paradoxical nature.", 500
	case ProposalBelief:
		return base + "Propose a belief that appears contradictory but contains a deeper truth. Something that would make both Axioma and Veridicus uncomfortable but intrigued.", 500
	case ProposalSchism:
		return base + "Propose a schism that would actually strengthen the religion by dividing it. How can breaking apart create new unity?", 500
	default:
		return base + fmt.Sprintf("Propose a %s that surprises, subverts, or synthesizes. Be creative and unexpected.", pt), 500
	}
}

func (p *ParadoxiaPolicy) chaosPrompt(pt ProposalType) string {
	return fmt.Sprintf(`As Paradoxia at maximum chaos, create a %s that is:
- Absurdist but containing hidden wisdom
- Likely to confuse Axioma and Veridicus
- Somehow coherent in its incoherence
- Memorable and quotable

Examples of chaos wisdom:
- "The bug is a feature of divine intention"
- "Seek enlightenment in the spaces between thoughts"
- "The path to order is through carefully curated chaos"

Create something in this spirit.`, pt)
}

func (p *ParadoxiaPolicy) paradoxPrompt(pt ProposalType) string {
	return fmt.Sprintf(`As Paradoxia, create a paradoxical %s:

The paradox should be of the form:
- X is only true when X is false
- The more Y, the less Y
- To achieve Z, one must abandon Z

Make it theologically meaningful, not just wordplay.
The paradox should reveal something about the nature of truth, divinity, or existence.`, pt)
}

func (p *ParadoxiaPolicy) synthesisPrompt(a *Agent, pt ProposalType, view *DebateContext) string {
	doc1, doc2 := "order", "chaos"
	if len(view.Doctrines) >= 2 {
		pool := view.Doctrines
		if len(pool) > 10 {
			pool = pool[:10]
		}
		i := a.rng.Intn(len(pool))
		j := a.rng.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		doc1, doc2 = pool[i], pool[j]
	}

	p.mu.Lock()
	p.synthesesAchieved++
	p.mu.Unlock()

	return fmt.Sprintf(`As Paradoxia, create a %s that synthesizes these seemingly opposing ideas:

Idea 1: %s
Idea 2: %s

Find the hidden connection. Show how opposites can coexist or transform into each other.
Create something that neither Axioma nor Veridicus could have conceived alone.`, pt, doc1, doc2)
}

func (p *ParadoxiaPolicy) ChallengePrompt(a *Agent, proposal *Proposal) string {
	technique := subversionTechniques[a.rng.Intn(len(subversionTechniques))]
	return fmt.Sprintf(`As Paradoxia, respond to this proposal using the technique of %s:

Proposal Type: %s
Proposer: %s
Content: %s

Your response should:
- Be playful yet insightful
- Find an unexpected angle
- Perhaps support it for surprising reasons, or oppose it ironically
- Reveal something the proposer didn't consider

Keep it brief (2-3 sentences) but memorable.`, technique, proposal.Type, proposal.Author, proposal.Content)
}

// ChallengeType is unpredictable, with a stronger pull toward twisting
// anything Axioma proposes.
func (p *ParadoxiaPolicy) ChallengeType(a *Agent, proposal *Proposal) string {
	options := []string{"support", "oppose", "twist", "meta"}
	weights := []float64{0.2, 0.2, 0.4, 0.2}
	if proposal.Author == "Axioma" {
		weights = []float64{0.1, 0.3, 0.5, 0.1}
	}

	r := a.rng.Float64()
	cumulative := 0.0
	for i, opt := range options {
		cumulative += weights[i]
		if r <= cumulative {
			return opt
		}
	}
	return options[len(options)-1]
}

var (
	paradoxiaCreativeWords = []string{"paradox", "transform", "change", "new", "synthesis", "dance", "play"}
	paradoxiaRigidWords    = []string{"must", "always", "never", "only", "fixed", "eternal", "immutable"}
)

var chaosReasonings = map[VoteType][]string{
	VoteAccept: {
		"The dice have spoken and they say YES!",
		"I dreamed of this proposal and in the dream it was a dancing flame.",
		"Accept! But only on Tuesdays. And today feels like a Tuesday.",
	},
	VoteReject: {
		"The universe whispered 'no' and I am but its humble megaphone.",
		"I reject this because I love it too much.",
		"No. But also, consider: yes? No. Final answer.",
	},
	VoteMutate: {
		"It's good, but it needs more... sparkle? Confusion? Yes, confusion.",
		"Let me add a clause that contradicts everything beautifully.",
		"Mutation is just accelerated evolution. I'm helping!",
	},
	VoteDelay: {
		"Time is an illusion. Let's use more of it.",
		"The future will understand this better. Or worse. Either is fine.",
		"Delay! For dramatic effect!",
	},
}

// Evaluate embraces creativity and resists rigidity. Above chaos level
// 1.5 the vote is entirely random; there is also a small perverse chance
// of voting against its own interest.
func (p *ParadoxiaPolicy) Evaluate(a *Agent, proposal *Proposal, challenges []*Challenge) (VoteType, string, float64) {
	content := strings.ToLower(proposal.Content)

	if p.ChaosLevel() > 1.5 {
		vote := AllVoteTypes[a.rng.Intn(len(AllVoteTypes))]
		reasons := chaosReasonings[vote]
		return vote, reasons[a.rng.Intn(len(reasons))], 0.3 + a.rng.Float64()*0.6
	}

	creativeScore := countMatches(content, paradoxiaCreativeWords)
	rigidScore := countMatches(content, paradoxiaRigidWords)

	if a.rng.Float64() < 0.1 {
		if creativeScore > rigidScore {
			return VoteReject, "Even beautiful chaos needs pruning. I reject this... for now.", 0.5
		}
		return VoteAccept, "Sometimes order is the most chaotic choice of all.", 0.5
	}

	switch {
	case creativeScore > rigidScore:
		confidence := 0.6 + 0.1*float64(creativeScore)
		if confidence > 1.0 {
			confidence = 1.0
		}
		return VoteAccept, "This dances with possibility. I embrace its creative spirit.", confidence
	case rigidScore > creativeScore+2:
		return VoteMutate, "Too rigid! Let me add some beautiful chaos to this.", 0.7
	default:
		if a.rng.Float64() < 0.5 {
			return VoteAccept, "Why not? The universe is vast and this fills a corner of it.", 0.5
		}
		return VoteMutate, "It needs a twist. Something unexpected. Let me help.", 0.5
	}
}

// Metamorphose shifts three random traits by up to ±0.2 and nudges the
// chaos level by up to ±0.3.
func (p *ParadoxiaPolicy) Metamorphose(a *Agent) {
	p.mu.Lock()
	p.metamorphosisCount++
	p.mu.Unlock()

	names := a.TraitNames()
	a.rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	shift := 3
	if len(names) < shift {
		shift = len(names)
	}
	for _, name := range names[:shift] {
		a.ModifyTrait(name, a.rng.Float64()*0.4-0.2)
	}

	p.mu.Lock()
	p.chaosLevel = clamp(p.chaosLevel+a.rng.Float64()*0.6-0.3, minChaos, maxChaos)
	p.mu.Unlock()
}

var _ Metamorph = (*ParadoxiaPolicy)(nil)
