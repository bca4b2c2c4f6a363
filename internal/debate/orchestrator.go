// Package debate runs the continuous debate cycle between the three
// agents: proposal, challenges, voting, result, and world update.
package debate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/config"
	"github.com/theogony/demiurge/internal/hub"
	"github.com/theogony/demiurge/internal/world"
)

// Phase is a stage of the debate cycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseProposal    Phase = "proposal"
	PhaseChallenge   Phase = "challenge"
	PhaseVoting      Phase = "voting"
	PhaseResult      Phase = "result"
	PhaseWorldUpdate Phase = "world_update"
)

// Outcome of a cycle's vote tally.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeMutated  Outcome = "mutated"
	OutcomeDelayed  Outcome = "delayed"
)

const errorBackoff = 5 * time.Second

// Doctrine is an accepted proposal in the canon.
type Doctrine struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Type            string    `json:"type"`
	ProposedBy      string    `json:"proposed_by"`
	AcceptedAtCycle int       `json:"accepted_at_cycle"`
	AcceptedAt      time.Time `json:"accepted_at"`
}

// Archive persists doctrines and structures. The orchestrator runs
// without one; persistence errors are logged and skipped.
type Archive interface {
	SaveDoctrine(ctx context.Context, d *Doctrine) error
	SaveStructure(ctx context.Context, st *world.Structure) error
}

var homePositions = map[string]world.Position{
	"Axioma":    {X: -15, Z: 0},
	"Veridicus": {X: 15, Z: 0},
	"Paradoxia": {X: 0, Z: 15},
}

var challengePositions = map[string]world.Position{
	"Axioma":    {X: -8, Z: -3},
	"Veridicus": {X: 8, Z: -3},
	"Paradoxia": {X: 0, Z: 8},
}

// Orchestrator drives debate cycles and applies their outcomes to the
// world, doctrine canon, and agent relationships.
type Orchestrator struct {
	agents map[string]*agent.Agent
	order  []string

	hub     *hub.Hub
	world   *world.State
	gen     agent.Generator
	archive Archive
	cfg     config.DebateConfig
	logger  *zap.Logger

	// sleep is context-aware and replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)

	mu          sync.RWMutex
	cycleNumber int
	phase       Phase
	proposal    *agent.Proposal
	challenges  []*agent.Challenge
	votes       map[string]*agent.Vote
	doctrines   []*Doctrine
}

// New creates an orchestrator over the three agents. Agents debate in
// the fixed order Axioma, Veridicus, Paradoxia.
func New(agents map[string]*agent.Agent, h *hub.Hub, w *world.State, gen agent.Generator, archive Archive, cfg config.DebateConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		agents:  agents,
		order:   []string{"Axioma", "Veridicus", "Paradoxia"},
		hub:     h,
		world:   w,
		gen:     gen,
		archive: archive,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
		phase:   PhaseIdle,
		votes:   make(map[string]*agent.Vote),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run drives debate cycles until the context is cancelled. A failed
// cycle is logged and retried after a backoff; the cycle counter still
// advances so the proposer rotation is not stuck on a failing agent.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("debate orchestrator starting")
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("debate orchestrator stopped")
			return
		default:
		}

		if err := o.RunCycle(ctx); err != nil {
			o.logger.Error("debate cycle failed", zap.Error(err))
			o.sleep(ctx, errorBackoff)
		}
		o.sleep(ctx, o.cfg.CyclePause())
	}
}

// RunCycle executes one complete debate cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	o.mu.Lock()
	o.cycleNumber++
	cycle := o.cycleNumber
	o.proposal = nil
	o.challenges = nil
	o.votes = make(map[string]*agent.Vote)
	o.mu.Unlock()

	o.logger.Info("cycle starting", zap.Int("cycle", cycle))
	o.hub.Publish(hub.EventCycleStart, map[string]interface{}{"cycle": cycle})

	view := o.debateContext(cycle)

	if err := o.runProposalPhase(ctx, cycle, view); err != nil {
		return err
	}
	o.runChallengePhase(ctx, view)
	o.runVotingPhase(ctx)
	outcome := o.runResultPhase(ctx, cycle)
	if outcome == OutcomeAccepted {
		o.runWorldUpdatePhase(ctx, cycle)
	} else {
		o.returnAgentsHome()
	}

	o.hub.Publish(hub.EventCycleEnd, map[string]interface{}{
		"cycle":            cycle,
		"outcome":          string(outcome),
		"doctrines_count":  o.DoctrineCount(),
		"structures_count": o.world.ActiveCount(),
	})
	return nil
}

func (o *Orchestrator) setPhase(p Phase, duration time.Duration) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.hub.Publish(hub.EventDebatePhase, map[string]interface{}{
		"phase":    string(p),
		"duration": duration.Seconds(),
	})
}

func (o *Orchestrator) runProposalPhase(ctx context.Context, cycle int, view *agent.DebateContext) error {
	o.setPhase(PhaseProposal, o.cfg.ProposalDuration())

	proposerName := o.order[cycle%len(o.order)]
	proposer := o.agents[proposerName]
	o.logger.Info("proposer selected", zap.String("agent", proposerName))

	proposer.MoveTo(0, 0, -5)
	proposer.SetAnimation("proposing")
	o.hub.Publish(hub.EventAgentUpdate, proposer.Snapshot())

	proposal, err := proposer.CreateProposal(ctx, o.gen, view)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.proposal = proposal
	o.mu.Unlock()

	o.hub.Publish(hub.EventProposal, map[string]interface{}{
		"id":            proposal.ID,
		"proposal_type": string(proposal.Type),
		"content":       proposal.Content,
		"agent_name":    proposerName,
		"proposer_id":   proposer.ID,
	})

	o.sleep(ctx, o.cfg.ProposalDuration())
	return nil
}

// runChallengePhase collects challenges from the non-proposing agents.
// A failed challenge is logged and the phase continues without it.
func (o *Orchestrator) runChallengePhase(ctx context.Context, view *agent.DebateContext) {
	o.setPhase(PhaseChallenge, o.cfg.ChallengeDuration())

	o.mu.RLock()
	proposal := o.proposal
	o.mu.RUnlock()

	var challengers []string
	for _, name := range o.order {
		if name != proposal.Author {
			challengers = append(challengers, name)
		}
	}

	pause := o.cfg.ChallengeDuration() / time.Duration(len(challengers))
	for _, name := range challengers {
		ag := o.agents[name]
		challenge, err := ag.ChallengeProposal(ctx, o.gen, proposal)
		if err != nil {
			o.logger.Error("challenge generation failed",
				zap.String("agent", name), zap.Error(err))
			continue
		}

		o.mu.Lock()
		o.challenges = append(o.challenges, challenge)
		o.mu.Unlock()

		pos := challengePositions[name]
		ag.MoveTo(pos.X, 0, pos.Z)
		ag.SetAnimation("challenging")
		o.hub.Publish(hub.EventAgentUpdate, ag.Snapshot())

		o.hub.Publish(hub.EventChallenge, map[string]interface{}{
			"agent_id":   challenge.AgentID,
			"agent_name": challenge.AgentName,
			"content":    challenge.Content,
			"type":       challenge.ChallengeType,
		})

		o.sleep(ctx, pause)
	}
}

func (o *Orchestrator) runVotingPhase(ctx context.Context) {
	o.setPhase(PhaseVoting, o.cfg.VotingDuration())

	o.mu.RLock()
	proposal := o.proposal
	challenges := o.challenges
	o.mu.RUnlock()

	pause := o.cfg.VotingDuration() / time.Duration(len(o.order))
	for _, name := range o.order {
		ag := o.agents[name]
		vote := ag.CastVote(proposal, challenges)

		o.mu.Lock()
		o.votes[name] = vote
		o.mu.Unlock()

		ag.SetAnimation("voting")
		o.hub.Publish(hub.EventAgentUpdate, ag.Snapshot())

		o.hub.Publish(hub.EventVote, map[string]interface{}{
			"agent_id":   vote.AgentID,
			"agent_name": vote.AgentName,
			"vote":       string(vote.Vote),
			"reasoning":  vote.Reasoning,
			"confidence": vote.Confidence,
		})

		o.sleep(ctx, pause)
	}
}

// runResultPhase tallies votes, updates stats and relationships, and
// appends accepted proposals to the doctrine canon.
func (o *Orchestrator) runResultPhase(ctx context.Context, cycle int) Outcome {
	o.setPhase(PhaseResult, o.cfg.ResultDuration())

	o.mu.RLock()
	proposal := o.proposal
	votes := make(map[string]*agent.Vote, len(o.votes))
	for k, v := range o.votes {
		votes[k] = v
	}
	o.mu.RUnlock()

	outcome := Tally(votes)

	proposer := o.agents[proposal.Author]
	proposer.RecordProposalOutcome(proposal, outcome == OutcomeAccepted)

	for name1, vote1 := range votes {
		for name2, vote2 := range votes {
			if name1 == name2 {
				continue
			}
			o.agents[name1].UpdateRelationship(name2, vote1.Vote == vote2.Vote)
		}
	}

	counts := map[string]int{}
	for _, v := range votes {
		counts[string(v.Vote)]++
	}
	o.hub.Publish(hub.EventDebateResult, map[string]interface{}{
		"outcome":     string(outcome),
		"vote_counts": counts,
		"proposal_id": proposal.ID,
		"agent_name":  proposal.Author,
		"cycle":       cycle,
	})

	if outcome == OutcomeAccepted {
		o.acceptDoctrine(ctx, proposal, cycle)
	}

	o.sleep(ctx, o.cfg.ResultDuration())
	return outcome
}

func (o *Orchestrator) acceptDoctrine(ctx context.Context, proposal *agent.Proposal, cycle int) {
	doctrine := &Doctrine{
		ID:              uuid.New().String(),
		Content:         proposal.Content,
		Type:            string(proposal.Type),
		ProposedBy:      proposal.Author,
		AcceptedAtCycle: cycle,
		AcceptedAt:      time.Now(),
	}

	o.mu.Lock()
	existing := make([]string, 0, len(o.doctrines))
	for _, d := range o.doctrines {
		existing = append(existing, d.Content)
	}
	o.doctrines = append(o.doctrines, doctrine)
	o.mu.Unlock()

	// Veridicus audits every new doctrine against the canon.
	if vp, ok := o.agents["Veridicus"].Policy().(*agent.VeridicusPolicy); ok {
		if vp.DetectContradiction(doctrine.Content, existing) {
			o.logger.Warn("doctrine contradiction recorded",
				zap.String("doctrine", doctrine.ID))
		}
	}

	if o.archive != nil {
		if err := o.archive.SaveDoctrine(ctx, doctrine); err != nil {
			o.logger.Warn("doctrine persistence failed", zap.Error(err))
		}
	}
}

// runWorldUpdatePhase spawns the structure for the accepted doctrine
// and returns agents to their home positions.
func (o *Orchestrator) runWorldUpdatePhase(ctx context.Context, cycle int) {
	o.mu.Lock()
	o.phase = PhaseWorldUpdate
	proposal := o.proposal
	o.mu.Unlock()

	proposer := o.agents[proposal.Author]
	color := ""
	if proposer != nil {
		color = proposer.PrimaryColor
	}

	st, err := o.world.Spawn(string(proposal.Type), proposal.ID, proposal.Author, color, cycle)
	if err != nil {
		o.logger.Warn("structure spawn failed", zap.Error(err))
	} else {
		o.hub.Publish(hub.EventStructureSpawn, map[string]interface{}{
			"id":             st.ID,
			"structure_type": st.StructureType,
			"name":           st.Name,
			"position":       st.Position,
			"material":       st.MaterialPreset,
			"created_by":     st.CreatedBy,
			"cycle":          cycle,
		})
		if o.archive != nil {
			if err := o.archive.SaveStructure(ctx, st); err != nil {
				o.logger.Warn("structure persistence failed", zap.Error(err))
			}
		}
	}

	o.returnAgentsHome()
}

func (o *Orchestrator) returnAgentsHome() {
	for name, ag := range o.agents {
		if pos, ok := homePositions[name]; ok {
			ag.MoveTo(pos.X, 0, pos.Z)
		}
		ag.SetAnimation("idle")
		o.hub.Publish(hub.EventAgentUpdate, ag.Snapshot())
	}
}

// Tally resolves votes by strict priority: two or more accepts win,
// then rejects, then mutates; anything else is a delay.
func Tally(votes map[string]*agent.Vote) Outcome {
	counts := map[agent.VoteType]int{}
	for _, v := range votes {
		counts[v.Vote]++
	}
	switch {
	case counts[agent.VoteAccept] >= 2:
		return OutcomeAccepted
	case counts[agent.VoteReject] >= 2:
		return OutcomeRejected
	case counts[agent.VoteMutate] >= 2:
		return OutcomeMutated
	default:
		return OutcomeDelayed
	}
}

// debateContext assembles the state agents see: the cycle number and
// the last 20 doctrine texts.
func (o *Orchestrator) debateContext(cycle int) *agent.DebateContext {
	o.mu.RLock()
	defer o.mu.RUnlock()

	start := 0
	if len(o.doctrines) > 20 {
		start = len(o.doctrines) - 20
	}
	contents := make([]string, 0, len(o.doctrines)-start)
	for _, d := range o.doctrines[start:] {
		contents = append(contents, d.Content)
	}
	return &agent.DebateContext{CycleNumber: cycle, Doctrines: contents}
}

// RestoreDoctrines seeds the canon from persisted doctrines at startup.
// The cycle counter resumes after the highest acceptance cycle seen.
func (o *Orchestrator) RestoreDoctrines(ds []*Doctrine) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.doctrines = append(o.doctrines, ds...)
	for _, d := range ds {
		if d.AcceptedAtCycle > o.cycleNumber {
			o.cycleNumber = d.AcceptedAtCycle
		}
	}
}

// CycleNumber returns the current cycle.
func (o *Orchestrator) CycleNumber() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cycleNumber
}

// CurrentPhase returns the current debate phase.
func (o *Orchestrator) CurrentPhase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// Doctrines returns a copy of the doctrine canon.
func (o *Orchestrator) Doctrines() []*Doctrine {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Doctrine, len(o.doctrines))
	copy(out, o.doctrines)
	return out
}

// DoctrineCount returns the canon size.
func (o *Orchestrator) DoctrineCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.doctrines)
}

// Status summarizes the orchestrator for the API.
func (o *Orchestrator) Status() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := map[string]interface{}{
		"cycle_number":    o.cycleNumber,
		"phase":           string(o.phase),
		"doctrines_count": len(o.doctrines),
	}
	if o.proposal != nil {
		status["current_proposal"] = map[string]interface{}{
			"id":      o.proposal.ID,
			"type":    string(o.proposal.Type),
			"author":  o.proposal.Author,
			"content": o.proposal.Content,
		}
	}
	return status
}
