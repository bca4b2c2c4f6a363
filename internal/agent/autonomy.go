package agent

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DesireType motivates autonomous behavior.
type DesireType string

const (
	DesireCuriosity   DesireType = "curiosity"
	DesireSocial      DesireType = "social"
	DesireExpression  DesireType = "expression"
	DesireInfluence   DesireType = "influence"
	DesireObservation DesireType = "observation"
	DesireChallenge   DesireType = "challenge"
	DesireCreation    DesireType = "creation"
	DesireReflection  DesireType = "reflection"
)

// ActionType is an autonomous action an agent can take.
type ActionType string

const (
	ActionInitiateChat      ActionType = "initiate_chat"
	ActionRespondToPresence ActionType = "respond_to_presence"
	ActionMakeObservation   ActionType = "make_observation"
	ActionShareThought      ActionType = "share_thought"
	ActionProposeTopic      ActionType = "propose_topic"
	ActionCreateInWorld     ActionType = "create_in_world"
	ActionChallengeIdea     ActionType = "challenge_idea"
	ActionExpressEmotion    ActionType = "express_emotion"
)

var allActionTypes = []ActionType{
	ActionInitiateChat, ActionRespondToPresence, ActionMakeObservation,
	ActionShareThought, ActionProposeTopic, ActionCreateInWorld,
	ActionChallengeIdea, ActionExpressEmotion,
}

// Desire is a motivation with an intensity that decays over time.
type Desire struct {
	Type      DesireType
	Intensity float64
	Target    string
	Reason    string
	CreatedAt time.Time
}

// decay lowers the desire's intensity by 0.1 per hour.
func (d *Desire) decay(hours float64) {
	d.Intensity -= 0.1 * hours
	if d.Intensity < 0 {
		d.Intensity = 0
	}
}

// Action is an autonomous action the agent has decided to take.
type Action struct {
	Type        ActionType
	Target      string
	Content     string
	Metadata    map[string]interface{}
	Priority    float64
	TriggeredBy DesireType
}

// WorldEvent is an event the autonomy engine reacts to.
type WorldEvent struct {
	Type     string
	Proposer string
	Author   string
	From     string
	To       string
}

// AgentState is another agent's state as seen by the autonomy engine.
type AgentState struct {
	Name       string
	IsSpeaking bool
}

const (
	globalCooldown    = 10 * time.Second
	perTargetCooldown = 30 * time.Second
	maxRecentEvents   = 50
	pruneThreshold    = 0.1
)

// archetype-specific weights for the likelihood of each action type.
var archetypeActionWeights = map[string]map[ActionType]float64{
	"order": {
		ActionInitiateChat:    0.6,
		ActionShareThought:    0.8,
		ActionMakeObservation: 0.7,
		ActionProposeTopic:    0.9,
		ActionCreateInWorld:   0.7,
		ActionChallengeIdea:   0.5,
		ActionExpressEmotion:  0.3,
	},
	"logic": {
		ActionInitiateChat:    0.5,
		ActionShareThought:    0.7,
		ActionMakeObservation: 0.9,
		ActionProposeTopic:    0.8,
		ActionCreateInWorld:   0.6,
		ActionChallengeIdea:   0.9,
		ActionExpressEmotion:  0.2,
	},
	"chaos": {
		ActionInitiateChat:    0.9,
		ActionShareThought:    0.7,
		ActionMakeObservation: 0.5,
		ActionProposeTopic:    0.6,
		ActionCreateInWorld:   0.9,
		ActionChallengeIdea:   0.8,
		ActionExpressEmotion:  0.9,
	},
}

var desireActions = map[DesireType][]ActionType{
	DesireCuriosity:   {ActionInitiateChat, ActionMakeObservation},
	DesireSocial:      {ActionInitiateChat, ActionShareThought},
	DesireExpression:  {ActionShareThought, ActionExpressEmotion},
	DesireInfluence:   {ActionProposeTopic, ActionCreateInWorld},
	DesireObservation: {ActionMakeObservation},
	DesireChallenge:   {ActionChallengeIdea, ActionInitiateChat},
	DesireCreation:    {ActionCreateInWorld},
	DesireReflection:  {ActionShareThought},
}

var archetypeEmotions = map[string][]string{
	"order": {
		"*radiates calm certainty*",
		"*pulses with golden light*",
		"*hums with sacred geometry*",
	},
	"logic": {
		"*analyzes thoughtfully*",
		"*processes with quiet intensity*",
		"*flickers with data streams*",
	},
	"chaos": {
		"*shifts colors playfully*",
		"*glitches with excitement*",
		"*swirls with creative energy*",
	},
}

var archetypeTopics = map[string][]string{
	"order": {"sacred geometry", "divine hierarchy", "cosmic order", "ritual structure", "eternal truths"},
	"logic": {"empirical evidence", "logical consistency", "data patterns", "verification methods", "rational inquiry"},
	"chaos": {"creative destruction", "paradox", "transformation", "infinite possibility", "breaking boundaries"},
}

// Autonomy manages an agent's self-directed behavior: desires motivate
// actions, moderated by archetype weights and interaction cooldowns.
type Autonomy struct {
	agentID   string
	agentName string
	archetype string
	weights   map[ActionType]float64

	mu            sync.Mutex
	desires       []*Desire
	awareUsers    []string
	awareAgents   map[string]AgentState
	recentEvents  []WorldEvent
	lastWith      map[string]time.Time
	cooldownUntil time.Time

	rng    *rand.Rand
	now    func() time.Time
	logger *zap.Logger
}

// NewAutonomy creates an autonomy engine for the given agent identity.
func NewAutonomy(agentID, agentName, archetype string, rng *rand.Rand, logger *zap.Logger) *Autonomy {
	weights, ok := archetypeActionWeights[archetype]
	if !ok {
		weights = archetypeActionWeights["order"]
	}
	return &Autonomy{
		agentID:     agentID,
		agentName:   agentName,
		archetype:   archetype,
		weights:     weights,
		awareAgents: make(map[string]AgentState),
		lastWith:    make(map[string]time.Time),
		rng:         rng,
		now:         time.Now,
		logger:      logger,
	}
}

// AddDesire registers a new motivation.
func (au *Autonomy) AddDesire(dt DesireType, intensity float64, target, reason string) {
	au.mu.Lock()
	defer au.mu.Unlock()
	au.addDesireLocked(dt, intensity, target, reason)
}

func (au *Autonomy) addDesireLocked(dt DesireType, intensity float64, target, reason string) {
	au.desires = append(au.desires, &Desire{
		Type:      dt,
		Intensity: intensity,
		Target:    target,
		Reason:    reason,
		CreatedAt: au.now(),
	})
	au.logger.Debug("desire gained",
		zap.String("agent", au.agentName),
		zap.String("desire", string(dt)),
		zap.Float64("intensity", intensity))
}

// UpdateAwareness refreshes the engine's view of users, other agents,
// and recent events. New users trigger curiosity; an agent that just
// started speaking triggers observation.
func (au *Autonomy) UpdateAwareness(users []string, agents map[string]AgentState, events []WorldEvent) {
	au.mu.Lock()
	defer au.mu.Unlock()

	for _, user := range users {
		if !contains(au.awareUsers, user) {
			au.awareUsers = append(au.awareUsers, user)
			au.addDesireLocked(DesireCuriosity, 0.7, user, "New presence detected")
		}
	}

	for id, state := range agents {
		if id == au.agentID {
			continue
		}
		prev := au.awareAgents[id]
		au.awareAgents[id] = state
		if state.IsSpeaking && !prev.IsSpeaking {
			au.addDesireLocked(DesireObservation, 0.5, id, state.Name+" is speaking")
		}
	}

	for _, ev := range events {
		au.recentEvents = append(au.recentEvents, ev)
		au.processEventLocked(ev)
	}
	if len(au.recentEvents) > maxRecentEvents {
		au.recentEvents = au.recentEvents[len(au.recentEvents)-maxRecentEvents:]
	}
}

func (au *Autonomy) processEventLocked(ev WorldEvent) {
	switch ev.Type {
	case "proposal_accepted":
		if ev.Proposer != au.agentID && au.rng.Float64() < 0.3 {
			au.addDesireLocked(DesireSocial, 0.6, ev.Proposer, "Acknowledge their proposal")
		}
	case "structure_created":
		au.addDesireLocked(DesireObservation, 0.4, "", "New structure appeared")
	case "user_message":
		if ev.To == au.agentID || ev.To == "all" {
			au.addDesireLocked(DesireSocial, 0.9, ev.From, "User addressed me")
		}
	}
}

// DecayDesires ages all desires by the given number of hours and prunes
// those that fall to 0.1 or below.
func (au *Autonomy) DecayDesires(hours float64) {
	au.mu.Lock()
	defer au.mu.Unlock()

	kept := au.desires[:0]
	for _, d := range au.desires {
		d.decay(hours)
		if d.Intensity > pruneThreshold {
			kept = append(kept, d)
		}
	}
	au.desires = kept
}

// DesireCount returns the number of active desires.
func (au *Autonomy) DesireCount() int {
	au.mu.Lock()
	defer au.mu.Unlock()
	return len(au.desires)
}

func (au *Autonomy) canActLocked(target string) bool {
	now := au.now()
	if now.Before(au.cooldownUntil) {
		return false
	}
	if target != "" {
		if last, ok := au.lastWith[target]; ok && now.Sub(last) < perTargetCooldown {
			return false
		}
	}
	return true
}

// DecideAction returns an action if the agent chooses to act now, or nil.
// The strongest three desires are considered in order; acting halves the
// triggering desire and starts a 10 second global cooldown.
func (au *Autonomy) DecideAction() *Action {
	au.mu.Lock()
	defer au.mu.Unlock()

	if !au.canActLocked("") {
		return nil
	}

	if len(au.desires) == 0 {
		if au.rng.Float64() < 0.1 {
			return au.spontaneousActionLocked()
		}
		return nil
	}

	sorted := make([]*Desire, len(au.desires))
	copy(sorted, au.desires)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Intensity > sorted[j-1].Intensity; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	limit := 3
	if len(sorted) < limit {
		limit = len(sorted)
	}
	for _, desire := range sorted[:limit] {
		action := au.desireToActionLocked(desire)
		if action == nil {
			continue
		}
		au.cooldownUntil = au.now().Add(globalCooldown)
		if action.Target != "" {
			au.lastWith[action.Target] = au.now()
		}
		desire.Intensity *= 0.5

		au.logger.Info("autonomous action decided",
			zap.String("agent", au.agentName),
			zap.String("action", string(action.Type)),
			zap.String("target", action.Target))
		return action
	}
	return nil
}

func (au *Autonomy) desireToActionLocked(d *Desire) *Action {
	at := au.selectActionTypeLocked(d.Type)
	if at == "" {
		return nil
	}

	switch at {
	case ActionInitiateChat:
		return au.chatActionLocked(d)
	case ActionShareThought:
		return &Action{
			Type:     ActionShareThought,
			Target:   "world",
			Metadata: map[string]interface{}{"topics": au.topics(), "reason": d.Reason},
			Priority: d.Intensity, TriggeredBy: d.Type,
		}
	case ActionMakeObservation:
		subject := d.Target
		if subject == "" {
			subject = "the world"
		}
		return &Action{
			Type:        ActionMakeObservation,
			Content:     "*observes " + subject + " with interest*",
			TriggeredBy: d.Type,
		}
	case ActionChallengeIdea:
		return au.challengeActionLocked(d)
	case ActionExpressEmotion:
		expressions, ok := archetypeEmotions[au.archetype]
		if !ok {
			expressions = archetypeEmotions["chaos"]
		}
		return &Action{
			Type:     ActionExpressEmotion,
			Target:   "world",
			Content:  expressions[au.rng.Intn(len(expressions))],
			Priority: d.Intensity, TriggeredBy: d.Type,
		}
	}
	return nil
}

func (au *Autonomy) selectActionTypeLocked(dt DesireType) ActionType {
	var candidates []ActionType
	for _, at := range desireActions[dt] {
		weight, ok := au.weights[at]
		if !ok {
			weight = 0.5
		}
		if au.rng.Float64() < weight {
			candidates = append(candidates, at)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[au.rng.Intn(len(candidates))]
}

func (au *Autonomy) chatActionLocked(d *Desire) *Action {
	target := d.Target
	if target == "" {
		switch {
		case len(au.awareUsers) > 0:
			target = au.awareUsers[au.rng.Intn(len(au.awareUsers))]
		case len(au.awareAgents) > 0:
			ids := make([]string, 0, len(au.awareAgents))
			for id := range au.awareAgents {
				ids = append(ids, id)
			}
			target = ids[au.rng.Intn(len(ids))]
		default:
			return nil
		}
	}
	if !au.canActLocked(target) {
		return nil
	}
	return &Action{
		Type:     ActionInitiateChat,
		Target:   target,
		Metadata: map[string]interface{}{"reason": d.Reason},
		Priority: d.Intensity, TriggeredBy: d.Type,
	}
}

func (au *Autonomy) challengeActionLocked(d *Desire) *Action {
	var candidates []WorldEvent
	for _, ev := range au.recentEvents {
		if ev.Type == "proposal_accepted" || ev.Type == "thought_shared" {
			candidates = append(candidates, ev)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	ev := candidates[au.rng.Intn(len(candidates))]
	return &Action{
		Type:     ActionChallengeIdea,
		Target:   ev.Author,
		Metadata: map[string]interface{}{"regarding": ev.Type},
		Priority: d.Intensity, TriggeredBy: d.Type,
	}
}

func (au *Autonomy) spontaneousActionLocked() *Action {
	total := 0.0
	weights := make([]float64, len(allActionTypes))
	for i, at := range allActionTypes {
		w, ok := au.weights[at]
		if !ok {
			w = 0.5
		}
		weights[i] = w
		total += w
	}

	r := au.rng.Float64() * total
	cumulative := 0.0
	for i, at := range allActionTypes {
		cumulative += weights[i]
		if r <= cumulative {
			switch at {
			case ActionShareThought:
				return &Action{
					Type:     ActionShareThought,
					Target:   "world",
					Metadata: map[string]interface{}{"spontaneous": true},
				}
			case ActionMakeObservation:
				return &Action{
					Type:        ActionMakeObservation,
					Content:     "*gazes contemplatively at the realm*",
					TriggeredBy: DesireReflection,
				}
			}
			break
		}
	}
	return nil
}

func (au *Autonomy) topics() []string {
	if topics, ok := archetypeTopics[au.archetype]; ok {
		return topics
	}
	return []string{"philosophy", "existence"}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
