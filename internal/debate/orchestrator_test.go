package debate

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/config"
	"github.com/theogony/demiurge/internal/hub"
	"github.com/theogony/demiurge/internal/world"
)

type scriptedGenerator struct {
	response string
}

func (g *scriptedGenerator) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	return g.response, nil
}

func vote(name string, v agent.VoteType) *agent.Vote {
	return &agent.Vote{AgentID: "agent_" + name, AgentName: name, Vote: v, Confidence: 0.8}
}

func TestTallyStrictPriority(t *testing.T) {
	cases := []struct {
		name  string
		votes map[string]*agent.Vote
		want  Outcome
	}{
		{
			name: "two accepts win",
			votes: map[string]*agent.Vote{
				"Axioma":    vote("Axioma", agent.VoteAccept),
				"Veridicus": vote("Veridicus", agent.VoteAccept),
				"Paradoxia": vote("Paradoxia", agent.VoteReject),
			},
			want: OutcomeAccepted,
		},
		{
			name: "two rejects win",
			votes: map[string]*agent.Vote{
				"Axioma":    vote("Axioma", agent.VoteReject),
				"Veridicus": vote("Veridicus", agent.VoteReject),
				"Paradoxia": vote("Paradoxia", agent.VoteAccept),
			},
			want: OutcomeRejected,
		},
		{
			name: "two mutates win",
			votes: map[string]*agent.Vote{
				"Axioma":    vote("Axioma", agent.VoteMutate),
				"Veridicus": vote("Veridicus", agent.VoteMutate),
				"Paradoxia": vote("Paradoxia", agent.VoteDelay),
			},
			want: OutcomeMutated,
		},
		{
			name: "three-way split delays",
			votes: map[string]*agent.Vote{
				"Axioma":    vote("Axioma", agent.VoteAccept),
				"Veridicus": vote("Veridicus", agent.VoteReject),
				"Paradoxia": vote("Paradoxia", agent.VoteMutate),
			},
			want: OutcomeDelayed,
		},
		{
			name: "accept priority beats reject on double majority",
			votes: map[string]*agent.Vote{
				"Axioma":    vote("Axioma", agent.VoteAccept),
				"Veridicus": vote("Veridicus", agent.VoteAccept),
				"Paradoxia": vote("Paradoxia", agent.VoteAccept),
			},
			want: OutcomeAccepted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Tally(tc.votes); got != tc.want {
				t.Errorf("Tally() = %s, want %s", got, tc.want)
			}
		})
	}
}

func newTestOrchestrator(t *testing.T, response string) (*Orchestrator, *hub.Hub) {
	t.Helper()
	logger := zap.NewNop()
	agents := map[string]*agent.Agent{
		"Axioma":    agent.NewAxioma("agent_axioma", rand.New(rand.NewSource(1)), logger),
		"Veridicus": agent.NewVeridicus("agent_veridicus", rand.New(rand.NewSource(2)), logger),
		"Paradoxia": agent.NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(3)), logger),
	}
	h := hub.New(logger)
	w := world.NewState(0, rand.New(rand.NewSource(4)), logger)
	cfg := config.Default().Debate

	o := New(agents, h, w, &scriptedGenerator{response: response}, nil, cfg, logger)
	o.sleep = func(context.Context, time.Duration) {}
	return o, h
}

type collectingListener struct {
	events []*hub.Event
}

func (l *collectingListener) ID() string { return "collector" }
func (l *collectingListener) Deliver(ev *hub.Event) error {
	l.events = append(l.events, ev)
	return nil
}

func TestProposerRotation(t *testing.T) {
	o, _ := newTestOrchestrator(t, "a neutral statement")

	ctx := context.Background()
	proposers := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		if err := o.RunCycle(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		o.mu.RLock()
		proposers = append(proposers, o.proposal.Author)
		o.mu.RUnlock()
	}

	// Cycle numbering starts at 1, so the rotation opens with Veridicus.
	want := []string{"Veridicus", "Paradoxia", "Axioma", "Veridicus", "Paradoxia", "Axioma"}
	for i := range want {
		if proposers[i] != want[i] {
			t.Fatalf("cycle %d proposer = %s, want %s (all: %v)", i+1, proposers[i], want[i], proposers)
		}
	}
}

func TestAcceptedCycleSpawnsStructureAndDoctrine(t *testing.T) {
	// Strong order language: Axioma and Veridicus both accept.
	o, h := newTestOrchestrator(t,
		"Therefore sacred order and eternal structure stand as truth, because evidence and reason and consistent proof demand law and ritual")
	listener := &collectingListener{}
	h.Add(listener)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}

	if got := o.DoctrineCount(); got != 1 {
		t.Fatalf("doctrine count = %d, want 1", got)
	}
	if got := o.world.ActiveCount(); got != 1 {
		t.Fatalf("structure count = %d, want 1", got)
	}

	var sawResult, sawSpawn bool
	for _, ev := range listener.events {
		switch ev.Type {
		case hub.EventDebateResult:
			sawResult = true
			if ev.Data["outcome"] != "accepted" {
				t.Errorf("outcome = %v, want accepted", ev.Data["outcome"])
			}
		case hub.EventStructureSpawn:
			sawSpawn = true
		}
	}
	if !sawResult || !sawSpawn {
		t.Errorf("events missing: result=%v spawn=%v", sawResult, sawSpawn)
	}

	// Agents return to their home positions after the world update.
	for name, ag := range o.agents {
		want := homePositions[name]
		got := ag.Pos()
		if got.X != want.X || got.Z != want.Z {
			t.Errorf("%s position = %+v, want %+v", name, got, want)
		}
	}
}

func TestRelationshipsUpdatedSymmetrically(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		"Therefore sacred order and eternal structure stand as truth, because evidence and reason and consistent proof demand law and ritual")

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Each pair is visited once in each direction per cycle.
	relAV, ok := o.agents["Axioma"].RelationshipWith("Veridicus")
	if !ok {
		t.Fatal("Axioma has no relationship with Veridicus")
	}
	if relAV.TotalInteractions != 1 {
		t.Errorf("Axioma-Veridicus interactions = %d, want 1", relAV.TotalInteractions)
	}
	relVA, _ := o.agents["Veridicus"].RelationshipWith("Axioma")
	if relVA.TotalInteractions != 1 {
		t.Errorf("Veridicus-Axioma interactions = %d, want 1", relVA.TotalInteractions)
	}
}

func TestProposerStatsTrackOutcome(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		"Therefore sacred order and eternal structure stand as truth, because evidence and reason and consistent proof demand law and ritual")

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	o.mu.RLock()
	author := o.proposal.Author
	o.mu.RUnlock()

	made, accepted := o.agents[author].ProposalStats()
	if made != 1 {
		t.Errorf("proposals made = %d, want 1", made)
	}
	if accepted == 1 && o.agents[author].InfluenceScore() != 110 {
		t.Errorf("influence = %d, want 110 after acceptance", o.agents[author].InfluenceScore())
	}
}

func TestRestoreDoctrinesResumesCycle(t *testing.T) {
	o, _ := newTestOrchestrator(t, "x")
	o.RestoreDoctrines([]*Doctrine{
		{ID: "d1", Content: "first law", AcceptedAtCycle: 4},
		{ID: "d2", Content: "second law", AcceptedAtCycle: 9},
	})

	if got := o.DoctrineCount(); got != 2 {
		t.Errorf("doctrine count = %d, want 2", got)
	}
	if got := o.CycleNumber(); got != 9 {
		t.Errorf("cycle number = %d, want 9", got)
	}
}

func TestDebateContextWindowsLastTwenty(t *testing.T) {
	o, _ := newTestOrchestrator(t, "x")
	ds := make([]*Doctrine, 25)
	for i := range ds {
		ds[i] = &Doctrine{ID: "d", Content: string(rune('a' + i%26))}
	}
	o.RestoreDoctrines(ds)

	view := o.debateContext(26)
	if len(view.Doctrines) != 20 {
		t.Errorf("context doctrines = %d, want 20", len(view.Doctrines))
	}
}
