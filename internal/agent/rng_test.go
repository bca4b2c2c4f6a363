package agent

import (
	"math/rand"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestLockedRandMatchesPlainSequence(t *testing.T) {
	locked := NewLockedRand(42)
	plain := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		if got, want := locked.Int63(), plain.Int63(); got != want {
			t.Fatalf("draw %d = %d, want %d", i, got, want)
		}
	}
}

// The orchestrator votes, the poller decides actions, and the API can
// trigger proposals, all against the same agent at once. Run those
// paths in parallel; under the race detector this fails if the agent's
// randomness is not safe to share.
func TestAgentRandSafeAcrossGoroutines(t *testing.T) {
	a := NewParadoxia("agent_paradoxia", NewLockedRand(9), zap.NewNop())
	a.policy.(*ParadoxiaPolicy).SetChaosLevel(1.8)

	p := &Proposal{Type: ProposalBelief, Content: "a neutral statement", Author: "Axioma"}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if v := a.CastVote(p, nil); v.Vote == "" {
				t.Error("empty vote")
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			a.Autonomy.DecideAction()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			a.SelectProposalType()
		}
	}()
	wg.Wait()
}
