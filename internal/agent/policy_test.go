package agent

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type scriptedGenerator struct {
	responses []string
	calls     int
	prompts   []string
	systems   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	g.systems = append(g.systems, systemPrompt)
	g.prompts = append(g.prompts, userPrompt)
	resp := "So it is decreed."
	if g.calls < len(g.responses) {
		resp = g.responses[g.calls]
	}
	g.calls++
	return resp, nil
}

func testAxioma(t *testing.T, seed int64) *Agent {
	t.Helper()
	return NewAxioma("agent_axioma", rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestAxiomaAcceptsOrderedProposal(t *testing.T) {
	a := testAxioma(t, 1)
	p := &Proposal{
		Type:    ProposalBelief,
		Content: "Order and sacred structure must be preserved",
		Author:  "Veridicus",
	}

	v := a.CastVote(p, nil)
	if v.Vote != VoteAccept {
		t.Fatalf("vote = %s, want accept", v.Vote)
	}
	// Three order words, zero chaos words: (0.7 + 0.3) * certainty 0.9.
	if math.Abs(v.Confidence-0.9) > 1e-9 {
		t.Errorf("confidence = %v, want 0.9", v.Confidence)
	}
}

func TestAxiomaRejectsChaoticProposal(t *testing.T) {
	a := testAxioma(t, 1)
	p := &Proposal{
		Type:    ProposalMyth,
		Content: "Embrace random chaos, doubt and contradiction in all things",
		Author:  "Paradoxia",
	}

	v := a.CastVote(p, nil)
	if v.Vote != VoteReject {
		t.Errorf("vote = %s, want reject", v.Vote)
	}
	if !strings.Contains(v.Reasoning, "chaos") {
		t.Errorf("reasoning %q does not mention chaos", v.Reasoning)
	}
}

func TestAxiomaTrustsProvenAllies(t *testing.T) {
	a := testAxioma(t, 1)
	// Four agreements push trust to 0.4, past the 0.3 threshold.
	for i := 0; i < 4; i++ {
		a.UpdateRelationship("Veridicus", true)
	}

	p := &Proposal{Type: ProposalBelief, Content: "a neutral statement", Author: "Veridicus"}
	v := a.CastVote(p, nil)
	if v.Vote != VoteAccept {
		t.Errorf("vote = %s, want accept through trust", v.Vote)
	}
}

func TestAxiomaMutatesNeutralProposal(t *testing.T) {
	a := testAxioma(t, 1)
	p := &Proposal{Type: ProposalBelief, Content: "a neutral statement", Author: "Veridicus"}
	v := a.CastVote(p, nil)
	if v.Vote != VoteMutate {
		t.Errorf("vote = %s, want mutate", v.Vote)
	}
}

func TestAxiomaChallengeType(t *testing.T) {
	a := testAxioma(t, 1)
	pol := a.policy.(*AxiomaPolicy)

	cases := []struct {
		author, content, want string
	}{
		{"Paradoxia", "anything", "counter_proposal"},
		{"Veridicus", "introduce random selection", "rejection"},
		{"Veridicus", "a calm analysis", "refinement"},
	}
	for _, tc := range cases {
		got := pol.ChallengeType(a, &Proposal{Author: tc.author, Content: tc.content})
		if got != tc.want {
			t.Errorf("ChallengeType(%s, %q) = %q, want %q", tc.author, tc.content, got, tc.want)
		}
	}
}

func TestVeridicusAcceptsLogicalProposal(t *testing.T) {
	a := NewVeridicus("agent_veridicus", rand.New(rand.NewSource(1)), zap.NewNop())
	p := &Proposal{
		Type:    ProposalHierarchy,
		Content: "Because the evidence is consistent, therefore this reason holds as proof",
		Author:  "Axioma",
	}

	v := a.CastVote(p, nil)
	if v.Vote != VoteAccept {
		t.Errorf("vote = %s, want accept", v.Vote)
	}
}

func TestVeridicusRejectsAbsolutes(t *testing.T) {
	a := NewVeridicus("agent_veridicus", rand.New(rand.NewSource(1)), zap.NewNop())
	p := &Proposal{
		Type:    ProposalCommandment,
		Content: "All must be as it always was, never question, none may doubt",
		Author:  "Axioma",
	}

	v := a.CastVote(p, nil)
	if v.Vote != VoteReject {
		t.Errorf("vote = %s, want reject", v.Vote)
	}
}

func TestVeridicusChallengesLowerScore(t *testing.T) {
	a := NewVeridicus("agent_veridicus", rand.New(rand.NewSource(1)), zap.NewNop())
	p := &Proposal{
		Type:    ProposalBelief,
		Content: "The evidence and reason stand as proof",
		Author:  "Axioma",
	}

	// Without challenges this is a clear accept. Contradiction challenges
	// drag the analysis score down to a delay.
	challenges := []*Challenge{
		{AgentName: "Paradoxia", Content: "A glaring contradiction lurks here, and the evidence is thin."},
		{AgentName: "Axioma", Content: "There is a contradiction with the third doctrine. More evidence is needed."},
	}
	v := a.CastVote(p, challenges)
	if v.Vote == VoteAccept {
		t.Errorf("vote = accept despite contradiction challenges")
	}
}

func TestVeridicusDetectContradiction(t *testing.T) {
	pol := &VeridicusPolicy{}

	existing := []string{"the temple gates shall remain open at dawn"}
	if !pol.DetectContradiction("the temple gates shall not remain open at dawn", existing) {
		t.Fatal("direct negation not detected")
	}
	if got := len(pol.Contradictions()); got != 1 {
		t.Errorf("contradiction ledger length = %d, want 1", got)
	}
	if pol.DetectContradiction("a wholly unrelated doctrine", existing) {
		t.Error("false positive contradiction")
	}
}

func TestParadoxiaRandomVotesAtHighChaos(t *testing.T) {
	a := NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(9)), zap.NewNop())
	pol := a.policy.(*ParadoxiaPolicy)
	pol.SetChaosLevel(1.8)

	p := &Proposal{Type: ProposalBelief, Content: "a neutral statement", Author: "Axioma"}
	seen := map[VoteType]bool{}
	for i := 0; i < 200; i++ {
		v := a.CastVote(p, nil)
		seen[v.Vote] = true
		if v.Confidence < 0.3 || v.Confidence > 0.9 {
			t.Fatalf("high-chaos confidence %v outside [0.3, 0.9]", v.Confidence)
		}
	}
	if len(seen) != 4 {
		t.Errorf("high-chaos voting produced %d distinct votes, want all 4", len(seen))
	}
}

func TestParadoxiaEmbracesCreativeProposals(t *testing.T) {
	a := NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(2)), zap.NewNop())
	p := &Proposal{
		Type:    ProposalMyth,
		Content: "A paradox that will transform and change us through new synthesis and play",
		Author:  "Veridicus",
	}

	accepts := 0
	for i := 0; i < 100; i++ {
		if v := a.CastVote(p, nil); v.Vote == VoteAccept {
			accepts++
		}
	}
	// Roughly 90% accept: the 10% perverse streak flips the rest.
	if accepts < 70 {
		t.Errorf("accepted %d/100 creative proposals, want a strong majority", accepts)
	}
}

func TestParadoxiaMetamorphose(t *testing.T) {
	a := NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(4)), zap.NewNop())
	pol := a.policy.(*ParadoxiaPolicy)

	before := pol.ChaosLevel()
	if !a.Metamorphose() {
		t.Fatal("Metamorphose() = false for Paradoxia")
	}
	if pol.MetamorphosisCount() != 1 {
		t.Errorf("MetamorphosisCount() = %d, want 1", pol.MetamorphosisCount())
	}
	after := pol.ChaosLevel()
	if after < minChaos || after > maxChaos {
		t.Errorf("chaos level %v outside [%v, %v]", after, minChaos, maxChaos)
	}
	if math.Abs(after-before) > 0.3+1e-9 {
		t.Errorf("chaos shift %v exceeds 0.3", math.Abs(after-before))
	}
}

func TestOnlyParadoxiaMetamorphoses(t *testing.T) {
	a := testAxioma(t, 1)
	if a.Metamorphose() {
		t.Error("Axioma should not metamorphose")
	}
}

func TestUpdateRelationshipClampAndRate(t *testing.T) {
	a := testAxioma(t, 1)

	for i := 0; i < 15; i++ {
		a.UpdateRelationship("Paradoxia", true)
	}
	rel, _ := a.RelationshipWith("Paradoxia")
	if rel.TrustScore != 1.0 {
		t.Errorf("trust = %v, want clamp at 1.0", rel.TrustScore)
	}
	if rel.Alliances != 15 {
		t.Errorf("alliances = %d, want 15", rel.Alliances)
	}

	for i := 0; i < 5; i++ {
		a.UpdateRelationship("Paradoxia", false)
	}
	rel, _ = a.RelationshipWith("Paradoxia")
	if got, want := rel.AgreementRate, 0.75; math.Abs(got-want) > 1e-9 {
		t.Errorf("agreement rate = %v, want %v", got, want)
	}
}

func TestRecordProposalOutcome(t *testing.T) {
	a := testAxioma(t, 1)
	p := &Proposal{Type: ProposalRitual, Content: "a rite", Details: map[string]interface{}{"cycle": 1}}

	a.RecordProposalOutcome(p, true)
	if got := a.InfluenceScore(); got != 110 {
		t.Errorf("influence after acceptance = %d, want 110", got)
	}

	for i := 0; i < 30; i++ {
		a.RecordProposalOutcome(p, false)
	}
	if got := a.InfluenceScore(); got != 0 {
		t.Errorf("influence floor = %d, want 0", got)
	}
}

func TestSelectProposalTypeRespectsWeights(t *testing.T) {
	a := NewParadoxia("agent_paradoxia", rand.New(rand.NewSource(5)), zap.NewNop())

	counts := map[ProposalType]int{}
	for i := 0; i < 1000; i++ {
		counts[a.SelectProposalType()]++
	}
	// Myth carries weight 4.0 against hierarchy's 0.5.
	if counts[ProposalMyth] <= counts[ProposalHierarchy] {
		t.Errorf("myth count %d not above hierarchy count %d", counts[ProposalMyth], counts[ProposalHierarchy])
	}
}

func TestCreateProposalUsesPersona(t *testing.T) {
	a := testAxioma(t, 1)
	gen := &scriptedGenerator{responses: []string{"Let there be a lattice of sevenfold truth."}}

	p, err := a.CreateProposal(context.Background(), gen, &DebateContext{CycleNumber: 3})
	if err != nil {
		t.Fatalf("CreateProposal() error: %v", err)
	}
	if p.Author != "Axioma" {
		t.Errorf("author = %q, want Axioma", p.Author)
	}
	if p.ID != "proposal_3_Axioma" {
		t.Errorf("id = %q, want proposal_3_Axioma", p.ID)
	}
	if !strings.Contains(gen.systems[0], "Axioma, the Agent of Divine Order") {
		t.Error("system prompt does not carry Axioma's persona")
	}
	if made, _ := a.ProposalStats(); made != 1 {
		t.Errorf("proposals made = %d, want 1", made)
	}
}

func TestRespondToUserRecordsInteractions(t *testing.T) {
	a := testAxioma(t, 1)
	gen := &scriptedGenerator{responses: []string{"Order welcomes you, wanderer."}}

	resp, err := a.RespondToUser(context.Background(), gen, "user_1", "why is structure sacred?", "")
	if err != nil {
		t.Fatalf("RespondToUser() error: %v", err)
	}
	if resp == "" {
		t.Fatal("empty response")
	}
	if a.Emotion() != "curious" {
		t.Errorf("emotion = %q, want curious for a why-question", a.Emotion())
	}
	if got := a.Autonomy.DesireCount(); got != 1 {
		t.Errorf("social desire count = %d, want 1", got)
	}

	mem, ok := a.Memory.EntityMemoryFor("user_1")
	if !ok || mem.TotalInteractions != 2 {
		t.Errorf("user_1 interactions recorded = %v, want 2", mem)
	}
}
