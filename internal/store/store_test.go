package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/debate"
	"github.com/theogony/demiurge/internal/world"
)

var testStore *Store

func TestMain(m *testing.M) {
	if os.Getenv("DEMIURGE_E2E") == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("demiurge_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "pg connection string: %v\n", err)
		os.Exit(1)
	}

	testStore, err = New(dsn, zap.NewNop())
	if err == nil {
		err = testStore.Migrate(ctx, "migrations")
	}
	if err != nil {
		container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "prepare store: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testStore.Close()
	container.Terminate(ctx)
	os.Exit(code)
}

func requireStore(t *testing.T) *Store {
	t.Helper()
	if testStore == nil {
		t.Skip("postgres tests disabled (set DEMIURGE_E2E=1)")
	}
	return testStore
}

func TestDoctrineRoundTrip(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()

	d := &debate.Doctrine{
		ID:              "doctrine_rt_1",
		Content:         "The spiral is the only honest line.",
		Type:            "belief",
		ProposedBy:      "Paradoxia",
		AcceptedAtCycle: 3,
		AcceptedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.SaveDoctrine(ctx, d); err != nil {
		t.Fatalf("SaveDoctrine() error: %v", err)
	}
	// Saving the same doctrine twice is a no-op.
	if err := s.SaveDoctrine(ctx, d); err != nil {
		t.Fatalf("SaveDoctrine() second call error: %v", err)
	}

	doctrines, err := s.ListDoctrines(ctx)
	if err != nil {
		t.Fatalf("ListDoctrines() error: %v", err)
	}
	var found *debate.Doctrine
	for _, got := range doctrines {
		if got.ID == d.ID {
			found = got
		}
	}
	if found == nil {
		t.Fatalf("doctrine %s not listed", d.ID)
	}
	if found.Content != d.Content || found.ProposedBy != d.ProposedBy || found.AcceptedAtCycle != d.AcceptedAtCycle {
		t.Errorf("listed doctrine = %+v, want %+v", found, d)
	}
}

func TestStructureRoundTrip(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()

	st := &world.Structure{
		ID:             "structure_rt_1",
		StructureType:  "temple",
		Name:           "Temple of Cycle 5",
		Position:       world.Position{X: 10, Y: 0, Z: 4.2},
		Scale:          1,
		ModelPath:      "models/temple.glb",
		MaterialPreset: "crystal",
		PrimaryColor:   "#FFD700",
		GlowEnabled:    true,
		CreatedBy:      "Axioma",
		CreatedAtCycle: 5,
		Integrity:      1,
		Active:         true,
	}
	if err := s.SaveStructure(ctx, st); err != nil {
		t.Fatalf("SaveStructure() error: %v", err)
	}

	structures, err := s.ListStructures(ctx)
	if err != nil {
		t.Fatalf("ListStructures() error: %v", err)
	}
	var found *world.Structure
	for _, got := range structures {
		if got.ID == st.ID {
			found = got
		}
	}
	if found == nil {
		t.Fatalf("structure %s not listed", st.ID)
	}
	if found.Name != st.Name || found.Position.Z != st.Position.Z || found.MaterialPreset != st.MaterialPreset {
		t.Errorf("listed structure = %+v, want %+v", found, st)
	}
	if found.AssociatedDoctrineID != "" {
		t.Errorf("doctrine id = %q, want empty", found.AssociatedDoctrineID)
	}
}
