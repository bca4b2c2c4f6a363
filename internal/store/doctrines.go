package store

import (
	"context"
	"fmt"

	"github.com/theogony/demiurge/internal/debate"
)

// SaveDoctrine upserts an accepted doctrine.
func (s *Store) SaveDoctrine(ctx context.Context, d *debate.Doctrine) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO doctrines (id, content, doctrine_type, proposed_by, accepted_at_cycle, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		d.ID, d.Content, d.Type, d.ProposedBy, d.AcceptedAtCycle, d.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("save doctrine: %w", err)
	}
	return nil
}

// ListDoctrines returns all doctrines ordered by acceptance cycle.
func (s *Store) ListDoctrines(ctx context.Context) ([]*debate.Doctrine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, content, doctrine_type, proposed_by, accepted_at_cycle, accepted_at
		FROM doctrines
		ORDER BY accepted_at_cycle ASC`)
	if err != nil {
		return nil, fmt.Errorf("list doctrines: %w", err)
	}
	defer rows.Close()

	var doctrines []*debate.Doctrine
	for rows.Next() {
		d := &debate.Doctrine{}
		if err := rows.Scan(&d.ID, &d.Content, &d.Type, &d.ProposedBy, &d.AcceptedAtCycle, &d.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scan doctrine: %w", err)
		}
		doctrines = append(doctrines, d)
	}
	return doctrines, rows.Err()
}
