package store

import (
	"context"
	"fmt"

	"github.com/theogony/demiurge/internal/world"
)

// SaveStructure upserts a spawned structure.
func (s *Store) SaveStructure(ctx context.Context, st *world.Structure) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO structures (
			id, structure_type, name, pos_x, pos_y, pos_z, rotation_y, scale,
			model_path, material_preset, primary_color, glow_enabled,
			created_by, created_at_cycle, doctrine_id, integrity, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING`,
		st.ID, st.StructureType, st.Name,
		st.Position.X, st.Position.Y, st.Position.Z,
		st.RotationY, st.Scale, st.ModelPath, st.MaterialPreset,
		st.PrimaryColor, st.GlowEnabled, st.CreatedBy, st.CreatedAtCycle,
		nullable(st.AssociatedDoctrineID), st.Integrity, st.Active,
	)
	if err != nil {
		return fmt.Errorf("save structure: %w", err)
	}
	return nil
}

// ListStructures returns all active structures ordered by creation cycle.
func (s *Store) ListStructures(ctx context.Context) ([]*world.Structure, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, structure_type, name, pos_x, pos_y, pos_z, rotation_y, scale,
		       model_path, material_preset, primary_color, glow_enabled,
		       created_by, created_at_cycle, COALESCE(doctrine_id, ''), integrity, active
		FROM structures
		WHERE active
		ORDER BY created_at_cycle ASC`)
	if err != nil {
		return nil, fmt.Errorf("list structures: %w", err)
	}
	defer rows.Close()

	var structures []*world.Structure
	for rows.Next() {
		st := &world.Structure{}
		if err := rows.Scan(
			&st.ID, &st.StructureType, &st.Name,
			&st.Position.X, &st.Position.Y, &st.Position.Z,
			&st.RotationY, &st.Scale, &st.ModelPath, &st.MaterialPreset,
			&st.PrimaryColor, &st.GlowEnabled, &st.CreatedBy, &st.CreatedAtCycle,
			&st.AssociatedDoctrineID, &st.Integrity, &st.Active,
		); err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}
		structures = append(structures, st)
	}
	return structures, rows.Err()
}

// nullable maps an empty string to SQL NULL for foreign keys.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
