// Package world manages the 3D world: structures spawned from accepted
// doctrines, visual effects, and weather.
package world

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	worldSize            = 100.0 // -50 to +50
	minStructureDistance = 5.0
	defaultMaxStructures = 500
	goldenRatioFraction  = 0.618
)

// Position is a location in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Structure is a physical manifestation of an accepted doctrine.
type Structure struct {
	ID                   string   `json:"id"`
	StructureType        string   `json:"structure_type"`
	Name                 string   `json:"name"`
	Position             Position `json:"position"`
	RotationY            float64  `json:"rotation_y"`
	Scale                float64  `json:"scale"`
	ModelPath            string   `json:"model_path"`
	MaterialPreset       string   `json:"material_preset"`
	PrimaryColor         string   `json:"primary_color,omitempty"`
	GlowEnabled          bool     `json:"glow_enabled"`
	CreatedBy            string   `json:"created_by"`
	CreatedAtCycle       int      `json:"created_at_cycle"`
	AssociatedDoctrineID string   `json:"associated_doctrine_id"`
	Integrity            float64  `json:"integrity"`
	Active               bool     `json:"active"`
}

// Effect is a visual effect attached to a structure or location.
type Effect struct {
	ID              string                 `json:"id"`
	EffectType      string                 `json:"effect_type"`
	Position        Position               `json:"position"`
	Parameters      map[string]interface{} `json:"parameters"`
	AssociatedWith  string                 `json:"associated_with,omitempty"`
	AssociationType string                 `json:"association_type,omitempty"`
	Intensity       float64                `json:"intensity"`
	Active          bool                   `json:"active"`
}

// Weather is the current weather state.
type Weather struct {
	Type                  string                 `json:"type"`
	Intensity             float64                `json:"intensity"`
	Parameters            map[string]interface{} `json:"parameters"`
	TriggeredByDoctrineID string                 `json:"triggered_by_doctrine_id,omitempty"`
	StartedAtCycle        int                    `json:"started_at_cycle"`
}

type structureTemplate struct {
	model string
	scale float64
	glow  bool
}

var structureTemplates = map[string]structureTemplate{
	"temple":          {model: "temple.glb", scale: 2.0, glow: true},
	"altar":           {model: "altar.glb", scale: 1.0, glow: true},
	"obelisk":         {model: "obelisk.glb", scale: 1.5, glow: true},
	"monument":        {model: "monument.glb", scale: 1.2, glow: false},
	"library":         {model: "library.glb", scale: 1.8, glow: false},
	"floating_symbol": {model: "symbol.glb", scale: 0.5, glow: true},
	"rift":            {model: "rift.glb", scale: 1.0, glow: true},
}

// proposalStructureTypes maps proposal types to the structures they
// manifest as.
var proposalStructureTypes = map[string]string{
	"belief":      "floating_symbol",
	"ritual":      "altar",
	"deity":       "temple",
	"commandment": "obelisk",
	"myth":        "terrain_feature",
	"sacred_text": "library",
	"hierarchy":   "monument",
	"schism":      "rift",
}

var structureBaseNames = map[string]string{
	"temple":          "Temple",
	"altar":           "Altar",
	"obelisk":         "Obelisk",
	"monument":        "Monument",
	"library":         "Archive",
	"floating_symbol": "Sign",
	"rift":            "Schism",
}

var proposerMaterials = map[string]string{
	"Axioma":    "crystal",
	"Veridicus": "stone",
	"Paradoxia": "ethereal",
}

// State holds the complete mutable world state.
type State struct {
	mu            sync.RWMutex
	structures    []*Structure
	effects       []*Effect
	weather       Weather
	maxStructures int
	minDistance   float64

	rng    *rand.Rand
	logger *zap.Logger
}

// NewState creates an empty world.
func NewState(maxStructures int, rng *rand.Rand, logger *zap.Logger) *State {
	if maxStructures <= 0 {
		maxStructures = defaultMaxStructures
	}
	return &State{
		weather:       Weather{Type: "clear", Intensity: 0.5},
		maxStructures: maxStructures,
		minDistance:   minStructureDistance,
		rng:           rng,
		logger:        logger,
	}
}

// SetMinDistance overrides the minimum spacing between structures.
func (s *State) SetMinDistance(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.minDistance = d
	}
}

// StructureTypeFor maps a proposal type to the structure it spawns.
func StructureTypeFor(proposalType string) string {
	if st, ok := proposalStructureTypes[proposalType]; ok {
		return st
	}
	return "monument"
}

// Spawn places a new structure for an accepted doctrine. Placement
// follows a golden-angle spiral from the world center, nudged outward
// until it clears the minimum distance to existing structures.
func (s *State) Spawn(proposalType, doctrineID, proposer, color string, cycle int) (*Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeCountLocked() >= s.maxStructures {
		return nil, fmt.Errorf("world is full: %d structures", s.maxStructures)
	}

	structureType := StructureTypeFor(proposalType)
	tpl, ok := structureTemplates[structureType]
	if !ok {
		tpl = structureTemplate{model: "default.glb", scale: 1.0}
	}

	pos := s.findPositionLocked()

	baseName, ok := structureBaseNames[structureType]
	if !ok {
		baseName = "Structure"
	}
	material, ok := proposerMaterials[proposer]
	if !ok {
		material = "stone"
	}

	st := &Structure{
		ID:                   uuid.New().String(),
		StructureType:        structureType,
		Name:                 fmt.Sprintf("%s of Cycle %d", baseName, cycle),
		Position:             pos,
		RotationY:            s.rng.Float64() * 360,
		Scale:                tpl.scale,
		ModelPath:            "models/" + tpl.model,
		MaterialPreset:       material,
		PrimaryColor:         color,
		GlowEnabled:          tpl.glow,
		CreatedBy:            proposer,
		CreatedAtCycle:       cycle,
		AssociatedDoctrineID: doctrineID,
		Integrity:            1.0,
		Active:               true,
	}

	s.structures = append(s.structures, st)
	s.spawnEffectsLocked(st)

	s.logger.Info("structure spawned",
		zap.String("type", structureType),
		zap.String("name", st.Name),
		zap.Float64("x", pos.X),
		zap.Float64("z", pos.Z))
	return st, nil
}

// findPositionLocked walks the golden-angle spiral until it finds a spot
// clear of existing structures, clamped to world bounds.
func (s *State) findPositionLocked() Position {
	index := len(s.structures)
	for attempt := 0; attempt < 50; attempt++ {
		pos := spiralPosition(index + attempt)
		pos.X = clampCoord(pos.X)
		pos.Z = clampCoord(pos.Z)
		if s.isPositionValidLocked(pos.X, pos.Z) {
			return pos
		}
	}
	return spiralPosition(index)
}

// spiralPosition places index n on a golden-angle spiral: each step
// advances the angle by 0.618 of a full turn and the radius by 2.
func spiralPosition(index int) Position {
	angle := float64(index) * goldenRatioFraction * 2 * math.Pi
	distance := 10 + float64(index)*2
	return Position{
		X: math.Cos(angle) * distance,
		Z: math.Sin(angle) * distance,
	}
}

func clampCoord(v float64) float64 {
	limit := worldSize/2 - 5
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func (s *State) isPositionValidLocked(x, z float64) bool {
	for _, st := range s.structures {
		if !st.Active {
			continue
		}
		dx := st.Position.X - x
		dz := st.Position.Z - z
		if math.Sqrt(dx*dx+dz*dz) < s.minDistance {
			return false
		}
	}
	return true
}

func (s *State) spawnEffectsLocked(st *Structure) {
	switch st.StructureType {
	case "floating_symbol":
		color := st.PrimaryColor
		if color == "" {
			color = "#FFFFFF"
		}
		s.effects = append(s.effects, &Effect{
			ID:         uuid.New().String(),
			EffectType: "light_beam",
			Position:   Position{X: st.Position.X, Y: st.Position.Y + 5, Z: st.Position.Z},
			Parameters: map[string]interface{}{
				"color":  color,
				"width":  0.5,
				"height": 20,
			},
			AssociatedWith:  st.ID,
			AssociationType: "structure",
			Intensity:       1.0,
			Active:          true,
		})
	case "temple":
		color := st.PrimaryColor
		if color == "" {
			color = "#FFD700"
		}
		s.effects = append(s.effects, &Effect{
			ID:         uuid.New().String(),
			EffectType: "particle_field",
			Position:   st.Position,
			Parameters: map[string]interface{}{
				"particle_count": 50,
				"color":          color,
				"radius":         5,
			},
			AssociatedWith:  st.ID,
			AssociationType: "structure",
			Intensity:       1.0,
			Active:          true,
		})
	}
}

// SetWeather replaces the current weather state.
func (s *State) SetWeather(weatherType string, intensity float64, params map[string]interface{}, triggeredBy string, cycle int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if params == nil {
		params = map[string]interface{}{}
	}
	s.weather = Weather{
		Type:                  weatherType,
		Intensity:             intensity,
		Parameters:            params,
		TriggeredByDoctrineID: triggeredBy,
		StartedAtCycle:        cycle,
	}
	s.logger.Info("weather changed",
		zap.String("type", weatherType),
		zap.Float64("intensity", intensity))
}

// StructuresInRadius returns active structures within radius of (x, z).
func (s *State) StructuresInRadius(x, z, radius float64) []*Structure {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Structure
	for _, st := range s.structures {
		if !st.Active {
			continue
		}
		dx := st.Position.X - x
		dz := st.Position.Z - z
		if math.Sqrt(dx*dx+dz*dz) <= radius {
			out = append(out, st)
		}
	}
	return out
}

// Structures returns all active structures.
func (s *State) Structures() []*Structure {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Structure, 0, len(s.structures))
	for _, st := range s.structures {
		if st.Active {
			out = append(out, st)
		}
	}
	return out
}

// ActiveCount returns the number of active structures.
func (s *State) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked()
}

func (s *State) activeCountLocked() int {
	n := 0
	for _, st := range s.structures {
		if st.Active {
			n++
		}
	}
	return n
}

// Snapshot returns the full world state for broadcast and the API.
func (s *State) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	structures := make([]*Structure, 0, len(s.structures))
	for _, st := range s.structures {
		if st.Active {
			structures = append(structures, st)
		}
	}
	effects := make([]*Effect, 0, len(s.effects))
	for _, e := range s.effects {
		if e.Active {
			effects = append(effects, e)
		}
	}
	return map[string]interface{}{
		"structures":      structures,
		"effects":         effects,
		"weather":         s.weather,
		"structure_count": len(structures),
		"effect_count":    len(effects),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
}
