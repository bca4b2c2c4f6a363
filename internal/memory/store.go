package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Store persists interactions to Neo4j so agents can recall across
// restarts and relationships can be queried as a graph.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a Neo4j-backed interaction store.
func NewStore(uri, user, password string, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Store{driver: driver, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// SaveInteraction persists one interaction and links the participating
// entities with an INTERACTED relationship.
func (s *Store) SaveInteraction(ctx context.Context, in *Interaction) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (from:Entity {id: $from})
		 MERGE (to:Entity {id: $to})
		 CREATE (i:Interaction {
			id: $id, type: $type, content: $content,
			emotional_state: $emotion, importance: $importance,
			conversation_id: $convID, created_at: datetime($ts)
		 })
		 CREATE (from)-[:SENT]->(i)-[:RECEIVED_BY]->(to)
		 MERGE (from)-[r:INTERACTED]->(to)
		 ON CREATE SET r.count = 1
		 ON MATCH SET r.count = r.count + 1`,
		map[string]interface{}{
			"id":         in.ID,
			"from":       in.FromEntity,
			"to":         in.ToEntity,
			"type":       string(in.Type),
			"content":    in.Content,
			"emotion":    string(in.EmotionalState),
			"importance": in.Importance,
			"convID":     in.ConversationID,
			"ts":         in.Timestamp.UTC().Format(time.RFC3339),
		})
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

// RecentInteractions returns the latest interactions involving an entity,
// most important first within the window.
func (s *Store) RecentInteractions(ctx context.Context, entityID string, limit int) ([]*Interaction, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (e:Entity {id: $entity})-[:SENT|RECEIVED_BY]-(i:Interaction)
		 MATCH (from:Entity)-[:SENT]->(i)-[:RECEIVED_BY]->(to:Entity)
		 RETURN DISTINCT i.id, i.type, i.content, i.emotional_state,
		        i.importance, i.conversation_id, from.id, to.id
		 ORDER BY i.created_at DESC LIMIT $limit`,
		map[string]interface{}{"entity": entityID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}

	var out []*Interaction
	for result.Next(ctx) {
		rec := result.Record()
		in := &Interaction{}
		if v, ok := rec.Get("i.id"); ok {
			in.ID, _ = v.(string)
		}
		if v, ok := rec.Get("i.type"); ok {
			if t, ok := v.(string); ok {
				in.Type = InteractionType(t)
			}
		}
		if v, ok := rec.Get("i.content"); ok {
			in.Content, _ = v.(string)
		}
		if v, ok := rec.Get("i.emotional_state"); ok {
			if e, ok := v.(string); ok {
				in.EmotionalState = EmotionalState(e)
			}
		}
		if v, ok := rec.Get("i.importance"); ok {
			in.Importance, _ = v.(float64)
		}
		if v, ok := rec.Get("i.conversation_id"); ok {
			in.ConversationID, _ = v.(string)
		}
		if v, ok := rec.Get("from.id"); ok {
			in.FromEntity, _ = v.(string)
		}
		if v, ok := rec.Get("to.id"); ok {
			in.ToEntity, _ = v.(string)
		}
		out = append(out, in)
	}
	return out, result.Err()
}

// DecaySweep halves the importance of interactions older than the given
// half-life and deletes those that fall below the floor. Returns the
// number of deleted interactions.
func (s *Store) DecaySweep(ctx context.Context, halfLifeHours, floor float64) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (i:Interaction)
		 WITH i, duration.between(i.created_at, datetime()).hours AS hours
		 WHERE hours > 0
		 SET i.importance = i.importance * (0.5 ^ (toFloat(hours) / $halfLife))
		 WITH i WHERE i.importance < $floor
		 DETACH DELETE i
		 RETURN count(i) AS deleted`,
		map[string]interface{}{"halfLife": halfLifeHours, "floor": floor})
	if err != nil {
		return 0, fmt.Errorf("decay sweep: %w", err)
	}

	var deleted int
	if result.Next(ctx) {
		if v, ok := result.Record().Get("deleted"); ok {
			deleted = int(v.(int64))
		}
	}
	s.logger.Info("interaction decay sweep complete", zap.Int("deleted", deleted))
	return deleted, nil
}
