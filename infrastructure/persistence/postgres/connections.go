package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"

	"github.com/jmoiron/sqlx"
)

const edgeColumns = `id, from_actor_id, to_actor_id, type, created_at, updated_at`

// lockActorQuery serialises every insert made on behalf of one requester, so
// the window count below cannot be read by two transactions at once.
const lockActorQuery = `SELECT id FROM actors WHERE id = $1 FOR UPDATE`

const pairExistsQuery = `
	SELECT EXISTS(
		SELECT 1 FROM connection_edges
		WHERE LEAST(from_actor_id, to_actor_id) = LEAST($1::text, $2::text)
		  AND GREATEST(from_actor_id, to_actor_id) = GREATEST($1::text, $2::text)
	)
`

const countCreatedQuery = `
	SELECT COUNT(*) FROM connection_edges
	WHERE from_actor_id = $1 AND created_at >= $2 AND created_at < $3
`

const insertEdgeQuery = `
	INSERT INTO connection_edges (` + edgeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
`

const getEdgeQuery = `SELECT ` + edgeColumns + ` FROM connection_edges WHERE id = $1`

const findBetweenQuery = `
	SELECT ` + edgeColumns + ` FROM connection_edges
	WHERE LEAST(from_actor_id, to_actor_id) = LEAST($1::text, $2::text)
	  AND GREATEST(from_actor_id, to_actor_id) = GREATEST($1::text, $2::text)
`

const updateTypeQuery = `
	UPDATE connection_edges SET type = $3, updated_at = $4
	WHERE id = $1 AND type = $2
`

const listConnectedQuery = `
	SELECT ` + edgeColumns + ` FROM connection_edges
	WHERE type = 'connected' AND (from_actor_id = $1 OR to_actor_id = $1)
	ORDER BY created_at, id
`

const listIncomingPendingQuery = `
	SELECT ` + edgeColumns + ` FROM connection_edges
	WHERE type = 'pending' AND to_actor_id = $1
	ORDER BY created_at, id
`

// CreatePending implements ports.ConnectionRepository
func (s *Store) CreatePending(ctx context.Context, edge *connection.Edge, reservation *ports.QuotaReservation) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.QueryRowxContext(ctx, lockActorQuery, edge.FromActorID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ports.ErrNotFound
			}
			return fmt.Errorf("lock requester: %w", err)
		}

		var exists bool
		if err := tx.QueryRowxContext(ctx, pairExistsQuery, edge.FromActorID, edge.ToActorID).Scan(&exists); err != nil {
			return fmt.Errorf("check pair: %w", err)
		}
		if exists {
			return ports.ErrPairExists
		}

		if reservation != nil {
			var used int
			err := tx.QueryRowxContext(ctx, countCreatedQuery,
				reservation.ActorID, reservation.WindowStart.UTC(), reservation.WindowEnd.UTC(),
			).Scan(&used)
			if err != nil {
				return fmt.Errorf("count window: %w", err)
			}
			if used >= reservation.Limit {
				return ports.ErrQuotaExhausted
			}
		}

		_, err := tx.ExecContext(ctx, insertEdgeQuery,
			edge.ID, edge.FromActorID, edge.ToActorID, edge.Type,
			edge.CreatedAt.UTC(), edge.UpdatedAt.UTC(),
		)
		if err != nil {
			switch pgErrorCode(err) {
			case codeUniqueViolation:
				// The opposite direction committed first
				return ports.ErrPairExists
			case codeForeignKeyViolation:
				return ports.ErrNotFound
			}
			return fmt.Errorf("insert edge: %w", err)
		}
		return nil
	})
}

// GetEdge implements ports.ConnectionRepository
func (s *Store) GetEdge(ctx context.Context, id string) (*connection.Edge, error) {
	return s.getEdge(ctx, getEdgeQuery, id)
}

// FindBetween implements ports.ConnectionRepository
func (s *Store) FindBetween(ctx context.Context, a, b string) (*connection.Edge, error) {
	return s.getEdge(ctx, findBetweenQuery, a, b)
}

func (s *Store) getEdge(ctx context.Context, query string, args ...interface{}) (*connection.Edge, error) {
	var e connection.Edge
	if err := s.db.GetContext(ctx, &e, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("get edge: %w", err)
	}
	return &e, nil
}

// UpdateType implements ports.ConnectionRepository
func (s *Store) UpdateType(ctx context.Context, id string, from, to connection.EdgeType, at time.Time) error {
	res, err := s.db.ExecContext(ctx, updateTypeQuery, id, from, to, at.UTC())
	if err != nil {
		return fmt.Errorf("update edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update edge: %w", err)
	}
	if n == 0 {
		return ports.ErrStaleState
	}
	return nil
}

// ListConnected implements ports.ConnectionRepository
func (s *Store) ListConnected(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	return s.selectEdges(ctx, listConnectedQuery, actorID)
}

// ListIncomingPending implements ports.ConnectionRepository
func (s *Store) ListIncomingPending(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	return s.selectEdges(ctx, listIncomingPendingQuery, actorID)
}

func (s *Store) selectEdges(ctx context.Context, query string, args ...interface{}) ([]*connection.Edge, error) {
	var edges []*connection.Edge
	if err := s.db.SelectContext(ctx, &edges, query, args...); err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return edges, nil
}

// CountCreated implements ports.ConnectionRepository
func (s *Store) CountCreated(ctx context.Context, actorID string, start, end time.Time) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countCreatedQuery, actorID, start.UTC(), end.UTC()); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}
