package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"

	"github.com/jmoiron/sqlx"
)

const actorColumns = `id, display_name, headline, email, role, tier, status, created_at`

const getActorQuery = `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`

const getActorsQuery = `SELECT ` + actorColumns + ` FROM actors WHERE id IN (?)`

const upsertActorQuery = `
	INSERT INTO actors (` + actorColumns + `)
	VALUES (:id, :display_name, :headline, :email, :role, :tier, :status, :created_at)
	ON CONFLICT (id) DO UPDATE SET
		display_name = EXCLUDED.display_name,
		headline = EXCLUDED.headline,
		email = EXCLUDED.email,
		role = EXCLUDED.role,
		tier = EXCLUDED.tier,
		status = EXCLUDED.status
`

// GetActor implements ports.ActorDirectory
func (s *Store) GetActor(ctx context.Context, id string) (*actor.Actor, error) {
	var a actor.Actor
	if err := s.db.GetContext(ctx, &a, getActorQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("get actor: %w", err)
	}
	return &a, nil
}

// GetActors implements ports.ActorDirectory
func (s *Store) GetActors(ctx context.Context, ids []string) (map[string]*actor.Actor, error) {
	out := make(map[string]*actor.Actor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(getActorsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("build actors query: %w", err)
	}

	var rows []actor.Actor
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get actors: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// PutActor mirrors a directory entry from the identity service
func (s *Store) PutActor(ctx context.Context, a *actor.Actor) error {
	if a.Status == "" {
		a.Status = actor.StatusActive
	}
	if _, err := s.db.NamedExecContext(ctx, upsertActorQuery, a); err != nil {
		return fmt.Errorf("put actor: %w", err)
	}
	return nil
}
