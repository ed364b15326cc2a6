package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
)

const introColumns = `id, requester_id, target_id, status, created_at, updated_at`

// upsertIntroQuery is a single conditional write: it inserts the row, revives
// a rejected one, or returns nothing when a pending or accepted row exists.
// A returned row therefore always means a new pending request.
const upsertIntroQuery = `
	INSERT INTO intro_requests (` + introColumns + `)
	VALUES ($1, $2, $3, 'pending', $4, $4)
	ON CONFLICT (requester_id, target_id) DO UPDATE
		SET status = 'pending', updated_at = EXCLUDED.updated_at
		WHERE intro_requests.status = 'rejected'
	RETURNING ` + introColumns + `
`

const getIntroByPairQuery = `
	SELECT ` + introColumns + ` FROM intro_requests
	WHERE requester_id = $1 AND target_id = $2
`

const getIntroQuery = `SELECT ` + introColumns + ` FROM intro_requests WHERE id = $1`

const transitionIntroQuery = `
	UPDATE intro_requests SET status = $3, updated_at = $4
	WHERE id = $1 AND status = $2
`

const listPendingIntrosQuery = `
	SELECT i.id, i.requester_id, i.target_id, i.status, i.created_at, i.updated_at,
	       a.display_name, a.headline, a.role
	FROM intro_requests i
	JOIN actors a ON a.id = i.requester_id
	WHERE i.target_id = $1 AND i.status = 'pending'
	ORDER BY i.updated_at DESC
`

type pendingIntroRow struct {
	intro.Request
	DisplayName string     `db:"display_name"`
	Headline    string     `db:"headline"`
	Role        actor.Role `db:"role"`
}

// UpsertPending implements ports.IntroRepository
func (s *Store) UpsertPending(ctx context.Context, req *intro.Request) (*intro.Request, bool, error) {
	var stored intro.Request
	err := s.db.QueryRowxContext(ctx, upsertIntroQuery,
		req.ID, req.RequesterID, req.TargetID, req.CreatedAt.UTC(),
	).StructScan(&stored)

	switch {
	case err == nil:
		return &stored, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// Conflict with a pending or accepted row; nothing was written
	case pgErrorCode(err) == codeForeignKeyViolation:
		return nil, false, ports.ErrNotFound
	default:
		return nil, false, fmt.Errorf("upsert intro: %w", err)
	}

	var existing intro.Request
	if err := s.db.GetContext(ctx, &existing, getIntroByPairQuery, req.RequesterID, req.TargetID); err != nil {
		return nil, false, fmt.Errorf("read intro after upsert: %w", err)
	}
	return &existing, false, nil
}

// GetIntro implements ports.IntroRepository
func (s *Store) GetIntro(ctx context.Context, id string) (*intro.Request, error) {
	var r intro.Request
	if err := s.db.GetContext(ctx, &r, getIntroQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("get intro: %w", err)
	}
	return &r, nil
}

// TransitionIntro implements ports.IntroRepository
func (s *Store) TransitionIntro(ctx context.Context, id string, from, to intro.Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx, transitionIntroQuery, id, from, to, at.UTC())
	if err != nil {
		return fmt.Errorf("transition intro: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition intro: %w", err)
	}
	if n == 0 {
		return ports.ErrStaleState
	}
	return nil
}

// ListPendingIntros implements ports.IntroRepository
func (s *Store) ListPendingIntros(ctx context.Context, targetID string) ([]ports.PendingIntro, error) {
	var rows []pendingIntroRow
	if err := s.db.SelectContext(ctx, &rows, listPendingIntrosQuery, targetID); err != nil {
		return nil, fmt.Errorf("list pending intros: %w", err)
	}

	out := make([]ports.PendingIntro, 0, len(rows))
	for i := range rows {
		r := rows[i]
		req := r.Request
		out = append(out, ports.PendingIntro{
			Request: &req,
			Requester: actor.Summary{
				ID:          r.RequesterID,
				DisplayName: r.DisplayName,
				Headline:    r.Headline,
				Role:        r.Role,
			},
		})
	}
	return out, nil
}
