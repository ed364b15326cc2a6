package postgres

import (
	"context"
	"fmt"
)

const countApplicationsQuery = `SELECT COUNT(*) FROM job_applications WHERE actor_id = $1`

// CountApplications implements ports.ApplicationCounter
func (s *Store) CountApplications(ctx context.Context, actorID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countApplicationsQuery, actorID); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}
