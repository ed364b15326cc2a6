package services

import (
	"context"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/quota"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"go.uber.org/zap"
)

// Quota counters reported to metrics
const (
	CounterWeeklyConnections    = "weekly_connections"
	CounterLifetimeApplications = "lifetime_applications"
)

// QuotaService gates free-tier actors. Premium actors bypass every check.
type QuotaService struct {
	policy  quota.Policy
	edges   ports.ConnectionRepository
	apps    ports.ApplicationCounter
	metrics ports.Metrics
	clock   ports.Clock
	logger  *zap.Logger
}

// NewQuotaService creates a new quota service
func NewQuotaService(
	policy quota.Policy,
	edges ports.ConnectionRepository,
	apps ports.ApplicationCounter,
	metrics ports.Metrics,
	clock ports.Clock,
	logger *zap.Logger,
) *QuotaService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &QuotaService{
		policy:  policy,
		edges:   edges,
		apps:    apps,
		metrics: metrics,
		clock:   clock,
		logger:  logger,
	}
}

// ConnectionQuota describes an actor's weekly connection allowance
type ConnectionQuota struct {
	Unlimited      bool      `json:"unlimited"`
	Limit          int       `json:"limit,omitempty"`
	Used           int       `json:"used"`
	Remaining      int       `json:"remaining,omitempty"`
	WindowStart    time.Time `json:"windowStart,omitempty"`
	WindowEnd      time.Time `json:"windowEnd,omitempty"`
	RetryAfterDays int       `json:"retryAfterDays,omitempty"`
}

// ApplicationQuota describes an actor's lifetime application allowance
type ApplicationQuota struct {
	Unlimited bool `json:"unlimited"`
	Limit     int  `json:"limit,omitempty"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining,omitempty"`
}

// CheckAndReserve computes the window containing now and returns the
// reservation the store must honour when inserting the edge. The caller
// stamps the edge with the same now so the edge is counted in the window it
// was admitted to. A nil reservation means the actor is not limited. The
// count here only fails fast; the store repeats it atomically with the insert.
func (s *QuotaService) CheckAndReserve(ctx context.Context, a *actor.Actor, now time.Time) (*ports.QuotaReservation, error) {
	if a.IsPremium() {
		return nil, nil
	}

	res := s.reservation(a, now)

	used, err := s.edges.CountCreated(ctx, a.ID, res.WindowStart, res.WindowEnd)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("count connection requests", err)
	}
	if used >= res.Limit {
		return nil, s.Exceeded(res, now)
	}
	return res, nil
}

// Exceeded builds the client-facing error for a full window
func (s *QuotaService) Exceeded(res *ports.QuotaReservation, now time.Time) error {
	s.metrics.RecordQuotaRejection(CounterWeeklyConnections)
	w := quota.Window{Start: res.WindowStart, End: res.WindowEnd}

	s.logger.Info("Weekly connection quota reached",
		zap.String("actor_id", res.ActorID),
		zap.Time("window_end", res.WindowEnd),
	)

	return pkgerrors.NewQuotaExceededError(res.Limit, w.Remaining(now)).
		WithDetails(map[string]interface{}{"windowEnd": res.WindowEnd})
}

func (s *QuotaService) reservation(a *actor.Actor, now time.Time) *ports.QuotaReservation {
	w := quota.CurrentWindow(a.CreatedAt, now, s.policy.Window)
	return &ports.QuotaReservation{
		ActorID:     a.ID,
		Limit:       s.policy.WeeklyConnections,
		WindowStart: w.Start,
		WindowEnd:   w.End,
	}
}

// ConnectionQuota reports usage of the current window
func (s *QuotaService) ConnectionQuota(ctx context.Context, a *actor.Actor) (*ConnectionQuota, error) {
	now := s.clock()
	w := quota.CurrentWindow(a.CreatedAt, now, s.policy.Window)

	used, err := s.edges.CountCreated(ctx, a.ID, w.Start, w.End)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("count connection requests", err)
	}

	if a.IsPremium() {
		return &ConnectionQuota{Unlimited: true, Used: used}, nil
	}

	q := &ConnectionQuota{
		Limit:       s.policy.WeeklyConnections,
		Used:        used,
		Remaining:   max(s.policy.WeeklyConnections-used, 0),
		WindowStart: w.Start,
		WindowEnd:   w.End,
	}
	if q.Remaining == 0 {
		q.RetryAfterDays = w.RetryAfterDays(now)
	}
	return q, nil
}

// CheckApplication fails once a free actor has used every lifetime application.
// The returned count is what remains after the caller applies; -1 means unlimited.
func (s *QuotaService) CheckApplication(ctx context.Context, a *actor.Actor) (int, error) {
	if a.IsPremium() {
		return -1, nil
	}

	used, err := s.apps.CountApplications(ctx, a.ID)
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("count applications", err)
	}

	limit := s.policy.LifetimeApplications
	if used >= limit {
		s.metrics.RecordQuotaRejection(CounterLifetimeApplications)
		return 0, pkgerrors.NewLifetimeQuotaExceededError("job applications", limit)
	}
	return limit - used - 1, nil
}

// ApplicationQuota reports lifetime application usage
func (s *QuotaService) ApplicationQuota(ctx context.Context, a *actor.Actor) (*ApplicationQuota, error) {
	used, err := s.apps.CountApplications(ctx, a.ID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("count applications", err)
	}
	if a.IsPremium() {
		return &ApplicationQuota{Unlimited: true, Used: used}, nil
	}
	limit := s.policy.LifetimeApplications
	return &ApplicationQuota{
		Limit:     limit,
		Used:      used,
		Remaining: max(limit-used, 0),
	}, nil
}
