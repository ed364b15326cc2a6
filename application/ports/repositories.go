package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
)

// Sentinel errors returned by every store implementation. Services translate
// them into client-facing errors; anything else is a store failure.
var (
	ErrNotFound       = errors.New("record not found")
	ErrPairExists     = errors.New("an edge already exists for this pair")
	ErrQuotaExhausted = errors.New("quota window is full")
	ErrStaleState     = errors.New("record is no longer in the expected state")
)

// QuotaReservation asks a store to admit an insert only while the requester
// has fewer than Limit edges created inside [WindowStart, WindowEnd).
type QuotaReservation struct {
	ActorID     string
	Limit       int
	WindowStart time.Time
	WindowEnd   time.Time
}

// ActorDirectory is the read-only view of the identity collaborator
type ActorDirectory interface {
	// GetActor returns ErrNotFound for unknown ids
	GetActor(ctx context.Context, id string) (*actor.Actor, error)

	// GetActors returns the subset of ids that exist
	GetActors(ctx context.Context, ids []string) (map[string]*actor.Actor, error)
}

// ConnectionRepository persists connection edges
type ConnectionRepository interface {
	// CreatePending inserts a pending edge. The pair check, the optional quota
	// check and the insert form one atomic unit. Returns ErrPairExists or
	// ErrQuotaExhausted when the insert is refused.
	CreatePending(ctx context.Context, edge *connection.Edge, reservation *QuotaReservation) error

	// GetEdge returns ErrNotFound for unknown ids
	GetEdge(ctx context.Context, id string) (*connection.Edge, error)

	// FindBetween looks the pair up in either direction; ErrNotFound when absent
	FindBetween(ctx context.Context, a, b string) (*connection.Edge, error)

	// UpdateType moves an edge from one type to another. Returns ErrStaleState
	// when the stored type no longer equals from.
	UpdateType(ctx context.Context, id string, from, to connection.EdgeType, at time.Time) error

	// ListConnected returns connected edges touching the actor from either side
	ListConnected(ctx context.Context, actorID string) ([]*connection.Edge, error)

	// ListIncomingPending returns pending edges addressed to the actor
	ListIncomingPending(ctx context.Context, actorID string) ([]*connection.Edge, error)

	// CountCreated counts edges the actor initiated inside [start, end)
	CountCreated(ctx context.Context, actorID string, start, end time.Time) (int, error)
}

// PendingIntro is an incoming intro joined with the requester's profile
type PendingIntro struct {
	Request   *intro.Request
	Requester actor.Summary
}

// IntroRepository persists introduction requests
type IntroRepository interface {
	// UpsertPending inserts req, revives a rejected row for the same ordered
	// pair, or leaves a pending/accepted row untouched, in one atomic
	// operation. It returns the stored row and whether it is a new pending
	// request, which holds for both an insert and a revival.
	UpsertPending(ctx context.Context, req *intro.Request) (*intro.Request, bool, error)

	// GetIntro returns ErrNotFound for unknown ids
	GetIntro(ctx context.Context, id string) (*intro.Request, error)

	// TransitionIntro moves a request out of from; ErrStaleState when it has already moved
	TransitionIntro(ctx context.Context, id string, from, to intro.Status, at time.Time) error

	// ListPendingIntros returns pending requests targeting the actor, newest first
	ListPendingIntros(ctx context.Context, targetID string) ([]PendingIntro, error)
}

// ApplicationCounter reads the job-board collaborator's application count
type ApplicationCounter interface {
	CountApplications(ctx context.Context, actorID string) (int, error)
}

// Store bundles everything a backing store provides
type Store interface {
	ActorDirectory
	ConnectionRepository
	IntroRepository
	ApplicationCounter

	Ping(ctx context.Context) error
	Close() error
}
