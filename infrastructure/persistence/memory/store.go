package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
)

// Store is an in-memory implementation of ports.Store. A single mutex makes
// every operation atomic, which mirrors the row locks of the SQL store.
type Store struct {
	mu           sync.RWMutex
	actors       map[string]*actor.Actor
	edges        map[string]*connection.Edge
	pairs        map[connection.PairKey]string
	intros       map[string]*intro.Request
	applications map[string]int
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		actors:       make(map[string]*actor.Actor),
		edges:        make(map[string]*connection.Edge),
		pairs:        make(map[connection.PairKey]string),
		intros:       make(map[string]*intro.Request),
		applications: make(map[string]int),
	}
}

// PutActor adds or replaces a directory entry
func (s *Store) PutActor(a *actor.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.actors[a.ID] = &cp
}

// SetApplicationCount sets the lifetime application count for an actor
func (s *Store) SetApplicationCount(actorID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[actorID] = n
}

// GetActor returns a directory entry
func (s *Store) GetActor(ctx context.Context, id string) (*actor.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.actors[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetActors returns the entries that exist among ids
func (s *Store) GetActors(ctx context.Context, ids []string) (map[string]*actor.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*actor.Actor, len(ids))
	for _, id := range ids {
		if a, ok := s.actors[id]; ok {
			cp := *a
			out[id] = &cp
		}
	}
	return out, nil
}

// CreatePending inserts a pending edge after the pair and quota checks
func (s *Store) CreatePending(ctx context.Context, edge *connection.Edge, reservation *ports.QuotaReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edge.Key()
	if _, exists := s.pairs[key]; exists {
		return ports.ErrPairExists
	}
	if reservation != nil {
		if s.countCreatedLocked(reservation.ActorID, reservation.WindowStart, reservation.WindowEnd) >= reservation.Limit {
			return ports.ErrQuotaExhausted
		}
	}

	cp := *edge
	s.edges[edge.ID] = &cp
	s.pairs[key] = edge.ID
	return nil
}

// GetEdge returns an edge by id
func (s *Store) GetEdge(ctx context.Context, id string) (*connection.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// FindBetween returns the edge for the unordered pair
func (s *Store) FindBetween(ctx context.Context, a, b string) (*connection.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pairs[connection.NewPairKey(a, b)]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *s.edges[id]
	return &cp, nil
}

// UpdateType moves an edge between types when it still has the expected type
func (s *Store) UpdateType(ctx context.Context, id string, from, to connection.EdgeType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.edges[id]
	if !ok {
		return ports.ErrNotFound
	}
	if e.Type != from {
		return ports.ErrStaleState
	}
	e.Type = to
	e.UpdatedAt = at
	return nil
}

// ListConnected returns connected edges touching the actor
func (s *Store) ListConnected(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	return s.filterEdges(func(e *connection.Edge) bool {
		return e.Type == connection.TypeConnected && e.Involves(actorID)
	}), nil
}

// ListIncomingPending returns pending edges addressed to the actor
func (s *Store) ListIncomingPending(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	return s.filterEdges(func(e *connection.Edge) bool {
		return e.Type == connection.TypePending && e.ToActorID == actorID
	}), nil
}

// CountCreated counts edges the actor initiated inside [start, end)
func (s *Store) CountCreated(ctx context.Context, actorID string, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countCreatedLocked(actorID, start, end), nil
}

func (s *Store) countCreatedLocked(actorID string, start, end time.Time) int {
	n := 0
	for _, e := range s.edges {
		if e.FromActorID == actorID && !e.CreatedAt.Before(start) && e.CreatedAt.Before(end) {
			n++
		}
	}
	return n
}

func (s *Store) filterEdges(keep func(*connection.Edge) bool) []*connection.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*connection.Edge
	for _, e := range s.edges {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// UpsertPending inserts or revives the request row for the ordered pair
func (s *Store) UpsertPending(ctx context.Context, req *intro.Request) (*intro.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.intros[req.ID]
	if !ok {
		cp := *req
		s.intros[req.ID] = &cp
		out := cp
		return &out, true, nil
	}

	revived := existing.Status == intro.StatusRejected
	if revived {
		existing.Status = intro.StatusPending
		existing.UpdatedAt = req.UpdatedAt
	}
	out := *existing
	return &out, revived, nil
}

// GetIntro returns a request by id
func (s *Store) GetIntro(ctx context.Context, id string) (*intro.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.intros[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// TransitionIntro moves a request out of the expected status
func (s *Store) TransitionIntro(ctx context.Context, id string, from, to intro.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.intros[id]
	if !ok {
		return ports.ErrNotFound
	}
	if r.Status != from {
		return ports.ErrStaleState
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

// ListPendingIntros returns pending requests for the target, newest first
func (s *Store) ListPendingIntros(ctx context.Context, targetID string) ([]ports.PendingIntro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.PendingIntro
	for _, r := range s.intros {
		if r.TargetID != targetID || r.Status != intro.StatusPending {
			continue
		}
		cp := *r
		summary := actor.Summary{ID: r.RequesterID}
		if a, ok := s.actors[r.RequesterID]; ok {
			summary = a.Summarize()
		}
		out = append(out, ports.PendingIntro{Request: &cp, Requester: summary})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Request.UpdatedAt.After(out[j].Request.UpdatedAt)
	})
	return out, nil
}

// CountApplications returns the lifetime application count
func (s *Store) CountApplications(ctx context.Context, actorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applications[actorID], nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }
