package connection

import (
	"time"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"
)

// EdgeType is the lifecycle state of a connection
type EdgeType string

const (
	TypePending   EdgeType = "pending"
	TypeConnected EdgeType = "connected"
	TypeRejected  EdgeType = "rejected"
)

// StatusNotConnected is reported for pairs without an edge
const StatusNotConnected = "not_connected"

// Terminal reports whether no further transitions are allowed
func (t EdgeType) Terminal() bool {
	return t == TypeConnected || t == TypeRejected
}

// ParseDecision validates a recipient's decision
func ParseDecision(s string) (EdgeType, error) {
	switch EdgeType(s) {
	case TypeConnected, TypeRejected:
		return EdgeType(s), nil
	}
	return "", pkgerrors.NewValidationError("decision must be 'connected' or 'rejected'")
}

// Edge is a connection between two actors. The direction records who
// initiated it; lookups treat (A,B) and (B,A) as the same relationship.
type Edge struct {
	ID          string    `json:"id" db:"id"`
	FromActorID string    `json:"fromActorId" db:"from_actor_id"`
	ToActorID   string    `json:"toActorId" db:"to_actor_id"`
	Type        EdgeType  `json:"type" db:"type"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// NewPendingEdge creates the requester's side of a new connection
func NewPendingEdge(id, from, to string, now time.Time) (*Edge, error) {
	if from == "" || to == "" {
		return nil, pkgerrors.NewValidationError("both actors are required")
	}
	if from == to {
		return nil, pkgerrors.NewSelfReferenceError("connect with")
	}
	return &Edge{
		ID:          id,
		FromActorID: from,
		ToActorID:   to,
		Type:        TypePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Involves reports whether the actor is either end of the edge
func (e *Edge) Involves(actorID string) bool {
	return e.FromActorID == actorID || e.ToActorID == actorID
}

// Other returns the opposite end from actorID
func (e *Edge) Other(actorID string) string {
	if e.FromActorID == actorID {
		return e.ToActorID
	}
	return e.FromActorID
}

// Key returns the unordered pair key
func (e *Edge) Key() PairKey {
	return NewPairKey(e.FromActorID, e.ToActorID)
}

// Respond applies the recipient's decision. Only the recipient may respond
// and only while the edge is pending.
func (e *Edge) Respond(responderID string, decision EdgeType, now time.Time) error {
	if e.ToActorID != responderID {
		return pkgerrors.NewNotFoundError("pending connection request")
	}
	if e.Type != TypePending {
		return pkgerrors.NewInvalidTransitionError("connection", string(e.Type), string(decision))
	}
	if !decision.Terminal() {
		return pkgerrors.NewValidationError("decision must be 'connected' or 'rejected'")
	}
	e.Type = decision
	e.UpdatedAt = now
	return nil
}

// PairKey identifies an unordered pair of actors
type PairKey struct {
	Low  string
	High string
}

// NewPairKey orders the two ids so both directions produce the same key
func NewPairKey(a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// String renders the key for storage
func (k PairKey) String() string {
	return k.Low + "#" + k.High
}
