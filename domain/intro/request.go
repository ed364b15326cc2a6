package intro

import (
	"time"

	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an introduction request
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// CampaignAccepted is the email campaign sent to both parties of an accepted intro
const CampaignAccepted = "intro_accepted"

// namespace scopes request ids derived from the ordered actor pair
var namespace = uuid.MustParse("5b0c7e3e-41d4-4a8f-9a4b-3f0d2e6c8a11")

// RequestID returns the id of the single request row for an ordered pair.
// Requests in opposite directions get different ids.
func RequestID(requesterID, targetID string) string {
	return uuid.NewSHA1(namespace, []byte(requesterID+"\x00"+targetID)).String()
}

// Request is a request by one actor to be introduced to another
type Request struct {
	ID          string    `json:"id" db:"id"`
	RequesterID string    `json:"requesterId" db:"requester_id"`
	TargetID    string    `json:"targetId" db:"target_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// NewRequest builds a fresh pending request for the ordered pair
func NewRequest(requesterID, targetID string, now time.Time) *Request {
	return &Request{
		ID:          RequestID(requesterID, targetID),
		RequesterID: requesterID,
		TargetID:    targetID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ParseDecision validates a target's decision
func ParseDecision(s string) (Status, error) {
	switch Status(s) {
	case StatusAccepted, StatusRejected:
		return Status(s), nil
	}
	return "", pkgerrors.NewValidationError("decision must be 'accepted' or 'rejected'")
}

// Respond applies the target's decision to a pending request
func (r *Request) Respond(decision Status, now time.Time) error {
	if r.Status != StatusPending {
		return pkgerrors.NewInvalidTransitionError("introduction", string(r.Status), string(decision))
	}
	r.Status = decision
	r.UpdatedAt = now
	return nil
}

// CheckEntitlement enforces who may ask for an introduction. Intros bridge the
// individual and organization sides of the platform, and free individuals
// cannot request them.
func CheckEntitlement(requester, target *actor.Actor) error {
	if requester.Role == actor.RoleOperator || target.Role == actor.RoleOperator {
		return pkgerrors.NewForbiddenError("operators do not take part in introductions")
	}
	if requester.Role == actor.RoleIndividual && !requester.IsPremium() {
		return pkgerrors.NewForbiddenError("introductions require a premium subscription")
	}
	if requester.Role.Organizational() == target.Role.Organizational() {
		return pkgerrors.NewForbiddenError("introductions connect individuals with organizations")
	}
	return nil
}
