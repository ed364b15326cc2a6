// Package actor holds the read-only view of platform members that the
// relationship graph works with. Actors are owned by the identity service.
package actor

import "time"

// Role is the kind of member an actor is
type Role string

const (
	RoleIndividual   Role = "individual"
	RoleInvestor     Role = "investor"
	RoleOrganization Role = "organization"
	RoleOperator     Role = "operator"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleIndividual, RoleInvestor, RoleOrganization, RoleOperator:
		return true
	}
	return false
}

// Organizational reports whether the role sits on the organization side of
// the platform. Investors count as organizations for introductions.
func (r Role) Organizational() bool {
	return r == RoleInvestor || r == RoleOrganization
}

// Tier is the subscription level
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Status is the account status
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Actor is a platform member
type Actor struct {
	ID          string    `json:"id" db:"id" dynamodbav:"ActorID"`
	DisplayName string    `json:"displayName" db:"display_name" dynamodbav:"DisplayName"`
	Headline    string    `json:"headline,omitempty" db:"headline" dynamodbav:"Headline"`
	Email       string    `json:"-" db:"email" dynamodbav:"Email"`
	Role        Role      `json:"role" db:"role" dynamodbav:"Role"`
	Tier        Tier      `json:"tier" db:"tier" dynamodbav:"Tier"`
	Status      Status    `json:"status" db:"status" dynamodbav:"Status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" dynamodbav:"CreatedAt"`
}

// IsPremium reports whether the actor has a paid subscription
func (a *Actor) IsPremium() bool {
	return a.Tier == TierPremium
}

// IsActive reports whether the actor can be targeted by requests
func (a *Actor) IsActive() bool {
	return a.Status == StatusActive || a.Status == ""
}

// Summary is the display projection returned alongside relationships
type Summary struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"displayName" db:"display_name"`
	Headline    string `json:"headline,omitempty" db:"headline"`
	Role        Role   `json:"role" db:"role"`
}

// Summarize projects the actor onto its display attributes
func (a *Actor) Summarize() Summary {
	return Summary{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Headline:    a.Headline,
		Role:        a.Role,
	}
}
