package intro

import (
	"testing"
	"time"

	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsPerOrderedPair(t *testing.T) {
	assert.Equal(t, RequestID("a", "b"), RequestID("a", "b"))
	assert.NotEqual(t, RequestID("a", "b"), RequestID("b", "a"))
	assert.NotEqual(t, RequestID("ab", "c"), RequestID("a", "bc"))
}

func TestCheckEntitlement(t *testing.T) {
	person := func(tier actor.Tier) *actor.Actor {
		return &actor.Actor{ID: "p", Role: actor.RoleIndividual, Tier: tier}
	}
	org := &actor.Actor{ID: "o", Role: actor.RoleOrganization, Tier: actor.TierFree}
	fund := &actor.Actor{ID: "f", Role: actor.RoleInvestor, Tier: actor.TierPremium}
	op := &actor.Actor{ID: "x", Role: actor.RoleOperator, Tier: actor.TierPremium}

	tests := []struct {
		name      string
		requester *actor.Actor
		target    *actor.Actor
		allowed   bool
	}{
		{"premium individual to organization", person(actor.TierPremium), org, true},
		{"premium individual to investor", person(actor.TierPremium), fund, true},
		{"free individual to organization", person(actor.TierFree), org, false},
		{"organization to individual", org, person(actor.TierFree), true},
		{"investor to organization", fund, org, false},
		{"organization to investor", org, fund, false},
		{"individual to individual", person(actor.TierPremium), person(actor.TierPremium), false},
		{"operator", op, person(actor.TierFree), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEntitlement(tt.requester, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, pkgerrors.IsForbidden(err), "got %v", err)
			}
		})
	}
}

func TestRequestRespond(t *testing.T) {
	now := time.Now()
	req := NewRequest("a", "b", now)
	require.Equal(t, StatusPending, req.Status)

	require.NoError(t, req.Respond(StatusAccepted, now))
	assert.Equal(t, StatusAccepted, req.Status)

	err := req.Respond(StatusRejected, now)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
	assert.Equal(t, StatusAccepted, req.Status)
}
