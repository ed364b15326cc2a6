package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	free := f.addActor("free", actor.RoleIndividual, actor.TierFree)
	premium := f.addActor("premium", actor.RoleIndividual, actor.TierPremium)

	remaining, err := f.quota.CheckApplication(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	f.store.SetApplicationCount("free", 1)
	remaining, err = f.quota.CheckApplication(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	f.store.SetApplicationCount("free", 2)
	_, err = f.quota.CheckApplication(ctx, free)
	require.True(t, pkgerrors.IsQuotaExceeded(err))
	_, hasRetry := pkgerrors.GetAppError(err).RetryAfterDays()
	assert.False(t, hasRetry, "lifetime quota never resets")

	// Windows passing does not matter for the lifetime counter
	f.clock.Set(t0.Add(400 * day))
	_, err = f.quota.CheckApplication(ctx, free)
	assert.True(t, pkgerrors.IsQuotaExceeded(err))

	f.store.SetApplicationCount("premium", 50)
	remaining, err = f.quota.CheckApplication(ctx, premium)
	require.NoError(t, err)
	assert.Equal(t, -1, remaining)
}

func TestConnectionQuotaReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	free := f.addActor("free", actor.RoleIndividual, actor.TierFree)
	for i := 0; i < 4; i++ {
		f.addActor(fmt.Sprintf("t%d", i), actor.RoleIndividual, actor.TierFree)
	}

	f.clock.Set(t0.Add(2 * day))
	q, err := f.quota.ConnectionQuota(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, 4, q.Remaining)
	assert.Equal(t, t0, q.WindowStart)
	assert.Equal(t, t0.Add(7*day), q.WindowEnd)

	for i := 0; i < 4; i++ {
		_, err := f.connections.RequestConnection(ctx, "free", fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}

	q, err = f.quota.ConnectionQuota(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, 4, q.Used)
	assert.Equal(t, 0, q.Remaining)
	assert.Equal(t, 5, q.RetryAfterDays)

	// Next window starts clean
	f.clock.Set(t0.Add(7 * day))
	q, err = f.quota.ConnectionQuota(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Used)
	assert.Equal(t, t0.Add(7*day), q.WindowStart)
}

func TestCheckAndReserve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	free := f.addActor("free", actor.RoleIndividual, actor.TierFree)
	premium := f.addActor("premium", actor.RoleInvestor, actor.TierPremium)

	res, err := f.quota.CheckAndReserve(ctx, premium, t0)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = f.quota.CheckAndReserve(ctx, free, t0)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 4, res.Limit)
	assert.Equal(t, "free", res.ActorID)
	assert.Equal(t, t0, res.WindowStart)

	res, err = f.quota.CheckAndReserve(ctx, free, t0.Add(7*day))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(7*day), res.WindowStart, "the window follows the instant passed in")
}
