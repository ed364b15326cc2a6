package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/services"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/quota"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/messaging/logmailer"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/persistence/memory"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest/middleware"
	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"
	"github.com/Shani815/vctalenthub-sub000/pkg/graphbuilder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "client-test-secret"

type env struct {
	server    *httptest.Server
	store     *memory.Store
	generator *auth.JWTGenerator
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "HS256", SecretKey: secret})
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(secret, "", nil, time.Hour)
	require.NoError(t, err)

	errs := pkgerrors.NewErrorHandler(logger, false)
	authn := middleware.NewAuthenticator(validator, middleware.AuthConfig{}, errs, logger)
	t.Cleanup(authn.Stop)

	q := services.NewQuotaService(quota.DefaultPolicy(), store, store, nil, nil, logger)
	router := rest.NewRouter(rest.Dependencies{
		Connections: services.NewConnectionService(store, store, q, nil, nil, logger),
		Intros:      services.NewIntroService(store, store, logmailer.NewMailer(logger), nil, nil, logger),
		Quota:       q,
		Store:       store,
		Auth:        authn,
		Errors:      errs,
		Logger:      logger,
	})

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	for _, a := range []struct {
		id   string
		role actor.Role
		tier actor.Tier
	}{
		{"alice", actor.RoleIndividual, actor.TierPremium},
		{"bob", actor.RoleIndividual, actor.TierPremium},
		{"carol", actor.RoleIndividual, actor.TierFree},
		{"fund", actor.RoleInvestor, actor.TierFree},
	} {
		store.PutActor(&actor.Actor{
			ID:          a.id,
			DisplayName: "Name of " + a.id,
			Role:        a.role,
			Tier:        a.tier,
			Status:      actor.StatusActive,
			CreatedAt:   time.Now().Add(-time.Hour),
		})
	}

	return &env{server: server, store: store, generator: generator}
}

func (e *env) client(t *testing.T, userID string) *Client {
	t.Helper()
	token, err := e.generator.GenerateToken(userID, "", nil)
	require.NoError(t, err)
	return New(e.server.URL+"/", WithToken(token), WithHTTPClient(e.server.Client()))
}

func connect(t *testing.T, from, to *Client, toID string) {
	t.Helper()
	ctx := context.Background()
	edge, err := from.RequestConnection(ctx, toID)
	require.NoError(t, err)
	_, err = to.RespondToConnection(ctx, edge.ID, "connected")
	require.NoError(t, err)
}

func TestClient_ConnectionLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.client(t, "alice"), e.client(t, "bob")

	edge, err := alice.RequestConnection(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "pending", string(edge.Type))

	pending, err := bob.PendingConnections(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Requester.ID)

	answered, err := bob.RespondToConnection(ctx, pending[0].Edge.ID, "connected")
	require.NoError(t, err)
	assert.Equal(t, "connected", string(answered.Type))

	status, err := alice.ConnectionStatus(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "connected", status.Status)

	_, err = bob.RequestConnection(ctx, "alice")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))
}

func TestClient_ErrorsCarryTaxonomy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	carol := e.client(t, "carol")

	_, err := carol.ListNeighbors(ctx, "carol")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPremiumRequired(err))
	assert.Equal(t, http.StatusForbidden, pkgerrors.GetAppError(err).HTTPStatus)

	for _, id := range []string{"alice", "bob", "fund"} {
		_, err := carol.RequestConnection(ctx, id)
		require.NoError(t, err)
	}
	e.store.PutActor(&actor.Actor{ID: "dave", Role: actor.RoleIndividual, Status: actor.StatusActive, CreatedAt: time.Now()})
	e.store.PutActor(&actor.Actor{ID: "erin", Role: actor.RoleIndividual, Status: actor.StatusActive, CreatedAt: time.Now()})
	_, err = carol.RequestConnection(ctx, "dave")
	require.NoError(t, err)

	_, err = carol.RequestConnection(ctx, "erin")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsQuotaExceeded(err))
	days, ok := pkgerrors.GetAppError(err).RetryAfterDays()
	require.True(t, ok)
	assert.Equal(t, 7, days)

	q, err := carol.Quota(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, q.Connections.Used)
	assert.Equal(t, 2, q.Applications.Remaining)
}

func TestClient_IntroLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, fund := e.client(t, "alice"), e.client(t, "fund")

	req, created, err := alice.RequestIntro(ctx, "fund")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := alice.RequestIntro(ctx, "fund")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, req.ID, again.ID)

	pending, err := fund.PendingIntros(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
	assert.Equal(t, "alice", pending[0].Requester.ID)

	accepted, err := fund.RespondToIntro(ctx, req.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, "accepted", string(accepted.Status))
}

func TestClient_ApplicationCheck(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	check, err := e.client(t, "carol").CheckApplication(ctx)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	require.NotNil(t, check.Remaining)
	assert.Equal(t, 1, *check.Remaining)

	check, err = e.client(t, "alice").CheckApplication(ctx)
	require.NoError(t, err)
	assert.True(t, check.Unlimited)
	assert.Nil(t, check.Remaining)
}

func TestClient_NonJSONErrorAndUnavailable(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer plain.Close()

	_, err := New(plain.URL).Quota(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))

	plain.Close()
	_, err = New(plain.URL).Quota(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestClient_DrivesGraphBuilder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.client(t, "alice"), e.client(t, "bob"), e.client(t, "carol")

	connect(t, alice, bob, "bob")
	connect(t, carol, bob, "bob")

	builder := graphbuilder.New(alice)
	require.NoError(t, builder.Initialize(ctx, graphbuilder.Member{ID: "alice"}))
	require.NoError(t, builder.ExpandToDepth(ctx, 2))

	snap := builder.Snapshot()
	ids := make([]string, 0, len(snap.Visible))
	for _, n := range snap.Visible {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
	assert.Len(t, snap.Edges, 2)

	n, _ := builder.Node("carol")
	assert.Equal(t, "Name of carol", n.DisplayName)
	assert.Equal(t, 2, n.Level)
}
