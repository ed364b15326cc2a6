package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/quota"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/persistence/memory"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, messages ...ports.Email) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

type fixture struct {
	store       *memory.Store
	clock       *testClock
	mailer      *mockMailer
	quota       *QuotaService
	connections *ConnectionService
	intros      *IntroService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()
	clock := &testClock{now: t0}
	mailer := &mockMailer{}

	q := NewQuotaService(quota.DefaultPolicy(), store, store, nil, clock.Now, logger)
	return &fixture{
		store:       store,
		clock:       clock,
		mailer:      mailer,
		quota:       q,
		connections: NewConnectionService(store, store, q, nil, clock.Now, logger),
		intros:      NewIntroService(store, store, mailer, nil, clock.Now, logger),
	}
}

func (f *fixture) addActor(id string, role actor.Role, tier actor.Tier) *actor.Actor {
	a := &actor.Actor{
		ID:          id,
		DisplayName: "Name of " + id,
		Email:       id + "@example.com",
		Role:        role,
		Tier:        tier,
		Status:      actor.StatusActive,
		CreatedAt:   t0,
	}
	f.store.PutActor(a)
	return a
}
