package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI answers the calls a test cares about; anything else panics on the
// nil embedded interface.
type fakeAPI struct {
	API

	transact    func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error)
	update      func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	transactLog []*dynamodb.TransactWriteItemsInput
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transactLog = append(f.transactLog, in)
	return f.transact(in)
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.update(in)
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{Message: aws.String("cancelled"), CancellationReasons: reasons}
}

func testEdge(t *testing.T) *connection.Edge {
	t.Helper()
	e, err := connection.NewPendingEdge("e1", "alice", "bob", time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func testReservation() *ports.QuotaReservation {
	start := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	return &ports.QuotaReservation{ActorID: "alice", Limit: 4, WindowStart: start, WindowEnd: start.Add(7 * 24 * time.Hour)}
}

func TestCreatePending_TransactionShape(t *testing.T) {
	api := &fakeAPI{transact: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
		return &dynamodb.TransactWriteItemsOutput{}, nil
	}}
	s := NewStore(api, "graph", zap.NewNop())

	require.NoError(t, s.CreatePending(context.Background(), testEdge(t), testReservation()))
	require.NoError(t, s.CreatePending(context.Background(), testEdge(t), nil))

	require.Len(t, api.transactLog, 2)
	withQuota := api.transactLog[0].TransactItems
	require.Len(t, withQuota, 3)
	assert.Len(t, api.transactLog[1].TransactItems, 2, "premium requesters skip the counter")

	var guard pairItem
	require.NoError(t, attributevalue.UnmarshalMap(withQuota[txPairGuard].Put.Item, &guard))
	assert.Equal(t, "PAIR#alice#bob", guard.PK)
	assert.Equal(t, "e1", guard.EdgeID)

	counter := withQuota[txQuota].Update
	require.NotNil(t, counter)
	pk := counter.Key["PK"].(*types.AttributeValueMemberS).Value
	assert.Equal(t, "QUOTA#alice#1712739600", pk)
	assert.NotNil(t, counter.ConditionExpression)
}

func TestCreatePending_MapsCancellationReasons(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pair guard", cancelled(codeConditionalCheckFailed, "None", "None"), ports.ErrPairExists},
		{"quota counter", cancelled("None", "None", codeConditionalCheckFailed), ports.ErrQuotaExhausted},
		{"both prefers pair", cancelled(codeConditionalCheckFailed, "None", codeConditionalCheckFailed), ports.ErrPairExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{transact: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, tt.err
			}}
			s := NewStore(api, "graph", zap.NewNop())
			err := s.CreatePending(context.Background(), testEdge(t), testReservation())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("other failure is wrapped", func(t *testing.T) {
		boom := errors.New("throttled")
		api := &fakeAPI{transact: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
			return nil, boom
		}}
		s := NewStore(api, "graph", zap.NewNop())
		err := s.CreatePending(context.Background(), testEdge(t), nil)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ports.ErrPairExists)
	})
}

func TestUpdateType_ConditionFailureIsStale(t *testing.T) {
	api := &fakeAPI{update: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("no")}
	}}
	s := NewStore(api, "graph", zap.NewNop())

	err := s.UpdateType(context.Background(), "e1", connection.TypePending, connection.TypeConnected, time.Now())
	assert.ErrorIs(t, err, ports.ErrStaleState)

	err = s.TransitionIntro(context.Background(), "i1", intro.StatusPending, intro.StatusAccepted, time.Now())
	assert.ErrorIs(t, err, ports.ErrStaleState)
}

func TestUpsertPending_Outcomes(t *testing.T) {
	now := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	req := intro.NewRequest("alice", "bob", now)

	t.Run("fresh insert", func(t *testing.T) {
		api := &fakeAPI{update: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return &dynamodb.UpdateItemOutput{}, nil
		}}
		stored, created, err := NewStore(api, "graph", zap.NewNop()).UpsertPending(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, req.ID, stored.ID)
	})

	t.Run("revived keeps created time", func(t *testing.T) {
		old, err := attributevalue.MarshalMap(introItem{
			IntroID: req.ID, RequesterID: "alice", TargetID: "bob", Status: "rejected",
			CreatedAt: formatTime(now.Add(-48 * time.Hour)), UpdatedAt: formatTime(now.Add(-time.Hour)),
		})
		require.NoError(t, err)
		api := &fakeAPI{update: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return &dynamodb.UpdateItemOutput{Attributes: old}, nil
		}}
		stored, created, err := NewStore(api, "graph", zap.NewNop()).UpsertPending(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, intro.StatusPending, stored.Status)
		assert.True(t, stored.CreatedAt.Equal(now.Add(-48*time.Hour)))
	})

	t.Run("existing pending row returned untouched", func(t *testing.T) {
		existing, err := attributevalue.MarshalMap(introItem{
			IntroID: req.ID, RequesterID: "alice", TargetID: "bob", Status: "accepted",
			CreatedAt: formatTime(now), UpdatedAt: formatTime(now),
		})
		require.NoError(t, err)
		api := &fakeAPI{update: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Item: existing}
		}}
		stored, created, err := NewStore(api, "graph", zap.NewNop()).UpsertPending(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, intro.StatusAccepted, stored.Status)
	})
}

func TestSortKeysBoundWindow(t *testing.T) {
	start := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)

	lower, upper := formatTime(start), formatTime(end)
	assert.GreaterOrEqual(t, sortKey(start, "x"), lower, "edges at the window start are counted")
	assert.Greater(t, sortKey(end, "x"), upper, "edges at the window end are not")
	assert.Less(t, sortKey(end.Add(-time.Nanosecond), "x"), upper)
	assert.Less(t, sortKey(start.Add(time.Millisecond), "a"), sortKey(start.Add(time.Second), "a"))
	assert.True(t, parseTime(formatTime(start.Add(123*time.Nanosecond))).Equal(start.Add(123*time.Nanosecond)))
}
