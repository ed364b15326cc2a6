package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"
)

// Positions inside the CreatePending transaction
const (
	txPairGuard = 0
	txEdge      = 1
	txQuota     = 2
)

// counterTTL keeps quota counters around a little past their window
const counterTTL = 24 * time.Hour

type edgeItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	EdgeID      string `dynamodbav:"EdgeID"`
	FromActorID string `dynamodbav:"FromActorID"`
	ToActorID   string `dynamodbav:"ToActorID"`
	Type        string `dynamodbav:"Type"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	GSI2PK      string `dynamodbav:"GSI2PK"`
	GSI2SK      string `dynamodbav:"GSI2SK"`
}

type pairItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	EdgeID string `dynamodbav:"EdgeID"`
}

func newEdgeItem(e *connection.Edge) edgeItem {
	return edgeItem{
		PK:          edgePK(e.ID),
		SK:          skEdge,
		EntityType:  "edge",
		EdgeID:      e.ID,
		FromActorID: e.FromActorID,
		ToActorID:   e.ToActorID,
		Type:        string(e.Type),
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
		GSI1PK:      outgoingKey(e.FromActorID),
		GSI1SK:      sortKey(e.CreatedAt, e.ID),
		GSI2PK:      incomingKey(e.ToActorID),
		GSI2SK:      sortKey(e.CreatedAt, e.ID),
	}
}

func (i edgeItem) toDomain() *connection.Edge {
	return &connection.Edge{
		ID:          i.EdgeID,
		FromActorID: i.FromActorID,
		ToActorID:   i.ToActorID,
		Type:        connection.EdgeType(i.Type),
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
}

// CreatePending implements ports.ConnectionRepository. The pair guard, the
// edge and the quota counter are written in one transaction; the guard and
// counter conditions decide whether it commits.
func (s *Store) CreatePending(ctx context.Context, e *connection.Edge, reservation *ports.QuotaReservation) error {
	key := e.Key()
	guard, err := attributevalue.MarshalMap(pairItem{PK: pairPK(key.Low, key.High), SK: skPair, EdgeID: e.ID})
	if err != nil {
		return fmt.Errorf("marshal pair guard: %w", err)
	}
	item, err := attributevalue.MarshalMap(newEdgeItem(e))
	if err != nil {
		return fmt.Errorf("marshal edge: %w", err)
	}

	notExists, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                aws.String(s.tableName),
			Item:                     guard,
			ConditionExpression:      notExists.Condition(),
			ExpressionAttributeNames: notExists.Names(),
		}},
		{Put: &types.Put{
			TableName:                aws.String(s.tableName),
			Item:                     item,
			ConditionExpression:      notExists.Condition(),
			ExpressionAttributeNames: notExists.Names(),
		}},
	}

	if reservation != nil {
		update, err := quotaIncrement(reservation)
		if err != nil {
			return err
		}
		update.TableName = aws.String(s.tableName)
		items = append(items, types.TransactWriteItem{Update: update})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}

	switch {
	case cancellationCode(err, txPairGuard) == codeConditionalCheckFailed:
		return ports.ErrPairExists
	case reservation != nil && cancellationCode(err, txQuota) == codeConditionalCheckFailed:
		return ports.ErrQuotaExhausted
	}
	return fmt.Errorf("create pending edge: %w", err)
}

// quotaIncrement bumps the window counter only while it is below the limit
func quotaIncrement(r *ports.QuotaReservation) (*types.Update, error) {
	count := expression.Name("Count")
	update := expression.
		Set(count, expression.Plus(expression.IfNotExists(count, expression.Value(0)), expression.Value(1))).
		Set(expression.Name("ActorID"), expression.Value(r.ActorID)).
		Set(expression.Name("WindowEnd"), expression.Value(formatTime(r.WindowEnd))).
		Set(expression.Name("TTL"), expression.Value(r.WindowEnd.Add(counterTTL).Unix()))
	cond := expression.Or(
		count.AttributeNotExists(),
		count.LessThan(expression.Value(r.Limit)),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build quota update: %w", err)
	}
	return &types.Update{
		Key:                       itemKey(quotaPK(r.ActorID, r.WindowStart), skCounter),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// GetEdge implements ports.ConnectionRepository
func (s *Store) GetEdge(ctx context.Context, id string) (*connection.Edge, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(edgePK(id), skEdge),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrNotFound
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal edge: %w", err)
	}
	return item.toDomain(), nil
}

// FindBetween implements ports.ConnectionRepository
func (s *Store) FindBetween(ctx context.Context, a, b string) (*connection.Edge, error) {
	key := connection.NewPairKey(a, b)
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(pairPK(key.Low, key.High), skPair),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get pair guard: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrNotFound
	}

	var guard pairItem
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, fmt.Errorf("unmarshal pair guard: %w", err)
	}
	return s.GetEdge(ctx, guard.EdgeID)
}

// UpdateType implements ports.ConnectionRepository
func (s *Store) UpdateType(ctx context.Context, id string, from, to connection.EdgeType, at time.Time) error {
	typ := expression.Name("Type")
	expr, err := expression.NewBuilder().
		WithUpdate(expression.
			Set(typ, expression.Value(string(to))).
			Set(expression.Name("UpdatedAt"), expression.Value(formatTime(at)))).
		WithCondition(expression.Name("PK").AttributeExists().And(typ.Equal(expression.Value(string(from))))).
		Build()
	if err != nil {
		return fmt.Errorf("build edge update: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(edgePK(id), skEdge),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ports.ErrStaleState
		}
		return fmt.Errorf("update edge: %w", err)
	}
	return nil
}

// ListConnected implements ports.ConnectionRepository
func (s *Store) ListConnected(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	var outgoing, incoming []*connection.Edge

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		outgoing, err = s.queryEdges(gctx, s.gsi1, "GSI1PK", outgoingKey(actorID), connection.TypeConnected)
		return err
	})
	g.Go(func() error {
		var err error
		incoming, err = s.queryEdges(gctx, s.gsi2, "GSI2PK", incomingKey(actorID), connection.TypeConnected)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	edges := append(outgoing, incoming...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	return edges, nil
}

// ListIncomingPending implements ports.ConnectionRepository
func (s *Store) ListIncomingPending(ctx context.Context, actorID string) ([]*connection.Edge, error) {
	return s.queryEdges(ctx, s.gsi2, "GSI2PK", incomingKey(actorID), connection.TypePending)
}

func (s *Store) queryEdges(ctx context.Context, index, partitionAttr, partition string, typ connection.EdgeType) ([]*connection.Edge, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(partitionAttr).Equal(expression.Value(partition))).
		WithFilter(expression.Name("Type").Equal(expression.Value(string(typ)))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build edge query: %w", err)
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var edges []*connection.Edge
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query edges: %w", err)
		}
		for _, raw := range page.Items {
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshal edge: %w", err)
			}
			edges = append(edges, item.toDomain())
		}
	}
	return edges, nil
}

// CountCreated implements ports.ConnectionRepository. Sort keys are
// "<time>#<id>", so BETWEEN start and end excludes edges created at end.
func (s *Store) CountCreated(ctx context.Context, actorID string, start, end time.Time) (int, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(outgoingKey(actorID))).
			And(expression.Key("GSI1SK").Between(expression.Value(formatTime(start)), expression.Value(formatTime(end))))).
		Build()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})

	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count edges: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}
