package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type introItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	IntroID     string `dynamodbav:"IntroID"`
	RequesterID string `dynamodbav:"RequesterID"`
	TargetID    string `dynamodbav:"TargetID"`
	Status      string `dynamodbav:"Status"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
	GSI2PK      string `dynamodbav:"GSI2PK"`
	GSI2SK      string `dynamodbav:"GSI2SK"`
}

func (i introItem) toDomain() *intro.Request {
	return &intro.Request{
		ID:          i.IntroID,
		RequesterID: i.RequesterID,
		TargetID:    i.TargetID,
		Status:      intro.Status(i.Status),
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
}

func decodeIntro(raw map[string]types.AttributeValue) (*intro.Request, error) {
	var item introItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("unmarshal intro: %w", err)
	}
	return item.toDomain(), nil
}

// UpsertPending implements ports.IntroRepository. The id is derived from the
// ordered pair, so one conditional UpdateItem inserts, revives a rejected row,
// or fails the condition when a pending or accepted row exists.
func (s *Store) UpsertPending(ctx context.Context, req *intro.Request) (*intro.Request, bool, error) {
	status := expression.Name("Status")
	created := expression.Name("CreatedAt")
	update := expression.
		Set(expression.Name("EntityType"), expression.Value("intro")).
		Set(expression.Name("IntroID"), expression.Value(req.ID)).
		Set(expression.Name("RequesterID"), expression.Value(req.RequesterID)).
		Set(expression.Name("TargetID"), expression.Value(req.TargetID)).
		Set(status, expression.Value(string(intro.StatusPending))).
		Set(created, expression.IfNotExists(created, expression.Value(formatTime(req.CreatedAt)))).
		Set(expression.Name("UpdatedAt"), expression.Value(formatTime(req.UpdatedAt))).
		Set(expression.Name("GSI2PK"), expression.Value(introsToKey(req.TargetID))).
		Set(expression.Name("GSI2SK"), expression.Value(sortKey(req.UpdatedAt, req.ID)))
	cond := expression.Or(
		expression.Name("PK").AttributeNotExists(),
		status.Equal(expression.Value(string(intro.StatusRejected))),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, false, fmt.Errorf("build intro upsert: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.tableName),
		Key:                                 itemKey(introPK(req.ID), skIntro),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return nil, false, fmt.Errorf("upsert intro: %w", err)
		}
		if len(ccf.Item) > 0 {
			existing, err := decodeIntro(ccf.Item)
			return existing, false, err
		}
		existing, err := s.GetIntro(ctx, req.ID)
		return existing, false, err
	}

	if len(out.Attributes) == 0 {
		stored := *req
		stored.Status = intro.StatusPending
		return &stored, true, nil
	}

	// Revived: the previous image carries the original CreatedAt
	stored, err := decodeIntro(out.Attributes)
	if err != nil {
		return nil, false, err
	}
	stored.Status = intro.StatusPending
	stored.UpdatedAt = req.UpdatedAt
	s.logger.Debug("Revived rejected intro request", zap.String("intro_id", stored.ID))
	return stored, true, nil
}

// GetIntro implements ports.IntroRepository
func (s *Store) GetIntro(ctx context.Context, id string) (*intro.Request, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(introPK(id), skIntro),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get intro: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrNotFound
	}
	return decodeIntro(out.Item)
}

// TransitionIntro implements ports.IntroRepository
func (s *Store) TransitionIntro(ctx context.Context, id string, from, to intro.Status, at time.Time) error {
	status := expression.Name("Status")
	expr, err := expression.NewBuilder().
		WithUpdate(expression.
			Set(status, expression.Value(string(to))).
			Set(expression.Name("UpdatedAt"), expression.Value(formatTime(at)))).
		WithCondition(expression.Name("PK").AttributeExists().And(status.Equal(expression.Value(string(from))))).
		Build()
	if err != nil {
		return fmt.Errorf("build intro transition: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(introPK(id), skIntro),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ports.ErrStaleState
		}
		return fmt.Errorf("transition intro: %w", err)
	}
	return nil
}

// ListPendingIntros implements ports.IntroRepository, newest first
func (s *Store) ListPendingIntros(ctx context.Context, targetID string) ([]ports.PendingIntro, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI2PK").Equal(expression.Value(introsToKey(targetID)))).
		WithFilter(expression.Name("Status").Equal(expression.Value(string(intro.StatusPending)))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build intro query: %w", err)
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.gsi2),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})

	var requests []*intro.Request
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query intros: %w", err)
		}
		for _, raw := range page.Items {
			r, err := decodeIntro(raw)
			if err != nil {
				return nil, err
			}
			requests = append(requests, r)
		}
	}

	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.RequesterID)
	}
	requesters, err := s.GetActors(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ports.PendingIntro, 0, len(requests))
	for _, r := range requests {
		a, ok := requesters[r.RequesterID]
		if !ok {
			s.logger.Warn("Skipping intro from unknown requester", zap.String("intro_id", r.ID))
			continue
		}
		out = append(out, ports.PendingIntro{Request: r, Requester: a.Summarize()})
	}
	return out, nil
}
