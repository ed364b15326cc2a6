package dynamodb

import (
	"context"
	"fmt"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchGetLimit is the BatchGetItem per-request key limit
const batchGetLimit = 100

type actorItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	actor.Actor
}

// PutActor mirrors a directory entry from the identity service
func (s *Store) PutActor(ctx context.Context, a *actor.Actor) error {
	item := actorItem{PK: actorPK(a.ID), SK: skProfile, EntityType: "actor", Actor: *a}
	if item.Status == "" {
		item.Status = actor.StatusActive
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put actor: %w", err)
	}
	return nil
}

// GetActor implements ports.ActorDirectory
func (s *Store) GetActor(ctx context.Context, id string) (*actor.Actor, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(actorPK(id), skProfile),
	})
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrNotFound
	}

	var item actorItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal actor: %w", err)
	}
	return &item.Actor, nil
}

// GetActors implements ports.ActorDirectory
func (s *Store) GetActors(ctx context.Context, ids []string) (map[string]*actor.Actor, error) {
	result := make(map[string]*actor.Actor, len(ids))

	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, itemKey(actorPK(id), skProfile))
	}

	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}

		request := map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys[start:end]},
		}
		for len(request) > 0 {
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("batch get actors: %w", err)
			}
			for _, raw := range out.Responses[s.tableName] {
				var item actorItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, fmt.Errorf("unmarshal actor: %w", err)
				}
				a := item.Actor
				result[a.ID] = &a
			}
			request = out.UnprocessedKeys
		}
	}
	return result, nil
}
