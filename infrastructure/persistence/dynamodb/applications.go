package dynamodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CountApplications implements ports.ApplicationCounter. The job board keeps
// the counter item up to date; a missing item means no applications.
func (s *Store) CountApplications(ctx context.Context, actorID string) (int, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  itemKey(actorPK(actorID), skAppCount),
		ProjectionExpression: aws.String("#count"),
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("get application count: %w", err)
	}

	v, ok := out.Item["Count"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("parse application count: %w", err)
	}
	return n, nil
}

// SetApplicationCount overwrites the counter; used by fixtures and backfills
func (s *Store) SetApplicationCount(ctx context.Context, actorID string, n int) error {
	item := itemKey(actorPK(actorID), skAppCount)
	item["Count"] = &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put application count: %w", err)
	}
	return nil
}
