// Package dynamodb stores the relationship graph in a single DynamoDB table.
//
// Item layout (PK / SK):
//
//	ACTOR#<id>                   PROFILE    directory entry
//	ACTOR#<id>                   APPCOUNT   lifetime job application count
//	EDGE#<id>                    EDGE       connection edge, GSI1 OUT#<from>, GSI2 IN#<to>
//	PAIR#<low>#<high>            PAIR       uniqueness guard for an unordered pair
//	QUOTA#<actor>#<windowStart>  COUNTER    edges created inside one quota window
//	INTRO#<id>                   INTRO      introduction request, GSI2 INTROS_TO#<target>
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	defaultGSI1 = "GSI1"
	defaultGSI2 = "GSI2"

	skProfile  = "PROFILE"
	skAppCount = "APPCOUNT"
	skEdge     = "EDGE"
	skPair     = "PAIR"
	skCounter  = "COUNTER"
	skIntro    = "INTRO"

	// sortableTime is fixed width so GSI sort keys order chronologically
	sortableTime = "2006-01-02T15:04:05.000000000Z"

	codeConditionalCheckFailed = "ConditionalCheckFailed"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Store implements ports.Store on DynamoDB
type Store struct {
	client    API
	tableName string
	gsi1      string
	gsi2      string
	logger    *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// Option customises a Store
type Option func(*Store)

// WithIndexNames overrides the GSI names for tables provisioned elsewhere
func WithIndexNames(gsi1, gsi2 string) Option {
	return func(s *Store) {
		if gsi1 != "" {
			s.gsi1 = gsi1
		}
		if gsi2 != "" {
			s.gsi2 = gsi2
		}
	}
}

// NewStore creates a store bound to one table
func NewStore(client API, tableName string, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{client: client, tableName: tableName, gsi1: defaultGSI1, gsi2: defaultGSI2, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTable creates the table and its indexes when missing. Used against
// DynamoDB Local; deployed tables are owned by infrastructure code.
func (s *Store) EnsureTable(ctx context.Context) error {
	str := types.ScalarAttributeTypeS
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: str},
			{AttributeName: aws.String("SK"), AttributeType: str},
			{AttributeName: aws.String("GSI1PK"), AttributeType: str},
			{AttributeName: aws.String("GSI1SK"), AttributeType: str},
			{AttributeName: aws.String("GSI2PK"), AttributeType: str},
			{AttributeName: aws.String("GSI2SK"), AttributeType: str},
		},
		KeySchema: keySchema("PK", "SK"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName:  aws.String(s.gsi1),
				KeySchema:  keySchema("GSI1PK", "GSI1SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName:  aws.String(s.gsi2),
				KeySchema:  keySchema("GSI2PK", "GSI2SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", s.tableName, err)
	}
	s.logger.Info("Created DynamoDB table", zap.String("table", s.tableName))
	return nil
}

func keySchema(hash, rangeKey string) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String(rangeKey), KeyType: types.KeyTypeRange},
	}
}

// Ping checks that the table is reachable
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	return err
}

// Close is a no-op; the SDK client has no resources to release
func (s *Store) Close() error { return nil }

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func actorPK(id string) string { return "ACTOR#" + id }
func edgePK(id string) string { return "EDGE#" + id }
func introPK(id string) string { return "INTRO#" + id }
func outgoingKey(id string) string { return "OUT#" + id }
func incomingKey(id string) string { return "IN#" + id }
func introsToKey(id string) string { return "INTROS_TO#" + id }

func pairPK(low, high string) string { return "PAIR#" + low + "#" + high }

func quotaPK(actorID string, windowStart time.Time) string {
	return fmt.Sprintf("QUOTA#%s#%d", actorID, windowStart.Unix())
}

func formatTime(t time.Time) string { return t.UTC().Format(sortableTime) }

func parseTime(s string) time.Time {
	t, err := time.Parse(sortableTime, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func sortKey(t time.Time, id string) string { return formatTime(t) + "#" + id }

// cancellationCode returns the reason code of one item in a cancelled transaction
func cancellationCode(err error, index int) string {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || index >= len(tce.CancellationReasons) {
		return ""
	}
	return aws.ToString(tce.CancellationReasons[index].Code)
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
