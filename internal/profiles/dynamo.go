package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type profileItem struct {
	UserID        string    `dynamodbav:"userId"`
	SecretMessage *string   `dynamodbav:"secretMessage,omitempty"`
	UpdatedAt     time.Time `dynamodbav:"updatedAt"`
}

// DynamoStore keeps profiles in a DynamoDB table keyed by userId.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

// NewDynamoClient loads the default AWS configuration for region. A non-empty
// endpoint overrides the service endpoint, e.g. for DynamoDB Local.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewDynamoStore constructs a store backed by the given table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	if client == nil {
		panic("profiles: dynamodb client must not be nil")
	}
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func (s *DynamoStore) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}

// GetSecretMessage returns the user's message, or nil when no item exists.
func (s *DynamoStore) GetSecretMessage(ctx context.Context, userID string) (*string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get profile item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode profile item: %w", err)
	}
	return item.SecretMessage, nil
}

// SetSecretMessage replaces the user's profile item.
func (s *DynamoStore) SetSecretMessage(ctx context.Context, userID, message string) error {
	item, err := attributevalue.MarshalMap(profileItem{
		UserID:        userID,
		SecretMessage: &message,
		UpdatedAt:     s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode profile item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put profile item: %w", err)
	}
	return nil
}

// DeleteProfile removes the user's item. Deleting a missing item is not an error.
func (s *DynamoStore) DeleteProfile(ctx context.Context, userID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(userID),
	}); err != nil {
		return fmt.Errorf("delete profile item: %w", err)
	}
	return nil
}
