package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"lambda-functions/internal/domain"
)

// idTimeLayout is the suffix appended to every item id.
const idTimeLayout = "20060102150405"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps the processed-data DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// NewProcessedItem builds the item for data under idPrefix at the given time.
// The id is the prefix followed by a second-resolution timestamp.
func NewProcessedItem(idPrefix string, data any, now time.Time) domain.ProcessedItem {
	return domain.ProcessedItem{
		ID:        idPrefix + "_" + now.Format(idTimeLayout),
		Timestamp: now.Format(time.RFC3339Nano),
		Data:      data,
	}
}

// Store writes data under a generated id and returns that id.
func (c *Client) Store(ctx context.Context, data any, idPrefix string) (string, error) {
	item := NewProcessedItem(idPrefix, data, c.now())
	if err := c.PutItem(ctx, item); err != nil {
		return "", err
	}
	return item.ID, nil
}

// PutItem persists a fully built item, replacing any item with the same id.
func (c *Client) PutItem(ctx context.Context, item domain.ProcessedItem) error {
	if item.ID == "" {
		return errors.New("repository: PutItem: id is required")
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("repository: PutItem marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("repository: PutItem: %w", err)
	}
	return nil
}
