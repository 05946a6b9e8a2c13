package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"lambda-functions/internal/domain"
)

type fakeDynamo struct {
	putErr       error
	lastPutInput *dynamodb.PutItemInput
	puts         int
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	f.puts++
	return &dynamodb.PutItemOutput{}, f.putErr
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "ProcessedData")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "ProcessedData")
	require.ErrorContains(t, err, "api must not be nil")

	_, err = New(&fakeDynamo{}, "  ")
	require.ErrorContains(t, err, "table name must not be empty")
}

func TestNewProcessedItem_IDAndTimestamp(t *testing.T) {
	item := NewProcessedItem("bucket_data.csv_1", map[string]string{"a": "1"}, fixedNow)
	require.Equal(t, "bucket_data.csv_1_20260314150926", item.ID)
	require.Equal(t, "2026-03-14T15:09:26Z", item.Timestamp)
	require.Equal(t, map[string]string{"a": "1"}, item.Data)
}

func TestStore_CSVRow(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	id, err := c.Store(context.Background(), map[string]string{"name": "alice", "age": "30"}, "bucket_people.csv_1")
	require.NoError(t, err)
	require.Equal(t, "bucket_people.csv_1_20260314150926", id)

	in := db.lastPutInput
	require.Equal(t, "ProcessedData", *in.TableName)
	require.Equal(t, id, in.Item["id"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2026-03-14T15:09:26Z", in.Item["timestamp"].(*types.AttributeValueMemberS).Value)

	data := in.Item["data"].(*types.AttributeValueMemberM).Value
	require.Equal(t, "alice", data["name"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "30", data["age"].(*types.AttributeValueMemberS).Value)
}

func TestStore_JSONValueKeepsShape(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	data := map[string]any{"count": 3.0, "tags": []any{"x", "y"}, "ok": true}
	_, err := c.Store(context.Background(), data, "bucket_items.json")
	require.NoError(t, err)

	m := db.lastPutInput.Item["data"].(*types.AttributeValueMemberM).Value
	require.Equal(t, "3", m["count"].(*types.AttributeValueMemberN).Value)
	require.Len(t, m["tags"].(*types.AttributeValueMemberL).Value, 2)
	require.True(t, m["ok"].(*types.AttributeValueMemberBOOL).Value)
}

func TestStore_JSONNumberExact(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	data := map[string]any{
		"order_id": json.Number("12345678901234567890"),
		"n":        json.Number("9007199254740993"),
	}
	_, err := c.Store(context.Background(), data, "bucket_orders.json")
	require.NoError(t, err)

	m := db.lastPutInput.Item["data"].(*types.AttributeValueMemberM).Value
	require.Equal(t, "12345678901234567890", m["order_id"].(*types.AttributeValueMemberN).Value)
	require.Equal(t, "9007199254740993", m["n"].(*types.AttributeValueMemberN).Value)
}

func TestStore_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewClient(t, db)

	_, err := c.Store(context.Background(), map[string]string{"a": "b"}, "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutItem")
	require.Contains(t, err.Error(), "ProvisionedThroughputExceededException")
}

func TestPutItem_RequiresID(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.PutItem(context.Background(), domain.ProcessedItem{})
	require.ErrorContains(t, err, "id is required")
	require.Zero(t, db.puts)
}
