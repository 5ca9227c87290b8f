package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

// Store reads and finalizes transaction guard records in DynamoDB.
// Guards are created by the orders store inside the order's TransactWriteItems.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// TableName is the guard table, needed by callers composing a transaction.
func (s *Store) TableName() string { return s.tableName }

// NewRecord builds the IN_PROGRESS guard for a transaction about to be written.
func (s *Store) NewRecord(transactionID, orderID, sessionID string) Record {
	now := s.nowFunc().UTC()
	return Record{
		TransactionID: transactionID,
		Status:        StatusInProgress,
		OrderID:       orderID,
		SessionID:     sessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// GuardPut returns the conditional put that fails when the transaction id already has a guard.
func (s *Store) GuardPut(rec Record) (*types.Put, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal guard record: %w", err)
	}
	return &types.Put{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(transaction_id)"),
	}, nil
}

// Get retrieves a guard record by transaction id. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, transactionID string) (*Record, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
		},
		ConsistentRead: awsBool(true),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone records that the order and its inventory decrement were both applied.
func (s *Store) MarkDone(ctx context.Context, transactionID string) error {
	return s.setStatus(ctx, transactionID, StatusDone, "")
}

// MarkFailed records that the order exists but a follow-up step did not complete.
func (s *Store) MarkFailed(ctx context.Context, transactionID, note string) error {
	return s.setStatus(ctx, transactionID, StatusFailed, note)
}

func (s *Store) setStatus(ctx context.Context, transactionID, status, note string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
		},
		UpdateExpression: awsString("SET #s = :status, note = :n, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(transaction_id)"),
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item (mark %s): %w", status, err)
	}
	return nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
