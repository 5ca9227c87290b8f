package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

var (
	// ErrDuplicateTransaction means a guard for the transaction id already exists, so another
	// order was (or is being) created for the same payment.
	ErrDuplicateTransaction = errors.New("order already exists for transaction")

	// ErrStatusMismatch is returned when a guarded transition finds the order in another status.
	ErrStatusMismatch = fmt.Errorf("status mismatch: %w", apperr.ErrValidationFailed)
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: id},
	}
}

func notFound(id string) error {
	return fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
}

// NewID returns a fresh order id. Callers need it before the write to point the guard at it.
func (s *Store) NewID() string { return s.newID() }

// CreateWithTransactionGuard atomically writes:
//   - the guard (a conditional put supplied by the idempotency store)
//   - the order record in the orders table
//
// If the guard's condition fails the whole transaction is cancelled and ErrDuplicateTransaction
// is returned; no order is written.
func (s *Store) CreateWithTransactionGuard(ctx context.Context, guard *types.Put, order Order) (*Order, error) {
	now := s.nowFunc().UTC()
	if order.OrderID == "" {
		order.OrderID = s.newID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Tracking == nil {
		order.Tracking = []TrackingEntry{}
	}

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order item: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: guard},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(order_id)"),
				},
			},
		},
	}
	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && guardRejected(tce) {
			return nil, fmt.Errorf("transaction %s: %w", order.TransactionID, ErrDuplicateTransaction)
		}
		return nil, fmt.Errorf("transact write: %w", err)
	}
	return &order, nil
}

// guardRejected reports whether the cancellation was caused by the guard (first item) condition.
func guardRejected(tce *types.TransactionCanceledException) bool {
	if len(tce.CancellationReasons) == 0 {
		// no reasons reported; the guard is the only item expected to fail
		return true
	}
	code := tce.CancellationReasons[0].Code
	return code != nil && *code == "ConditionalCheckFailed"
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

func (s *Store) scan(ctx context.Context, input *dyn.ScanInput) ([]Order, error) {
	input.TableName = &s.tableName
	items, err := aws.ScanAll(ctx, s.client, input)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	list := make([]Order, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &list); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].OrderID < list[j].OrderID
	})
	return list, nil
}

// ListAll returns every order, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	return s.scan(ctx, &dyn.ScanInput{})
}

// ListByStatus returns orders in the given status.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]Order, error) {
	return s.scan(ctx, &dyn.ScanInput{
		FilterExpression:         awsString("#s = :status"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
		},
	})
}

// ListByCustomer returns orders placed by the buyer email.
func (s *Store) ListByCustomer(ctx context.Context, email string) ([]Order, error) {
	return s.listByEmail(ctx, "customer", email)
}

// ListByManager returns orders for products owned by the manager email.
func (s *Store) ListByManager(ctx context.Context, email string) ([]Order, error) {
	return s.listByEmail(ctx, "manager", email)
}

func (s *Store) listByEmail(ctx context.Context, parent, email string) ([]Order, error) {
	return s.scan(ctx, &dyn.ScanInput{
		FilterExpression:         awsString("#p.#e = :email"),
		ExpressionAttributeNames: map[string]string{"#p": parent, "#e": "email"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	})
}

// SetStatus moves the order to newStatus regardless of its current status and stamps
// stampAttr. It returns the status the order had before.
func (s *Store) SetStatus(ctx context.Context, orderID, newStatus, stampAttr string) (string, error) {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET #s = :new, #at = :ua, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s":  "status",
			"#at": stampAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": &types.AttributeValueMemberS{Value: newStatus},
			":ua":  &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return "", notFound(orderID)
		}
		return "", fmt.Errorf("update item: %w", err)
	}
	var old struct {
		Status string `dynamodbav:"status"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &old); err != nil {
		return "", fmt.Errorf("unmarshal previous status: %w", err)
	}
	return old.Status, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus and stamps
// stampAttr. Returns ErrStatusMismatch if the order is in another status and a NotFound error
// if it does not exist.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus, stampAttr string) error {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET #s = :new, #at = :ua, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s":  "status",
			"#at": stampAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":ua":       &types.AttributeValueMemberS{Value: now},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return fmt.Errorf("update item: %w", err)
		}
		o, getErr := s.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		if o == nil {
			return notFound(orderID)
		}
		return fmt.Errorf("order %s is %s, want %s: %w", orderID, o.Status, expectedStatus, ErrStatusMismatch)
	}
	return nil
}

// AppendTracking adds entry to the end of the tracking list and returns the updated order.
func (s *Store) AppendTracking(ctx context.Context, orderID string, entry TrackingEntry) (*Order, error) {
	now := s.nowFunc().UTC()
	if entry.At.IsZero() {
		entry.At = now
	}
	av, err := attributevalue.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal tracking entry: %w", err)
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      orderKey(orderID),
		UpdateExpression:         awsString("SET #t = list_append(if_not_exists(#t, :empty), :entry), updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#t": "tracking"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":entry": &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
			":ua":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ReturnValues:        types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, notFound(orderID)
		}
		return nil, fmt.Errorf("append tracking: %w", err)
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

func awsString(s string) *string { return &s }
