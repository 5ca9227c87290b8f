package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-marketplace-api/internal/dynamotest"
)

func newTestStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	fake := dynamotest.New().CreateTable("transactions", "transaction_id")
	s := NewStore(fake, "transactions")
	s.nowFunc = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, fake
}

func writeGuard(t *testing.T, s *Store, fake *dynamotest.Fake, rec Record) error {
	t.Helper()
	put, err := s.GuardPut(rec)
	require.NoError(t, err)
	_, err = fake.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Put: put}},
	})
	return err
}

func TestGuardPut_Get_MarkDone_MarkFailed(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	rec := s.NewRecord("pi_1", "order-1", "cs_1")
	require.NoError(t, writeGuard(t, s, fake, rec))

	// a second guard for the same transaction must be rejected
	err := writeGuard(t, s, fake, s.NewRecord("pi_1", "order-2", "cs_1"))
	var tce *types.TransactionCanceledException
	require.ErrorAs(t, err, &tce)

	got, err := s.Get(ctx, "pi_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, StatusInProgress, got.Status)
	require.Equal(t, "order-1", got.OrderID)
	require.Equal(t, "cs_1", got.SessionID)

	require.NoError(t, s.MarkDone(ctx, "pi_1"))
	got, err = s.Get(ctx, "pi_1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)

	require.NoError(t, s.MarkFailed(ctx, "pi_1", "inventory_exhausted"))
	item := fake.Item("transactions", "pi_1")
	require.Equal(t, StatusFailed, item["status"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "inventory_exhausted", item["note"].(*types.AttributeValueMemberS).Value)
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Get(context.Background(), "pi_missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMarkDone_MissingRecord(t *testing.T) {
	s, _ := newTestStore(t)
	require.Error(t, s.MarkDone(context.Background(), "pi_missing"))
}

func TestRecordMarshal_Unmarshal(t *testing.T) {
	rec := Record{
		TransactionID: "pi_9",
		Status:        StatusInProgress,
		OrderID:       "o9",
		CreatedAt:     time.Now().Round(time.Second),
		UpdatedAt:     time.Now().Round(time.Second),
	}
	m, err := attributevalue.MarshalMap(rec)
	require.NoError(t, err)
	var out Record
	require.NoError(t, attributevalue.UnmarshalMap(m, &out))
	require.Equal(t, rec.TransactionID, out.TransactionID)
	require.Equal(t, rec.OrderID, out.OrderID)
}
