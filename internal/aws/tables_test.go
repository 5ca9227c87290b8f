package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type tableRecorder struct {
	existing map[string]bool
	created  []string
}

func (r *tableRecorder) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if r.existing[*in.TableName] {
		return nil, &types.ResourceInUseException{}
	}
	r.created = append(r.created, *in.TableName)
	return &dynamodb.CreateTableOutput{}, nil
}

func TestEnsureTables_SkipsExisting(t *testing.T) {
	rec := &tableRecorder{existing: map[string]bool{"orders": true}}

	created, err := EnsureTables(context.Background(), rec, []TableSpec{
		{Name: "products", PartitionKey: "product_id"},
		{Name: "orders", PartitionKey: "order_id"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"products"}, created)
	require.Equal(t, []string{"products"}, rec.created)
}

func TestEnsureTables_RejectsIncompleteSpec(t *testing.T) {
	_, err := EnsureTables(context.Background(), &tableRecorder{}, []TableSpec{{Name: "users"}})
	require.Error(t, err)
}
