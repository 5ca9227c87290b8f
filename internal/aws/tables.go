package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableSpec names a table and its string partition key.
type TableSpec struct {
	Name         string
	PartitionKey string
}

// EnsureTables creates each table with on-demand billing. Tables that already exist are skipped.
// It returns the names of the tables it created.
func EnsureTables(ctx context.Context, client TableAPI, specs []TableSpec) ([]string, error) {
	var created []string
	for _, spec := range specs {
		if spec.Name == "" || spec.PartitionKey == "" {
			return created, fmt.Errorf("table spec incomplete: %+v", spec)
		}
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   awsString(spec.Name),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: awsString(spec.PartitionKey), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: awsString(spec.PartitionKey), KeyType: types.KeyTypeHash},
			},
		})
		if err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				continue
			}
			return created, fmt.Errorf("create table %s: %w", spec.Name, err)
		}
		created = append(created, spec.Name)
	}
	return created, nil
}
