// Package metrics records reconciliation and order-lifecycle counters in CloudWatch.
package metrics

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

// Metric names
const (
	ReconcileOutcome  = "ReconcileOutcome"
	InventoryFailures = "InventoryDecrementFailures"
	StatusTransitions = "OrderStatusTransitions"
)

// Recorder counts named events with a small set of dimensions.
type Recorder interface {
	Count(ctx context.Context, name string, dims map[string]string) error
}

// CloudWatch puts one Count datapoint per call.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	now       func() time.Time
}

func NewCloudWatch(client aws.CloudWatchAPI, namespace string) *CloudWatch {
	return &CloudWatch{client: client, namespace: namespace, now: time.Now}
}

func (c *CloudWatch) Count(ctx context.Context, name string, dims map[string]string) error {
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
		Timestamp:  sdkaws.Time(c.now().UTC()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}

// Noop drops every datapoint.
type Noop struct{}

func (Noop) Count(context.Context, string, map[string]string) error { return nil }
