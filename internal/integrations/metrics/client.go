// Package metrics reads CloudWatch metric statistics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"lambda-functions/internal/domain"
)

const (
	ec2Namespace    = "AWS/EC2"
	cpuMetric       = "CPUUtilization"
	instanceDim     = "InstanceId"
	DefaultPeriod   = 5 * time.Minute
	DefaultLookback = time.Hour
)

// cloudwatchAPI is the minimal CloudWatch interface required by Client.
type cloudwatchAPI interface {
	GetMetricStatistics(ctx context.Context, in *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// Client wraps CloudWatch metric reads.
type Client struct {
	api      cloudwatchAPI
	period   time.Duration
	lookback time.Duration
	now      func() time.Time
}

// New creates a Client that averages over five-minute periods for the past hour.
func New(api cloudwatchAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("metrics: api must not be nil")
	}
	return &Client{
		api:      api,
		period:   DefaultPeriod,
		lookback: DefaultLookback,
		now:      time.Now,
	}, nil
}

// InstanceCPU returns the average EC2 CPU utilization datapoints of one
// instance over the lookback window, oldest first.
func (c *Client) InstanceCPU(ctx context.Context, instanceID string) ([]domain.Datapoint, error) {
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return nil, errors.New("metrics: instance id is required")
	}

	end := c.now().UTC()
	out, err := c.api.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(ec2Namespace),
		MetricName: aws.String(cpuMetric),
		Dimensions: []types.Dimension{
			{Name: aws.String(instanceDim), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(end.Add(-c.lookback)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32(c.period / time.Second)),
		Statistics: []types.Statistic{types.StatisticAverage},
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: GetMetricStatistics %s: %w", instanceID, err)
	}

	points := make([]domain.Datapoint, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		points = append(points, domain.Datapoint{
			Timestamp: aws.ToTime(dp.Timestamp),
			Average:   aws.ToFloat64(dp.Average),
		})
	}
	// CloudWatch returns datapoints in no particular order.
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}
