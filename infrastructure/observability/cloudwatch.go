package observability

import (
	"context"
	"sync"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// maxDatumsPerCall keeps each PutMetricData request well under the API limits
const maxDatumsPerCall = 20

// PutMetricDataAPI is the subset of the CloudWatch client the recorder uses
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder implements ports.Metrics by buffering datums and
// shipping them to CloudWatch in the background. Record calls never block on
// the network.
type CloudWatchRecorder struct {
	client    PutMetricDataAPI
	namespace string
	interval  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending []types.MetricDatum

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var _ ports.Metrics = (*CloudWatchRecorder)(nil)

// NewCloudWatchRecorder creates a recorder; call Start to begin flushing
func NewCloudWatchRecorder(client PutMetricDataAPI, namespace string, interval time.Duration, logger *zap.Logger) *CloudWatchRecorder {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start flushes buffered datums every interval until Close
func (c *CloudWatchRecorder) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Flush(context.Background())
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the flush loop and ships whatever is still buffered
func (c *CloudWatchRecorder) Close(ctx context.Context) {
	c.once.Do(func() {
		close(c.stop)
		select {
		case <-c.done:
		case <-ctx.Done():
		}
		c.Flush(ctx)
	})
}

// Flush sends all buffered datums
func (c *CloudWatchRecorder) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for i := 0; i < len(batch); i += maxDatumsPerCall {
		end := i + maxDatumsPerCall
		if end > len(batch) {
			end = len(batch)
		}
		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: batch[i:end],
		})
		if err != nil {
			c.logger.Warn("Failed to send metrics", zap.Error(err), zap.Int("datums", end-i))
		}
	}
}

func (c *CloudWatchRecorder) add(name, dimension, value string, v float64, unit types.StandardUnit) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: []types.Dimension{{Name: aws.String(dimension), Value: aws.String(value)}},
		Value:      aws.Float64(v),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	c.mu.Lock()
	c.pending = append(c.pending, datum)
	c.mu.Unlock()
}

func (c *CloudWatchRecorder) RecordConnectionRequest(outcome string) {
	c.add("ConnectionRequests", "Outcome", outcome, 1, types.StandardUnitCount)
}

func (c *CloudWatchRecorder) RecordConnectionResponse(decision string) {
	c.add("ConnectionResponses", "Decision", decision, 1, types.StandardUnitCount)
}

func (c *CloudWatchRecorder) RecordIntroRequest(outcome string) {
	c.add("IntroRequests", "Outcome", outcome, 1, types.StandardUnitCount)
}

func (c *CloudWatchRecorder) RecordIntroResponse(decision string) {
	c.add("IntroResponses", "Decision", decision, 1, types.StandardUnitCount)
}

func (c *CloudWatchRecorder) RecordQuotaRejection(counter string) {
	c.add("QuotaRejections", "Counter", counter, 1, types.StandardUnitCount)
}

func (c *CloudWatchRecorder) RecordStoreLatency(operation string, d time.Duration) {
	c.add("StoreLatency", "Operation", operation, float64(d.Milliseconds()), types.StandardUnitMilliseconds)
}
