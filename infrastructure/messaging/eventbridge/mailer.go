// Package eventbridge hands transactional emails to the mail pipeline by
// publishing them as EventBridge events. A rule on the bus routes each
// campaign (the detail type) to the delivery worker.
package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultSource is the event source stamped on every email event
const DefaultSource = "vctalenthub.graph"

// PutEventsLimit is the maximum number of entries per PutEvents call
const PutEventsLimit = 10

// ErrUnavailable is returned while the breaker is open
var ErrUnavailable = errors.New("mail pipeline temporarily unavailable")

// PutEventsAPI is the subset of the EventBridge client the mailer uses
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// BreakerConfig tunes the circuit breaker around PutEvents
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of a small sample fails
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      2,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Mailer implements ports.Mailer on EventBridge
type Mailer struct {
	client  PutEventsAPI
	busName string
	source  string
	breaker *gobreaker.CircuitBreaker
	clock   func() time.Time
	logger  *zap.Logger
}

var _ ports.Mailer = (*Mailer)(nil)

type emailDetail struct {
	Campaign    string            `json:"campaign"`
	RecipientID string            `json:"recipientId"`
	To          string            `json:"to"`
	Data        map[string]string `json:"data,omitempty"`
}

// NewMailer creates a mailer publishing to busName
func NewMailer(client PutEventsAPI, busName, source string, cfg BreakerConfig, logger *zap.Logger) *Mailer {
	if source == "" {
		source = DefaultSource
	}
	m := &Mailer{
		client:  client,
		busName: busName,
		source:  source,
		clock:   time.Now,
		logger:  logger,
	}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eventbridge-mailer",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return m
}

// Send publishes the messages in batches of PutEventsLimit
func (m *Mailer) Send(ctx context.Context, messages ...ports.Email) error {
	for i := 0; i < len(messages); i += PutEventsLimit {
		end := i + PutEventsLimit
		if end > len(messages) {
			end = len(messages)
		}
		if err := m.sendBatch(ctx, messages[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mailer) sendBatch(ctx context.Context, batch []ports.Email) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	now := m.clock()
	for _, msg := range batch {
		detail, err := json.Marshal(emailDetail{
			Campaign:    msg.Campaign,
			RecipientID: msg.RecipientID,
			To:          msg.To,
			Data:        msg.Data,
		})
		if err != nil {
			return fmt.Errorf("marshal email %s: %w", msg.Campaign, err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(m.busName),
			Source:       aws.String(m.source),
			DetailType:   aws.String(msg.Campaign),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(now),
		})
	}

	_, err := m.breaker.Execute(func() (interface{}, error) {
		out, err := m.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
		if err != nil {
			return nil, fmt.Errorf("put events: %w", err)
		}
		if out.FailedEntryCount > 0 {
			for i, entry := range out.Entries {
				if entry.ErrorCode != nil {
					m.logger.Error("Email event rejected",
						zap.String("campaign", batch[i].Campaign),
						zap.String("recipient_id", batch[i].RecipientID),
						zap.String("error_code", aws.ToString(entry.ErrorCode)),
						zap.String("error_message", aws.ToString(entry.ErrorMessage)))
				}
			}
			return nil, fmt.Errorf("%d email events failed to publish", out.FailedEntryCount)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	m.logger.Debug("Email events published",
		zap.Int("count", len(entries)),
		zap.String("event_bus", m.busName))
	return nil
}
