package ports

import (
	"context"
	"time"
)

// Email is a templated message for the email collaborator
type Email struct {
	Campaign    string            `json:"campaign"`
	RecipientID string            `json:"recipientId"`
	To          string            `json:"to"`
	Data        map[string]string `json:"data,omitempty"`
}

// Mailer hands messages to the outbound email collaborator
type Mailer interface {
	Send(ctx context.Context, messages ...Email) error
}

// Metrics records ledger outcomes
type Metrics interface {
	RecordConnectionRequest(outcome string)
	RecordConnectionResponse(decision string)
	RecordIntroRequest(outcome string)
	RecordIntroResponse(decision string)
	RecordQuotaRejection(counter string)
	RecordStoreLatency(operation string, d time.Duration)
}

// Clock returns the current instant
type Clock func() time.Time
