// Package logmailer is the development mailer: it logs every email instead
// of delivering it.
package logmailer

import (
	"context"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"go.uber.org/zap"
)

// Mailer implements ports.Mailer by logging
type Mailer struct {
	logger *zap.Logger
}

var _ ports.Mailer = (*Mailer)(nil)

func NewMailer(logger *zap.Logger) *Mailer {
	return &Mailer{logger: logger.Named("mailer")}
}

func (m *Mailer) Send(ctx context.Context, messages ...ports.Email) error {
	for _, msg := range messages {
		m.logger.Info("Email queued",
			zap.String("campaign", msg.Campaign),
			zap.String("recipient_id", msg.RecipientID),
			zap.String("to", msg.To),
			zap.Any("data", msg.Data))
	}
	return nil
}
