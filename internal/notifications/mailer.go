package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/tipflow-backend/pkg/config"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers receipt emails. The production binding is an external
// provider; LogMailer backs development and tests.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes the message to the structured log instead of sending it.
type LogMailer struct {
	cfg  config.MailerConfig
	logg *logger.Logger
}

// NewLogMailer builds a log-backed mailer.
func NewLogMailer(cfg config.MailerConfig, logg *logger.Logger) (*LogMailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogMailer{cfg: cfg, logg: logg}, nil
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"from":    m.cfg.FromEmail,
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
	})
	m.logg.Info(logCtx, "mail delivery (log sink)")
	return nil
}
