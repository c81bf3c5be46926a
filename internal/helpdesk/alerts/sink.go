// Package alerts delivers critical proactive suggestions outside the chat widget.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/models"
)

const (
	maxListed  = 10
	subjectMax = 100
)

// Publisher posts a message to a topic.
type Publisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string) (string, error)
}

// Mailer sends plain-text email.
type Mailer interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

type Config struct {
	TopicARN string
	From     string
	To       []string
}

// Sink implements the rule engine's alert hook over SNS and SES. Either channel may be
// unset; a Sink with neither is a no-op.
type Sink struct {
	config    Config
	publisher Publisher
	mailer    Mailer
	logger    logger.Logger
}

func NewSink(config Config, publisher Publisher, mailer Mailer, log logger.Logger) *Sink {
	return &Sink{
		config:    config,
		publisher: publisher,
		mailer:    mailer,
		logger:    log.WithFields(map[string]interface{}{"component": "alerts"}),
	}
}

// Notify sends the critical suggestions. Non-critical ones are ignored.
func (s *Sink) Notify(ctx context.Context, suggestions []models.Suggestion) error {
	critical := make([]models.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Priority == models.PriorityCritical {
			critical = append(critical, sg)
		}
	}
	if len(critical) == 0 {
		return nil
	}

	subject, body := Format(critical)
	var errs []error

	if s.publisher != nil && s.config.TopicARN != "" {
		id, err := s.publisher.PublishToTopic(ctx, s.config.TopicARN, subject, body)
		if err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info("critical alert published", map[string]interface{}{
				"messageId": id,
				"count":     len(critical),
			})
		}
	}

	if s.mailer != nil && s.config.From != "" && len(s.config.To) > 0 {
		id, err := s.mailer.SendText(ctx, s.config.From, s.config.To, subject, body)
		if err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info("critical alert emailed", map[string]interface{}{
				"messageId":  id,
				"recipients": len(s.config.To),
			})
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	return nil
}

// Format renders suggestions as a subject line and a short text body.
func Format(suggestions []models.Suggestion) (string, string) {
	subject := fmt.Sprintf("[ERP Help Desk] %d critical alert", len(suggestions))
	if len(suggestions) != 1 {
		subject += "s"
	}
	if len(suggestions) > 0 && suggestions[0].RuleName != "" {
		subject += ": " + suggestions[0].RuleName
	}
	subject = models.Truncate(subject, subjectMax)

	var b strings.Builder
	for i, sg := range suggestions {
		if i == maxListed {
			fmt.Fprintf(&b, "... and %d more\n", len(suggestions)-maxListed)
			break
		}
		b.WriteString("- ")
		b.WriteString(sg.Message)
		if sg.Link != nil {
			fmt.Fprintf(&b, " (%s %s)", sg.Link.Doctype, sg.Link.Docname)
		}
		b.WriteByte('\n')
	}
	return subject, b.String()
}
