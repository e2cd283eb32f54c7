// Package notify publishes build events to NATS so external consumers
// (deploy hooks, dashboards) can react to finished cycles. Publishing is
// fire-and-forget; a failed notification never fails the build.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// BuildEvent is the JSON payload published for every finished build cycle.
type BuildEvent struct {
	BuildID    string    `json:"build_id"`
	Site       string    `json:"site,omitempty"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Pages      int       `json:"pages"`
	Assets     int       `json:"assets"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// EventFromResult maps a finished cycle onto its wire form.
func EventFromResult(r *site.BuildResult, siteTitle string) BuildEvent {
	return BuildEvent{
		BuildID:    r.ID.String(),
		Site:       siteTitle,
		Trigger:    r.Trigger,
		Outcome:    r.Outcome,
		StartedAt:  r.Start,
		DurationMS: r.Duration.Milliseconds(),
		Pages:      r.Pages,
		Assets:     r.Assets,
		Warnings:   r.Warnings,
		Error:      r.ErrText(),
	}
}

// Publisher sends build events to one NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to the NATS server at url. Connection failures are
// returned to the caller; watch mode treats them as configuration errors.
func NewPublisher(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("sitegen"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", logfields.Addr(url), logfields.Subject(subject))
	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Publish sends one build event.
func (p *Publisher) Publish(event BuildEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	p.logger.Debug("published build event",
		logfields.Subject(p.subject),
		logfields.BuildID(event.BuildID),
		logfields.Outcome(event.Outcome))
	return nil
}

// Close flushes pending messages and drops the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Flush()
	p.conn.Close()
}
