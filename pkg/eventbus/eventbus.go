package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"go.uber.org/zap"
)

// Event is the envelope published for every lifecycle change
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an Event with a fresh id
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Publisher sends events to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Config holds the NATS connection settings
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
}

// Bus publishes events to NATS core subjects
type Bus struct {
	conn   *nats.Conn
	prefix string
}

// New connects to NATS. Reconnects are unlimited so a restarting broker
// does not take the service down.
func New(cfg Config) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &Bus{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

// Subject joins the configured prefix and name
func (b *Bus) Subject(name string) string {
	return Subject(b.prefix, name)
}

// Subject joins a prefix and a name with a dot
func Subject(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Publish sends event on the prefixed subject. The event id doubles as the
// NATS message id so JetStream consumers can deduplicate.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: b.Subject(subject),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Event-Type", event.Type)
	msg.Header.Set(nats.MsgIdHdr, event.ID)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		logger.Warn("nats drain failed", zap.Error(err))
		b.conn.Close()
	}
}

// NoopPublisher drops every event. Used when NATS is disabled.
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(ctx context.Context, subject string, event *Event) error {
	return nil
}
