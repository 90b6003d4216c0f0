package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rachelandtim/wedding-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus stands in when no NATS server is configured. Publishes are
// dropped after a debug log entry.
type NoopEventBus struct{}

func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event bus disabled, dropping event", "subject", subject)
	return nil
}

func (n *NoopEventBus) Subscribe(string, func(msg *Message)) error { return nil }

func (n *NoopEventBus) Close() error { return nil }

// Event subjects
const (
	RSVPCreated           = "rsvp.created"
	RSVPUpdated           = "rsvp.updated"
	GuestbookEntryCreated = "guestbook.entry.created"
	ModifyTokenIssued     = "rsvp.modify_token.issued"
)

// Event payloads
type RSVPCreatedEvent struct {
	RSVPID         int64     `json:"rsvp_id"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	Attending      bool      `json:"attending"`
	NumberOfGuests int       `json:"number_of_guests"`
	CreatedAt      time.Time `json:"created_at"`
}

type RSVPUpdatedEvent struct {
	RSVPID     int64     `json:"rsvp_id"`
	GuestEmail string    `json:"guest_email"`
	Changes    []string  `json:"changes"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type GuestbookEntryCreatedEvent struct {
	EntryID   int64     `json:"entry_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ModifyTokenIssuedEvent struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}
