// Package notify forwards monitor feedback to an external message bus so
// repairs and purges can be observed outside the interactive session.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"redirect-mgmt-go/pkg/coord"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes every published subject.
const DefaultSubject = "redirect-mgmt.events"

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, coord.Message) error { return nil }

// Event is the wire form of a feedback message.
type Event struct {
	ID        string          `json:"id"`
	Kind      coord.Kind      `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type repairedPayload struct {
	Alias     string `json:"alias"`
	ShortURL  string `json:"short_url"`
	NewDomain string `json:"new_domain"`
	NewURL    string `json:"new_url"`
	Tier      int    `json:"tier"`
}

type deletePayload struct {
	Alias    string `json:"alias"`
	ShortURL string `json:"short_url"`
	Reason   string `json:"reason,omitempty"`
}

type reportPayload struct {
	SweepID       string            `json:"sweep_id"`
	Started       time.Time         `json:"started"`
	DurationMS    int64             `json:"duration_ms"`
	Checked       int               `json:"checked"`
	Healthy       int               `json:"healthy"`
	Errors        map[string]string `json:"errors,omitempty"`
	PreviewErrors map[string]string `json:"preview_errors,omitempty"`
	Incomplete    []string          `json:"incomplete,omitempty"`
	Repaired      []string          `json:"repaired,omitempty"`
	Purged        []string          `json:"purged,omitempty"`
}

// ErrUnsupported is returned for messages that never leave the process.
var ErrUnsupported = errors.New("message kind is not published")

// Encode turns a feedback message into an Event.
func Encode(msg coord.Message, now time.Time) (*Event, error) {
	var payload any
	switch m := msg.(type) {
	case coord.Repaired:
		payload = repairedPayload{
			Alias:     m.Alias,
			ShortURL:  m.ShortURL,
			NewDomain: m.NewDomain,
			NewURL:    m.NewURL,
			Tier:      m.Tier,
		}
	case coord.Delete:
		payload = deletePayload{Alias: m.Alias, ShortURL: m.ShortURL, Reason: m.Reason}
	case coord.Report:
		payload = reportPayload{
			SweepID:       m.SweepID,
			Started:       m.Started,
			DurationMS:    m.Duration.Milliseconds(),
			Checked:       m.Checked,
			Healthy:       m.Healthy,
			Errors:        m.Errors,
			PreviewErrors: m.PreviewErrors,
			Incomplete:    m.Incomplete,
			Repaired:      m.Repaired,
			Purged:        m.Purged,
		}
	default:
		if msg == nil {
			return nil, fmt.Errorf("%w: nil", ErrUnsupported)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, msg.Kind())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msg.Kind(), err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Kind:      msg.Kind(),
		Timestamp: now.UTC(),
		Payload:   raw,
	}, nil
}

// publisher is the part of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes feedback as JSON events on "<subject>.<kind>".
type NATS struct {
	conn    publisher
	closer  func()
	subject string
	now     func() time.Time
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*NATS, error) {
	if url == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(url, "nats://") && !strings.HasPrefix(url, "tls://") {
		return nil, errors.New("invalid NATS URL scheme")
	}

	nc, err := nats.Connect(url,
		nats.Name("redirect-mgmt"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n := newNATS(nc, subject)
	n.closer = nc.Close
	return n, nil
}

func newNATS(conn publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: conn, subject: strings.TrimSuffix(subject, "."), now: time.Now}
}

// Notify publishes msg. Control-only kinds are skipped silently.
func (n *NATS) Notify(ctx context.Context, msg coord.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev, err := Encode(msg, n.now())
	if errors.Is(err, ErrUnsupported) {
		return nil
	}
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := n.conn.Publish(n.subject+"."+string(ev.Kind), data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Kind, err)
	}
	return nil
}

// Close drops the connection.
func (n *NATS) Close() {
	if n.closer != nil {
		n.closer()
	}
}
