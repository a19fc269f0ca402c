package bus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"lucidify/internal/domain"
)

const DefaultOutcomeSubject = "lucidify.jobs"

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("lucidify-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

type jsonPublisher interface {
	PublishJSON(subject string, v any) error
}

// OutcomePublisher emits finished jobs on <prefix>.<phase>, for example
// lucidify.jobs.done or lucidify.jobs.failed.
type OutcomePublisher struct {
	pub    jsonPublisher
	prefix string
}

func NewOutcomePublisher(pub jsonPublisher, prefix string) *OutcomePublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultOutcomeSubject
	}
	return &OutcomePublisher{pub: pub, prefix: prefix}
}

func (p *OutcomePublisher) Subject(phase domain.Phase) string {
	return p.prefix + "." + strings.ToLower(string(phase))
}

func (p *OutcomePublisher) Report(ctx context.Context, outcome domain.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.pub.PublishJSON(p.Subject(outcome.Phase), outcome)
}
