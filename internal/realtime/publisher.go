package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout   = 2 * time.Second
	redialBackoff = 10 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a failed connection
// attempt is still inside its backoff window.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// Publisher sends Changes to the row.changes exchange over a lazily opened
// channel.  A broken channel is dropped and reopened on the next publish.
// A nil *Publisher discards everything, which is how the API runs without
// a broker.  Dials are bounded by dialTimeout and a failed dial is not
// retried until redialBackoff has passed, so writes never wait on a broker
// that is down.
type Publisher struct {
	url    string
	logger echo.Logger
	now    func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

func NewPublisher(url string, logger echo.Logger) *Publisher {
	return &Publisher{url: url, logger: logger, now: time.Now}
}

// Publish marks the message persistent and stamps At when it is unset.
// Errors are logged and returned so callers may ignore them.
func (p *Publisher) Publish(ctx context.Context, c Change) error {
	if p == nil {
		return nil
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	if err := c.validate(); err != nil {
		return err
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		if !errors.Is(err, ErrBrokerUnavailable) {
			p.logger.Warnf("rabbitmq: %v", err)
		}
		return err
	}
	err = ch.PublishWithContext(ctx, Exchange, c.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    c.At,
		Body:         body,
	})
	if err != nil {
		p.logger.Warnf("rabbitmq: publish %s: %v", c.RoutingKey(), err)
		p.reset()
		return err
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.nextDial) {
		return nil, ErrBrokerUnavailable
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.nextDial = p.now().Add(redialBackoff)
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDial = p.now().Add(redialBackoff)
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.nextDial = p.now().Add(redialBackoff)
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
