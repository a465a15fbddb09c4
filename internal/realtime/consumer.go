package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/metrics"
)

// Invalidator drops cached resources.
type Invalidator interface {
	Invalidate(ctx context.Context, resources ...string) error
}

// Bindings are the routing patterns the consumer listens to.
var Bindings = []string{"events.*", "meetups.*", "bookings.*"}

const maxBackoff = 30 * time.Second

// Consumer turns row changes into cache invalidations.  Each API instance
// runs one with its own queue name so every instance sees every change.
type Consumer struct {
	url    string
	queue  string
	inv    Invalidator
	logger echo.Logger
}

func NewConsumer(url, queue string, inv Invalidator, logger echo.Logger) *Consumer {
	if queue == "" {
		queue = "evanto.cache-invalidation"
	}
	return &Consumer{url: url, queue: queue, inv: inv, logger: logger}
}

// Run consumes until ctx is cancelled, redialling with exponential backoff
// whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warnf("change-consumer: dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnf("change-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warnf("change-consumer: set QoS: %v", err)
	}
	if err := declareExchange(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range Bindings {
		if err := ch.QueueBind(c.queue, key, Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.Infof("change-consumer: listening on %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.Errorf("change-consumer: handle message: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ch Change
	if err := json.Unmarshal(body, &ch); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := ch.validate(); err != nil {
		return err
	}
	metrics.TrackChange(ch.Table, ch.Op)
	return c.inv.Invalidate(ctx, ResourcesFor(ch.Table)...)
}

// ResourcesFor lists the cached resources a change to table makes stale.
func ResourcesFor(table string) []string {
	out := []string{cache.ResourceForTable(table), cache.UnifiedItems}
	switch table {
	case "events", "meetups":
		out = append(out, cache.UnifiedItem)
	case "bookings":
		out = append(out, cache.SeatAvailability)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
