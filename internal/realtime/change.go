// Package realtime carries row-change notifications over RabbitMQ.  Writers
// publish a Change after every successful mutation; every API instance
// consumes them and drops the cached resources the row belongs to.
package realtime

import (
	"fmt"
	"strings"
	"time"
)

// Row operations.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Exchange is the topic exchange changes are published to.  Routing keys
// are <table>.<op>, e.g. "bookings.insert".
const Exchange = "row.changes"

// Change describes one row-level write.  Consumers never apply it; it only
// signals that cached reads of Table are stale.
type Change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

func (c Change) RoutingKey() string {
	return c.Table + "." + strings.ToLower(c.Op)
}

func (c Change) validate() error {
	if c.Table == "" {
		return fmt.Errorf("change: missing table")
	}
	switch c.Op {
	case OpInsert, OpUpdate, OpDelete:
		return nil
	}
	return fmt.Errorf("change: unknown op %q", c.Op)
}
