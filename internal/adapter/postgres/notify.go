package postgres

import (
	"context"
	"encoding/json"
	"fmt"
)

// Notification channels. Every committed persona transition and every
// memory/post insert is announced as a discrete row-level event so realtime
// subscribers (UI badges) never miss a transition.
const (
	ChannelPersonaChanges = "persona_changes"
	ChannelMemoryInserts  = "memory_inserts"
	ChannelPostInserts    = "post_inserts"
)

// Notify publishes a JSON payload on a pg_notify channel through the given
// querier. Inside a transaction the notification is delivered only on commit,
// which is exactly the observability contract: subscribers see committed
// state, never partial writes.
func Notify(ctx context.Context, q Querier, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify %s: marshal payload: %w", channel, err)
	}

	if _, err := q.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, string(body)); err != nil {
		return fmt.Errorf("notify %s: %w", channel, err)
	}

	return nil
}
