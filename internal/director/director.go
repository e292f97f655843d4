// Package director is the decision engine ("life director") that turns a
// persona's current context into one structured activity decision per
// planning step.
package director

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/adapter/provider/trends"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/weather"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// Request is the context handed to the director for one planning step.
type Request struct {
	Persona        domain.Persona
	CycleID        uuid.UUID
	LocalHour      int
	Weather        weather.Report
	Trends         []trends.Trend
	RecentMemories []domain.Memory
	ManualLocation *domain.ManualLocation
}

// Effects are the mutation primitives the director may invoke as tool calls
// while reasoning. Implementations must be idempotent per key: the same tool
// call replayed after a duplicate event delivery applies nothing twice.
type Effects interface {
	AdjustWallet(ctx context.Context, personaID uuid.UUID, key string, amount float64, reason string) (bool, error)
	RecordMemory(ctx context.Context, m domain.Memory, key string) (bool, error)
}

// Director produces an activity decision for a persona.
// Implementations are pluggable black boxes; the scheduler only relies on
// this contract and falls back to an ambient decision when Decide fails.
type Director interface {
	Decide(ctx context.Context, req Request) (domain.Decision, error)
}
