package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// storeEffects adapts the persistence layer into the mutation surface the
// director may use as tools. Both operations are keyed, so a replayed tool
// call applies nothing twice.
type storeEffects struct {
	personas PersonaStore
	memories MemoryStore
}

// NewEffects builds the director's effect surface from the stores.
func NewEffects(personas PersonaStore, memories MemoryStore) director.Effects {
	return storeEffects{personas: personas, memories: memories}
}

func (e storeEffects) AdjustWallet(ctx context.Context, personaID uuid.UUID, key string, amount float64, reason string) (bool, error) {
	return e.personas.ApplyWalletDelta(ctx, personaID, key, amount, reason)
}

func (e storeEffects) RecordMemory(ctx context.Context, m domain.Memory, key string) (bool, error) {
	return e.memories.Create(ctx, m, key)
}
