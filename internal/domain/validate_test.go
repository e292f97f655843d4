package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryValidate(t *testing.T) {
	valid := Memory{
		PersonaID:   uuid.New(),
		Kind:        MemoryDecision,
		Description: "went for a run",
		Importance:  3,
	}

	tests := []struct {
		name    string
		mutate  func(m *Memory)
		wantErr bool
	}{
		{"valid", func(m *Memory) {}, false},
		{"empty description", func(m *Memory) { m.Description = "" }, true},
		{"importance too low", func(m *Memory) { m.Importance = 0 }, true},
		{"importance too high", func(m *Memory) { m.Importance = 6 }, true},
		{"unknown kind", func(m *Memory) { m.Kind = MemoryKind("GOSSIP") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error must wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestCycleEventValidate(t *testing.T) {
	home := ManualHome

	tests := []struct {
		name    string
		event   CycleEvent
		wantErr bool
	}{
		{"valid start", CycleEvent{Kind: EventStart}, false},
		{"valid manual", CycleEvent{Kind: EventStart, Manual: true, ManualLocation: &home}, false},
		{"unknown kind", CycleEvent{Kind: EventKind("NUDGE")}, true},
		{"location without manual flag", CycleEvent{Kind: EventStart, ManualLocation: &home}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecisionClampImportance(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-2, 1}, {0, 1}, {1, 1}, {3, 3}, {5, 5}, {9, 5},
	}
	for _, tt := range tests {
		d := Decision{Importance: tt.in}
		if got := d.ClampImportance(); got != tt.want {
			t.Errorf("ClampImportance(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPersonaNeedsOutfit(t *testing.T) {
	p := Persona{}
	day := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)

	if !p.NeedsOutfit(day) {
		t.Error("persona without an outfit needs one")
	}

	p.DailyOutfit = &Outfit{Top: "linen shirt"}
	p.OutfitDate = &day
	if p.NeedsOutfit(day) {
		t.Error("outfit from the same day must not be regenerated")
	}

	next := day.AddDate(0, 0, 1)
	if !p.NeedsOutfit(next) {
		t.Error("a new local day needs a new outfit")
	}
}
