package persona

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/testutil"
	"github.com/pulseworks/vita-backend/internal/domain"
)

var personaColumnNames = []string{
	"id", "name", "city", "bio", "lifecycle_status", "lifecycle_started_at",
	"current_activity", "activity_details", "activity_started_at", "current_cycle_id",
	"current_balance", "daily_outfit", "outfit_date", "created_at", "updated_at",
}

func personaRow(id uuid.UUID, status domain.LifecycleStatus, activity domain.Activity) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(personaColumnNames).
		AddRow(id, "Vita", "Lisbon", nil, status, nil,
			activity, nil, nil, nil,
			100.0, []byte(nil), nil, now, now)
}

func TestRepo_GetByID(t *testing.T) {
	personaID := uuid.New()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT").
					WithArgs(personaID).
					WillReturnRows(personaRow(personaID, domain.LifecycleRunning, domain.ActivityResting))
			},
		},
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT").
					WithArgs(personaID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockQuerier(t)
			repo := New(mock)
			tt.setup(mock)

			got, err := repo.GetByID(context.Background(), personaID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetByID() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("GetByID() error = %v", err)
				}
				if got.ID != personaID {
					t.Errorf("GetByID() id = %v, want %v", got.ID, personaID)
				}
			}

			testutil.ExpectationsWereMet(t, mock)
		})
	}
}

func TestRepo_TransitionActivity(t *testing.T) {
	personaID := uuid.New()
	cycleID := uuid.New()
	now := time.Now()

	tests := []struct {
		name        string
		guard       Guard
		snap        Snapshot
		setup       func(mock pgxmock.PgxPoolIface)
		wantApplied bool
		wantErr     bool
	}{
		{
			name: "applied",
			guard: Guard{
				Status:   domain.LifecycleRunning,
				Activity: domain.ActivityPlanning,
				CycleID:  &cycleID,
			},
			snap: Snapshot{
				Activity:  domain.ActivityCreating,
				StartedAt: now,
				CycleID:   &cycleID,
			},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE personas").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectExec("SELECT pg_notify").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("SELECT", 1))
			},
			wantApplied: true,
		},
		{
			name: "guard mismatch drops silently",
			guard: Guard{
				Status:   domain.LifecycleRunning,
				Activity: domain.ActivityPlanning,
				CycleID:  &cycleID,
			},
			snap: Snapshot{
				Activity:  domain.ActivityResting,
				StartedAt: now,
				CycleID:   &cycleID,
			},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE personas").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantApplied: false,
		},
		{
			name: "invalid transition rejected before SQL",
			guard: Guard{
				Status:   domain.LifecycleRunning,
				Activity: domain.ActivitySleeping,
			},
			snap: Snapshot{
				Activity:  domain.ActivityCreating,
				StartedAt: now,
			},
			setup:   func(mock pgxmock.PgxPoolIface) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockQuerier(t)
			repo := New(mock)
			tt.setup(mock)

			applied, err := repo.TransitionActivity(context.Background(), personaID, tt.guard, tt.snap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TransitionActivity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if applied != tt.wantApplied {
				t.Errorf("TransitionActivity() applied = %v, want %v", applied, tt.wantApplied)
			}

			testutil.ExpectationsWereMet(t, mock)
		})
	}
}

func TestRepo_Activate(t *testing.T) {
	personaID := uuid.New()

	t.Run("activates new persona", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("UPDATE personas").
			WithArgs(personaID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("SELECT pg_notify").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		if err := repo.Activate(context.Background(), personaID, time.Now()); err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
		testutil.ExpectationsWereMet(t, mock)
	})

	t.Run("already running", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("UPDATE personas").
			WithArgs(personaID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Activate(context.Background(), personaID, time.Now())
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("Activate() error = %v, want ErrInvalidState", err)
		}
		testutil.ExpectationsWereMet(t, mock)
	})
}

func TestRepo_Halt(t *testing.T) {
	personaID := uuid.New()

	t.Run("pause from running", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("UPDATE personas").
			WithArgs(personaID, domain.LifecyclePaused, pgxmock.AnyArg(), domain.LifecycleRunning).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("SELECT pg_notify").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		err := repo.Halt(context.Background(), personaID,
			domain.LifecycleRunning, domain.LifecyclePaused, time.Now())
		if err != nil {
			t.Fatalf("Halt() error = %v", err)
		}
		testutil.ExpectationsWereMet(t, mock)
	})

	t.Run("invalid transition rejected before SQL", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		err := repo.Halt(context.Background(), personaID,
			domain.LifecycleStopped, domain.LifecycleRunning, time.Now())
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("Halt() error = %v, want ErrInvalidState", err)
		}
		testutil.ExpectationsWereMet(t, mock)
	})
}

// The wallet delta statement inserts the ledger row and increments the
// balance in one round trip; a duplicate key yields zero affected rows and
// must report applied=false without an error.
func TestRepo_ApplyWalletDelta(t *testing.T) {
	personaID := uuid.New()

	t.Run("first application", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("WITH ins AS").
			WithArgs(pgxmock.AnyArg(), personaID, "cycle/wallet", -25.0, "brunch", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		applied, err := repo.ApplyWalletDelta(context.Background(), personaID, "cycle/wallet", -25, "brunch")
		if err != nil {
			t.Fatalf("ApplyWalletDelta() error = %v", err)
		}
		if !applied {
			t.Error("ApplyWalletDelta() applied = false, want true")
		}
		testutil.ExpectationsWereMet(t, mock)
	})

	t.Run("duplicate key is a no-op", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("WITH ins AS").
			WithArgs(pgxmock.AnyArg(), personaID, "cycle/wallet", -25.0, "brunch", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		applied, err := repo.ApplyWalletDelta(context.Background(), personaID, "cycle/wallet", -25, "brunch")
		if err != nil {
			t.Fatalf("ApplyWalletDelta() error = %v", err)
		}
		if applied {
			t.Error("ApplyWalletDelta() applied = true, want false on duplicate")
		}
		testutil.ExpectationsWereMet(t, mock)
	})
}

func TestRepo_SetOutfit(t *testing.T) {
	personaID := uuid.New()
	day := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	outfit := domain.Outfit{Top: "linen shirt", Bottom: "jeans", Shoes: "sneakers"}

	t.Run("sets for a new day", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("UPDATE personas").
			WithArgs(personaID, pgxmock.AnyArg(), day, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		applied, err := repo.SetOutfit(context.Background(), personaID, outfit, day)
		if err != nil {
			t.Fatalf("SetOutfit() error = %v", err)
		}
		if !applied {
			t.Error("SetOutfit() applied = false, want true")
		}
		testutil.ExpectationsWereMet(t, mock)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		mock := testutil.NewMockQuerier(t)
		repo := New(mock)

		mock.ExpectExec("UPDATE personas").
			WithArgs(personaID, pgxmock.AnyArg(), day, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		applied, err := repo.SetOutfit(context.Background(), personaID, outfit, day)
		if err != nil {
			t.Fatalf("SetOutfit() error = %v", err)
		}
		if applied {
			t.Error("SetOutfit() applied = true, want false for the same day")
		}
		testutil.ExpectationsWereMet(t, mock)
	})
}
