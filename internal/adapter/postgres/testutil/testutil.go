// Package testutil provides shared helpers for repository tests.
package testutil

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

// NewMockQuerier returns a pgxmock pool. It satisfies postgres.Querier, so
// repositories can be constructed over it directly.
func NewMockQuerier(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock
}

// ExpectationsWereMet fails the test if the mock has unmet expectations.
func ExpectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
