package catalog

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestLedgerLockProductsOrdersRowLocks(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = id.String()
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, quantity FROM products`) + `(?s).*ORDER BY id\s+FOR UPDATE`).
		WithArgs(keys).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "quantity"}).
			AddRow(sorted[0], "Urea", int64(12)).
			AddRow(sorted[2], "DAP", int64(4)))

	levels, err := NewLedger(mock).LockProducts(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.EqualValues(t, 12, levels[sorted[0]].Quantity)
	require.Equal(t, "DAP", levels[sorted[2]].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerDecrementIsConditional(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	id := uuid.New()
	decrement := regexp.QuoteMeta(`UPDATE products SET quantity = quantity - $2`) + `(?s).*` + regexp.QuoteMeta(`WHERE id = $1 AND quantity >= $2`)
	mock.ExpectExec(decrement).WithArgs(id.String(), int64(3)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(decrement).WithArgs(id.String(), int64(50)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(decrement).WithArgs(id.String(), int64(1)).WillReturnError(errors.New("connection reset"))

	ledger := NewLedger(mock)
	changed, err := ledger.Decrement(context.Background(), id, 3)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = ledger.Decrement(context.Background(), id, 50)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = ledger.Decrement(context.Background(), id, 1)
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerIncrementReportsMissingProduct(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	id := uuid.New()
	increment := regexp.QuoteMeta(`UPDATE products SET quantity = quantity + $2`) + `(?s).*` + regexp.QuoteMeta(`WHERE id = $1`)
	mock.ExpectExec(increment).WithArgs(id.String(), int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(increment).WithArgs(id.String(), int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ledger := NewLedger(mock)
	changed, err := ledger.Increment(context.Background(), id, 5)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = ledger.Increment(context.Background(), id, 5)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}
