package db

import (
	"context"
	"testing"

	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:retry_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return NewWithConn(conn)
}

func TestRetryTxRetriesSerializationFailures(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	attempts := 0

	err := client.RetryTx(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryTxExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	attempts := 0
	cause := &pgconn.PgError{Code: "40P01"}

	err := client.RetryTx(context.Background(), 2, func(tx *gorm.DB) error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "40P01", pgErr.Code)
}

func TestRetryTxDoesNotRetryBusinessErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	attempts := 0

	err := client.RetryTx(context.Background(), 5, func(tx *gorm.DB) error {
		attempts++
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested 150, available 100")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
}

func TestRetryTxDoesNotRetryPermanentStoreErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	attempts := 0

	// A NOT NULL violation wrapped the way services wrap repo failures:
	// the dependency code alone must not make it retryable.
	cause := &pgconn.PgError{Code: "23502"}
	err := client.RetryTx(context.Background(), 5, func(tx *gorm.DB) error {
		attempts++
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "creating stock")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestRetryTxRetriesWrappedSerializationFailures(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	attempts := 0

	// Classification digs through the wrap to the SQLSTATE underneath.
	err := client.RetryTx(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts < 2 {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, &pgconn.PgError{Code: "40001"}, "updating stock")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryableError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableError(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryableError(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsRetryableError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(gorm.ErrRecordNotFound))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	err := &pgconn.PgError{Code: "23505", ConstraintName: "stocks_lot_no_key"}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "stocks_lot_no_key"))
	assert.False(t, IsUniqueViolation(err, "other_constraint"))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound, ""))
}
