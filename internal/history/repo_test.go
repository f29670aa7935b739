package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:history_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS stock_history (
  id TEXT PRIMARY KEY,
  stock_id TEXT NOT NULL,
  action TEXT NOT NULL,
  user_cognito_id TEXT,
  admin_cognito_id TEXT,
  shipment_id TEXT,
  details TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shipment_history (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  action TEXT NOT NULL,
  admin_cognito_id TEXT,
  user_cognito_id TEXT,
  details TEXT,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedStockEntry(t *testing.T, conn *gorm.DB, stockID uuid.UUID, action enums.StockHistoryAction, at time.Time, userCognitoID string) models.StockHistory {
	t.Helper()
	entry := models.StockHistory{
		ID:        uuid.New(),
		StockID:   stockID,
		Action:    action,
		CreatedAt: at,
	}
	if userCognitoID != "" {
		entry.UserCognitoID = &userCognitoID
	}
	require.NoError(t, conn.Create(&entry).Error)
	return entry
}

func seedShipmentEntry(t *testing.T, conn *gorm.DB, shipmentID uuid.UUID, action enums.ShipmentHistoryAction, at time.Time) models.ShipmentHistory {
	t.Helper()
	entry := models.ShipmentHistory{
		ID:         uuid.New(),
		ShipmentID: shipmentID,
		Action:     action,
		CreatedAt:  at,
	}
	require.NoError(t, conn.Create(&entry).Error)
	return entry
}

func TestListStockHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	stockID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedStockEntry(t, conn, stockID, enums.StockActionCreated, base, "")
	seedStockEntry(t, conn, stockID, enums.StockActionReduced, base.Add(time.Hour), "")
	seedStockEntry(t, conn, stockID, enums.StockActionRestored, base.Add(2*time.Hour), "")

	page, err := repo.ListStockHistory(ctx, StockHistoryFilter{StockID: &stockID}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Empty(t, page.NextCursor)

	assert.Equal(t, enums.StockActionRestored, page.Entries[0].Action)
	assert.Equal(t, enums.StockActionReduced, page.Entries[1].Action)
	assert.Equal(t, enums.StockActionCreated, page.Entries[2].Action)
}

func TestListStockHistoryCursorWalk(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	stockID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedStockEntry(t, conn, stockID, enums.StockActionReduced, base.Add(time.Duration(i)*time.Minute), "")
	}

	first, err := repo.ListStockHistory(ctx, StockHistoryFilter{StockID: &stockID}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListStockHistory(ctx, StockHistoryFilter{StockID: &stockID}, pagination.Params{
		Limit:  2,
		Cursor: first.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	require.NotEmpty(t, second.NextCursor)

	third, err := repo.ListStockHistory(ctx, StockHistoryFilter{StockID: &stockID}, pagination.Params{
		Limit:  2,
		Cursor: second.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, third.Entries, 1)
	assert.Empty(t, third.NextCursor)

	// Pages never overlap and cover the whole trail.
	seen := map[uuid.UUID]bool{}
	for _, entry := range append(append(first.Entries, second.Entries...), third.Entries...) {
		assert.False(t, seen[entry.ID])
		seen[entry.ID] = true
	}
	assert.Len(t, seen, 5)
}

func TestListStockHistoryFilters(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	stockA := uuid.New()
	stockB := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedStockEntry(t, conn, stockA, enums.StockActionAssigned, base, "buyer-1")
	seedStockEntry(t, conn, stockA, enums.StockActionUnassigned, base.Add(time.Hour), "buyer-1")
	seedStockEntry(t, conn, stockB, enums.StockActionAssigned, base.Add(2*time.Hour), "buyer-2")

	byUser, err := repo.ListStockHistory(ctx, StockHistoryFilter{UserCognitoID: "buyer-2"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byUser.Entries, 1)
	assert.Equal(t, stockB, byUser.Entries[0].StockID)

	byAction, err := repo.ListStockHistory(ctx, StockHistoryFilter{
		StockID: &stockA,
		Action:  string(enums.StockActionUnassigned),
	}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byAction.Entries, 1)
	assert.Equal(t, enums.StockActionUnassigned, byAction.Entries[0].Action)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	byRange, err := repo.ListStockHistory(ctx, StockHistoryFilter{From: &from, To: &to}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byRange.Entries, 1)
	assert.Equal(t, enums.StockActionUnassigned, byRange.Entries[0].Action)
}

func TestListStockHistoryRejectsMalformedCursor(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.ListStockHistory(context.Background(), StockHistoryFilter{}, pagination.Params{Cursor: "not-base64!!"})
	require.Error(t, err)
}

func TestListShipmentHistoryFiltersAndPages(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	shipmentA := uuid.New()
	shipmentB := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedShipmentEntry(t, conn, shipmentA, enums.ShipmentActionCreated, base)
	seedShipmentEntry(t, conn, shipmentA, enums.ShipmentActionStatusUpdated, base.Add(time.Hour))
	seedShipmentEntry(t, conn, shipmentB, enums.ShipmentActionCreated, base.Add(2*time.Hour))

	page, err := repo.ListShipmentHistory(ctx, ShipmentHistoryFilter{ShipmentID: &shipmentA}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, enums.ShipmentActionStatusUpdated, page.Entries[0].Action)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListShipmentHistory(ctx, ShipmentHistoryFilter{ShipmentID: &shipmentA}, pagination.Params{
		Limit:  1,
		Cursor: page.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, rest.Entries, 1)
	assert.Equal(t, enums.ShipmentActionCreated, rest.Entries[0].Action)
	assert.Empty(t, rest.NextCursor)
}
