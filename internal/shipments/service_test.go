package shipments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
)

var (
	buyer = auth.Actor{CognitoID: "buyer-1", Role: enums.RoleUser, Email: "buyer@example.com", Name: "Buyer One"}
	admin = auth.Actor{CognitoID: "admin-1", Role: enums.RoleAdmin, Email: "admin@example.com", Name: "Admin One"}
)

func newTestEnv(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	dsn := "file:shipments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS stocks (
  id TEXT PRIMARY KEY,
  lot_no TEXT NOT NULL UNIQUE,
  bags INTEGER NOT NULL DEFAULT 0,
  weight TEXT NOT NULL DEFAULT '0',
  purchase_value TEXT NOT NULL DEFAULT '0',
  selling_price TEXT NOT NULL DEFAULT '0',
  mark TEXT NOT NULL,
  grade TEXT NOT NULL,
  broker TEXT NOT NULL,
  sale_code TEXT NOT NULL,
  batch_number TEXT,
  low_stock_threshold TEXT,
  admin_cognito_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  user_cognito_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  consignee TEXT NOT NULL,
  vessel TEXT NOT NULL,
  shipmark TEXT NOT NULL,
  packaging_instructions TEXT NOT NULL,
  additional_instructions TEXT,
  shipment_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shipment_items (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  stock_id TEXT NOT NULL,
  assigned_weight TEXT NOT NULL,
  created_at DATETIME
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS admins (
  cognito_id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), 1)
	require.NoError(t, err)
	return conn, svc
}

func seedStock(t *testing.T, conn *gorm.DB, weight string, bags int) *models.Stock {
	t.Helper()
	stock := &models.Stock{
		ID:             uuid.New(),
		LotNo:          "LOT-" + uuid.NewString()[:8],
		Bags:           bags,
		Weight:         decimal.RequireFromString(weight),
		Mark:           "KAGWE",
		Grade:          "PD",
		Broker:         "EATTA",
		SaleCode:       "2026-35",
		AdminCognitoID: "admin-1",
	}
	require.NoError(t, conn.Create(stock).Error)
	return stock
}

func createShipment(t *testing.T, svc Service, items []ItemInput) *models.Shipment {
	t.Helper()
	shipment, err := svc.Create(context.Background(), CreateInput{
		Actor:                 buyer,
		Consignee:             "Mombasa Tea Packers",
		Vessel:                "MV Kilindini",
		Shipmark:              "MTP-482",
		PackagingInstructions: "60kg paper sacks",
		Items:                 items,
	})
	require.NoError(t, err)
	return shipment
}

func stockWeight(t *testing.T, conn *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var stock models.Stock
	require.NoError(t, conn.First(&stock, "id = ?", id).Error)
	return stock.Weight
}

func TestCreateDeductsStock(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)

	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("25")},
	})
	assert.Equal(t, enums.ShipmentStatusPending, shipment.Status)
	assert.Equal(t, buyer.CognitoID, shipment.UserCognitoID)
	require.Len(t, shipment.Items, 1)

	assert.True(t, stockWeight(t, conn, stock.ID).Equal(decimal.RequireFromString("75")))

	var stockEntry models.StockHistory
	require.NoError(t, conn.First(&stockEntry, "stock_id = ?", stock.ID).Error)
	assert.Equal(t, enums.StockActionReduced, stockEntry.Action)
	require.NotNil(t, stockEntry.ShipmentID)
	assert.Equal(t, shipment.ID, *stockEntry.ShipmentID)

	var shipEntry models.ShipmentHistory
	require.NoError(t, conn.First(&shipEntry, "shipment_id = ?", shipment.ID).Error)
	assert.Equal(t, enums.ShipmentActionCreated, shipEntry.Action)
	require.NotNil(t, shipEntry.Details)
	require.NotNil(t, shipEntry.Details.Shipment)
	assert.Equal(t, "Mombasa Tea Packers", shipEntry.Details.Shipment.Consignee)
}

func TestCreateRejectsOverConsumption(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)

	_, err := svc.Create(context.Background(), CreateInput{
		Actor:                 buyer,
		Consignee:             "Mombasa Tea Packers",
		Vessel:                "MV Kilindini",
		Shipmark:              "MTP-482",
		PackagingInstructions: "60kg paper sacks",
		Items: []ItemInput{
			{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("150")},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "50", details["shortfall"])

	// Nothing persisted.
	assert.True(t, stockWeight(t, conn, stock.ID).Equal(decimal.RequireFromString("100")))
	var count int64
	require.NoError(t, conn.Model(&models.Shipment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateSumsRequestsPerLot(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)

	// Two 60kg slices of the same lot exceed it even though each fits alone.
	_, err := svc.Create(context.Background(), CreateInput{
		Actor:                 buyer,
		Consignee:             "Mombasa Tea Packers",
		Vessel:                "MV Kilindini",
		Shipmark:              "MTP-482",
		PackagingInstructions: "60kg paper sacks",
		Items: []ItemInput{
			{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("60")},
			{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("60")},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
}

func TestUpdateReplacesItemsAtomically(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stockA := seedStock(t, conn, "100.00", 10)
	stockB := seedStock(t, conn, "80.00", 8)

	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stockA.ID, AssignedWeight: decimal.RequireFromString("40")},
	})
	require.True(t, stockWeight(t, conn, stockA.ID).Equal(decimal.RequireFromString("60")))

	newItems := []ItemInput{
		{StockID: stockB.ID, AssignedWeight: decimal.RequireFromString("30")},
	}
	updated, err := svc.Update(context.Background(), UpdateInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Items:      &newItems,
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, stockB.ID, updated.Items[0].StockID)

	// Old allocation went back, new one came out.
	assert.True(t, stockWeight(t, conn, stockA.ID).Equal(decimal.RequireFromString("100")))
	assert.True(t, stockWeight(t, conn, stockB.ID).Equal(decimal.RequireFromString("50")))
}

func TestUpdateItemReplacementRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stockA := seedStock(t, conn, "100.00", 10)
	stockB := seedStock(t, conn, "80.00", 8)

	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stockA.ID, AssignedWeight: decimal.RequireFromString("40")},
	})

	newItems := []ItemInput{
		{StockID: stockB.ID, AssignedWeight: decimal.RequireFromString("500")},
	}
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Items:      &newItems,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// The restore of the old items rolled back with everything else.
	assert.True(t, stockWeight(t, conn, stockA.ID).Equal(decimal.RequireFromString("60")))
	assert.True(t, stockWeight(t, conn, stockB.ID).Equal(decimal.RequireFromString("80")))

	var items []models.ShipmentItem
	require.NoError(t, conn.Find(&items, "shipment_id = ?", shipment.ID).Error)
	require.Len(t, items, 1)
	assert.Equal(t, stockA.ID, items[0].StockID)
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	consignee := "Someone Else"
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:      auth.Actor{CognitoID: "buyer-2", Role: enums.RoleUser},
		ShipmentID: shipment.ID,
		Consignee:  &consignee,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestUpdateRejectsCancelledShipment(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	cancelled := enums.ShipmentStatusCancelled
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Status:     &cancelled,
	})
	require.NoError(t, err)

	consignee := "Too Late"
	_, err = svc.Update(context.Background(), UpdateInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Consignee:  &consignee,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateOwnerCannotApprove(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	approved := enums.ShipmentStatusApproved
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Status:     &approved,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestDeleteRestoresAllItems(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stockA := seedStock(t, conn, "100.00", 10)
	stockB := seedStock(t, conn, "80.00", 8)

	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stockA.ID, AssignedWeight: decimal.RequireFromString("40")},
		{StockID: stockB.ID, AssignedWeight: decimal.RequireFromString("20")},
	})

	require.NoError(t, svc.Delete(context.Background(), DeleteInput{Actor: buyer, ShipmentID: shipment.ID}))

	assert.True(t, stockWeight(t, conn, stockA.ID).Equal(decimal.RequireFromString("100")))
	assert.True(t, stockWeight(t, conn, stockB.ID).Equal(decimal.RequireFromString("80")))

	var count int64
	require.NoError(t, conn.Model(&models.Shipment{}).Where("id = ?", shipment.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, conn.Model(&models.ShipmentItem{}).Where("shipment_id = ?", shipment.ID).Count(&count).Error)
	assert.Zero(t, count)

	// The audit trail outlives the shipment.
	var actions []string
	require.NoError(t, conn.Model(&models.ShipmentHistory{}).
		Where("shipment_id = ?", shipment.ID).
		Pluck("action", &actions).Error)
	assert.ElementsMatch(t, []string{string(enums.ShipmentActionCreated), string(enums.ShipmentActionDeleted)}, actions)
}

func TestUpdateStatusForwardChain(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})
	ctx := context.Background()

	for _, status := range []enums.ShipmentStatus{
		enums.ShipmentStatusApproved,
		enums.ShipmentStatusShipped,
		enums.ShipmentStatusDelivered,
	} {
		updated, err := svc.UpdateStatus(ctx, UpdateStatusInput{Actor: admin, ShipmentID: shipment.ID, Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	// Delivered is terminal.
	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{Actor: admin, ShipmentID: shipment.ID, Status: enums.ShipmentStatusCancelled})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:      admin,
		ShipmentID: shipment.ID,
		Status:     enums.ShipmentStatusShipped,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusRequiresElevatedRole(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:      buyer,
		ShipmentID: shipment.ID,
		Status:     enums.ShipmentStatusApproved,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestUpdateStatusProvisionsAdminLazily(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "100.00", 10)
	shipment := createShipment(t, svc, []ItemInput{
		{StockID: stock.ID, AssignedWeight: decimal.RequireFromString("10")},
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:      admin,
		ShipmentID: shipment.ID,
		Status:     enums.ShipmentStatusApproved,
	})
	require.NoError(t, err)

	var row models.Admin
	require.NoError(t, conn.First(&row, "cognito_id = ?", admin.CognitoID).Error)
	assert.Equal(t, admin.Email, row.Email)

	var entry models.ShipmentHistory
	require.NoError(t, conn.First(&entry, "shipment_id = ? AND action = ?", shipment.ID, enums.ShipmentActionStatusUpdated).Error)
	require.NotNil(t, entry.Details)
	require.NotNil(t, entry.Details.StatusChange)
	assert.Equal(t, "Pending", entry.Details.StatusChange.From)
	assert.Equal(t, "Approved", entry.Details.StatusChange.To)
	require.NotNil(t, entry.AdminCognitoID)
	assert.Equal(t, admin.CognitoID, *entry.AdminCognitoID)
}
