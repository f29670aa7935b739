package assignments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
)

func newTestEnv(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	dsn := "file:assignments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS users (
  cognito_id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
CREATE TABLE IF NOT EXISTS stock_assignments (
  id TEXT PRIMARY KEY,
  stock_id TEXT NOT NULL,
  user_cognito_id TEXT NOT NULL,
  assigned_weight TEXT NOT NULL,
  assigned_at DATETIME,
  UNIQUE (stock_id, user_cognito_id)
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
);`}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), 1)
	require.NoError(t, err)
	return conn, svc
}

func seedUser(t *testing.T, conn *gorm.DB, cognitoID string) {
	t.Helper()
	require.NoError(t, conn.Create(&models.User{
		CognitoID: cognitoID,
		Email:     cognitoID + "@example.com",
		Name:      "Buyer " + cognitoID,
		Role:      enums.RoleUser,
	}).Error)
}

func seedStock(t *testing.T, conn *gorm.DB, weight string) *models.Stock {
	t.Helper()
	stock := &models.Stock{
		ID:             uuid.New(),
		LotNo:          "LOT-" + uuid.NewString()[:8],
		Bags:           10,
		Weight:         decimal.RequireFromString(weight),
		Mark:           "MILIMA",
		Grade:          "BP1",
		Broker:         "EATTA",
		SaleCode:       "2026-34",
		AdminCognitoID: "admin-1",
	}
	require.NoError(t, conn.Create(stock).Error)
	return stock
}

func TestAssignReservesFullWeight(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	stock := seedStock(t, conn, "1200.50")

	assignment, err := svc.Assign(ctx, AssignInput{
		StockID:        stock.ID,
		UserCognitoID:  "buyer-1",
		AdminCognitoID: "admin-1",
	})
	require.NoError(t, err)
	assert.True(t, assignment.AssignedWeight.Equal(decimal.RequireFromString("1200.50")))

	// Reservation only: the lot's weight and bags are untouched.
	var reloaded models.Stock
	require.NoError(t, conn.First(&reloaded, "id = ?", stock.ID).Error)
	assert.True(t, reloaded.Weight.Equal(stock.Weight))
	assert.Equal(t, stock.Bags, reloaded.Bags)

	var entry models.StockHistory
	require.NoError(t, conn.First(&entry, "stock_id = ?", stock.ID).Error)
	assert.Equal(t, enums.StockActionAssigned, entry.Action)
	require.NotNil(t, entry.Details)
	assert.Equal(t, stock.LotNo, entry.Details.Lot.LotNo)
	require.NotNil(t, entry.Details.Assignment)
	assert.Equal(t, "buyer-1", entry.Details.Assignment.UserCognitoID)
}

func TestAssignRejectsSecondAssignee(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	seedUser(t, conn, "buyer-2")
	stock := seedStock(t, conn, "500")

	_, err := svc.Assign(ctx, AssignInput{StockID: stock.ID, UserCognitoID: "buyer-1", AdminCognitoID: "admin-1"})
	require.NoError(t, err)

	_, err = svc.Assign(ctx, AssignInput{StockID: stock.ID, UserCognitoID: "buyer-2", AdminCognitoID: "admin-1"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyAssigned, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"buyer-1"}, details["assignees"])
}

func TestAssignUnknownUser(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "500")

	_, err := svc.Assign(context.Background(), AssignInput{
		StockID:        stock.ID,
		UserCognitoID:  "ghost",
		AdminCognitoID: "admin-1",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestBulkAssignAllOrNothing(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	seedUser(t, conn, "buyer-2")
	stockA := seedStock(t, conn, "100")
	stockB := seedStock(t, conn, "200")

	// Pre-assign stockB so the batch hits a conflict on its second item.
	_, err := svc.Assign(ctx, AssignInput{StockID: stockB.ID, UserCognitoID: "buyer-2", AdminCognitoID: "admin-1"})
	require.NoError(t, err)

	_, err = svc.BulkAssign(ctx, BulkAssignInput{
		AdminCognitoID: "admin-1",
		Items: []BulkAssignItem{
			{StockID: stockA.ID, UserCognitoID: "buyer-1"},
			{StockID: stockB.ID, UserCognitoID: "buyer-1"},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyAssigned, typed.Code())

	// Nothing from the failed batch landed.
	var count int64
	require.NoError(t, conn.Model(&models.StockAssignment{}).Where("stock_id = ?", stockA.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBulkAssignSuccess(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	seedUser(t, conn, "buyer-2")
	stockA := seedStock(t, conn, "100")
	stockB := seedStock(t, conn, "200")

	created, err := svc.BulkAssign(ctx, BulkAssignInput{
		AdminCognitoID: "admin-1",
		Items: []BulkAssignItem{
			{StockID: stockA.ID, UserCognitoID: "buyer-1"},
			{StockID: stockB.ID, UserCognitoID: "buyer-2"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.True(t, created[0].AssignedWeight.Equal(decimal.RequireFromString("100")))
	assert.True(t, created[1].AssignedWeight.Equal(decimal.RequireFromString("200")))
}

func TestBulkAssignHonorsWeightOverride(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	stockA := seedStock(t, conn, "100")
	stockB := seedStock(t, conn, "200")

	partial := decimal.RequireFromString("5")
	created, err := svc.BulkAssign(ctx, BulkAssignInput{
		AdminCognitoID: "admin-1",
		Items: []BulkAssignItem{
			{StockID: stockA.ID, UserCognitoID: "buyer-1"},
			{StockID: stockB.ID, UserCognitoID: "buyer-1", AssignedWeight: &partial},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Omitted weight defaults to the lot's full weight; the override sticks.
	assert.True(t, created[0].AssignedWeight.Equal(decimal.RequireFromString("100")))
	assert.True(t, created[1].AssignedWeight.Equal(partial))

	// The override is a reservation amount, never a deduction.
	var reloaded models.Stock
	require.NoError(t, conn.First(&reloaded, "id = ?", stockB.ID).Error)
	assert.True(t, reloaded.Weight.Equal(decimal.RequireFromString("200")))
}

func TestBulkAssignRejectsNonPositiveWeightOverride(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	seedUser(t, conn, "buyer-1")
	stock := seedStock(t, conn, "100")

	zero := decimal.Zero
	_, err := svc.BulkAssign(context.Background(), BulkAssignInput{
		AdminCognitoID: "admin-1",
		Items: []BulkAssignItem{
			{StockID: stock.ID, UserCognitoID: "buyer-1", AssignedWeight: &zero},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestBulkAssignRejectsDuplicateStock(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	seedUser(t, conn, "buyer-1")
	stock := seedStock(t, conn, "100")

	_, err := svc.BulkAssign(context.Background(), BulkAssignInput{
		AdminCognitoID: "admin-1",
		Items: []BulkAssignItem{
			{StockID: stock.ID, UserCognitoID: "buyer-1"},
			{StockID: stock.ID, UserCognitoID: "buyer-1"},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUnassignReleasesWithoutRestoring(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, conn, "buyer-1")
	stock := seedStock(t, conn, "800")

	_, err := svc.Assign(ctx, AssignInput{StockID: stock.ID, UserCognitoID: "buyer-1", AdminCognitoID: "admin-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Unassign(ctx, UnassignInput{
		StockID:        stock.ID,
		UserCognitoID:  "buyer-1",
		AdminCognitoID: "admin-1",
	}))

	var count int64
	require.NoError(t, conn.Model(&models.StockAssignment{}).Where("stock_id = ?", stock.ID).Count(&count).Error)
	assert.Zero(t, count)

	var reloaded models.Stock
	require.NoError(t, conn.First(&reloaded, "id = ?", stock.ID).Error)
	assert.True(t, reloaded.Weight.Equal(decimal.RequireFromString("800")))

	var actions []string
	require.NoError(t, conn.Model(&models.StockHistory{}).
		Where("stock_id = ?", stock.ID).
		Pluck("action", &actions).Error)
	assert.ElementsMatch(t, []string{string(enums.StockActionAssigned), string(enums.StockActionUnassigned)}, actions)
}

func TestUnassignMissingPair(t *testing.T) {
	t.Parallel()

	conn, svc := newTestEnv(t)
	stock := seedStock(t, conn, "800")

	err := svc.Unassign(context.Background(), UnassignInput{
		StockID:        stock.ID,
		UserCognitoID:  "buyer-1",
		AdminCognitoID: "admin-1",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
