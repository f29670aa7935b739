package stocks

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/amosgichamba/teabroker-backend/pkg/config"
	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
)

const csvHeader = "lot_no,bags,weight,purchase_value,selling_price,mark,grade,broker,sale_code,batch_number,low_stock_threshold\n"

func newImporterEnv(t *testing.T) (*Importer, Service, *Exporter, func() int64) {
	t.Helper()
	conn := newTestConn(t)
	runner := db.NewWithConn(conn)
	repo := NewRepository(conn)

	// Single worker keeps batches sequential; sqlite serializes writers anyway.
	imp, err := NewImporter(runner, repo, config.ImportConfig{BatchSize: 2, MaxWorkers: 1}, 1)
	require.NoError(t, err)
	svc, err := NewService(runner, repo, 1)
	require.NoError(t, err)
	exp, err := NewExporter(repo)
	require.NoError(t, err)

	count := func() int64 {
		var n int64
		require.NoError(t, conn.Model(&models.Stock{}).Count(&n).Error)
		return n
	}
	return imp, svc, exp, count
}

func TestImportCreatesLots(t *testing.T) {
	t.Parallel()

	imp, _, _, count := newImporterEnv(t)
	body := csvHeader +
		"LOT-2001,10,100,250000,310000,MILIMA,BP1,EATTA,2026-34,,\n" +
		"LOT-2002,5,50.50,120000,150000,KAGWE,PF1,EATTA,2026-34,B-7,20\n" +
		"LOT-2003,8,80,200000,240000,MILIMA,DUST1,EATTA,2026-35,,\n"

	report, err := imp.Import(context.Background(), admin, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 3, report.Imported)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.RowErrors)
	assert.NoError(t, report.Err())
	assert.EqualValues(t, 3, count())
}

func TestImportSkipsUnparseableRows(t *testing.T) {
	t.Parallel()

	imp, _, _, count := newImporterEnv(t)
	body := csvHeader +
		"LOT-2001,10,100,250000,310000,MILIMA,BP1,EATTA,2026-34,,\n" +
		"LOT-2002,not-a-number,50,120000,150000,KAGWE,PF1,EATTA,2026-34,,\n" +
		"LOT-2003,8,80,200000,240000,MILIMA,DUST1,EATTA,2026-35,,\n"

	report, err := imp.Import(context.Background(), admin, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.RowErrors, 1)
	assert.Equal(t, 3, report.RowErrors[0].Line)
	assert.Error(t, report.Err())
	assert.EqualValues(t, 2, count())
}

func TestImportDuplicateLotFailsItsBatchOnly(t *testing.T) {
	t.Parallel()

	imp, svc, _, count := newImporterEnv(t)
	createLot(t, svc, "LOT-2002", 5, "50")

	// Batch size 2: the duplicate voids its batch (lines 2 and 3); the second
	// batch (line 4) still lands.
	body := csvHeader +
		"LOT-2001,10,100,250000,310000,MILIMA,BP1,EATTA,2026-34,,\n" +
		"LOT-2002,5,50,120000,150000,KAGWE,PF1,EATTA,2026-34,,\n" +
		"LOT-2003,8,80,200000,240000,MILIMA,DUST1,EATTA,2026-35,,\n"

	report, err := imp.Import(context.Background(), admin, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.RowErrors, 2)
	assert.Equal(t, 2, report.RowErrors[0].Line)
	assert.Equal(t, 3, report.RowErrors[1].Line)
	assert.Contains(t, report.RowErrors[0].Message, "LOT-2002")

	// The pre-seeded lot plus the surviving batch.
	assert.EqualValues(t, 2, count())
}

func TestImportRejectsBadHeader(t *testing.T) {
	t.Parallel()

	imp, _, _, _ := newImporterEnv(t)
	_, err := imp.Import(context.Background(), admin, strings.NewReader("lot,weight\nLOT-1,5\n"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestImportRequiresAdmin(t *testing.T) {
	t.Parallel()

	imp, _, _, _ := newImporterEnv(t)
	_, err := imp.Import(context.Background(), buyer, strings.NewReader(csvHeader))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	_, svc, exp, _ := newImporterEnv(t)
	createLot(t, svc, "LOT-3001", 10, "100")
	createLot(t, svc, "LOT-3002", 5, "50.50")

	var buf bytes.Buffer
	require.NoError(t, exp.Export(context.Background(), admin, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Lot No", rows[0][0])
	assert.Equal(t, "LOT-3001", rows[1][0])
	assert.Equal(t, "100", rows[1][2])
	assert.Equal(t, "LOT-3002", rows[2][0])
}

func TestExportRequiresAdmin(t *testing.T) {
	t.Parallel()

	_, _, exp, _ := newImporterEnv(t)
	var buf bytes.Buffer
	err := exp.Export(context.Background(), buyer, &buf)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}
