package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

func TestExportService_AuditCSV(t *testing.T) {
	env := newTestEnv()
	export := NewExportService(env.repos)
	ctx := context.Background()

	leadID := env.seedQualifiedLead(nil)
	_, err := env.deal.Create(ctx, 7, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.NoError(t, err)

	data, filename, err := export.ExportAuditCSV(ctx, &repository.AuditQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Contains(t, filename, ".csv")

	reader := csv.NewReader(bytes.NewReader(data))
	// The title and spacer rows are narrower than the data rows
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	// Title, column header, then at least one entry (the reader drops the
	// blank spacer line)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, []string{"Timestamp", "Actor", "Action", "Entity", "Entity ID", "Details"}, rows[1])
	assert.Equal(t, ActionCreate, rows[2][2])
	assert.Equal(t, "Deal", rows[2][3])
}

func TestExportService_SLAsCSV(t *testing.T) {
	env := newTestEnv()
	export := NewExportService(env.repos)
	ctx := context.Background()

	require.NoError(t, OpenTracker(ctx, env.repos, models.OrderRef(1), models.SLAStepPIUpload, time.Now()))

	data, filename, err := export.ExportSLAsCSV(ctx, &repository.SLAQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Contains(t, filename, "sla_trackers_")

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, models.SLAStepPIUpload, rows[2][2])
	assert.Equal(t, models.SLAStatusActive, rows[2][3])
}

func TestExportService_DealsXLSX(t *testing.T) {
	env := newTestEnv()
	export := NewExportService(env.repos)
	ctx := context.Background()

	leadID := env.seedQualifiedLead(nil)
	_, err := env.deal.Create(ctx, 7, &CreateDealRequest{
		LeadID:         leadID,
		TaxRatePercent: decimal.NewFromInt(18),
		Items:          dealItems(),
	})
	require.NoError(t, err)

	data, filename, err := export.ExportDealsXLSX(ctx, &repository.DealQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Contains(t, filename, ".xlsx")
	// XLSX files are zip archives
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestReportService_DealSummaryPDF(t *testing.T) {
	env := newTestEnv()
	report := NewReportService(env.repos)
	ctx := context.Background()

	leadID := env.seedQualifiedLead(nil)
	deal, err := env.deal.Create(ctx, 7, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.NoError(t, err)

	data, filename, err := report.DealSummaryPDF(ctx, deal.ID)
	require.NoError(t, err)
	assert.Contains(t, filename, ".pdf")
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte("%PDF"), data[:4])
}

func TestReportService_DealSummaryPDF_NotFound(t *testing.T) {
	env := newTestEnv()
	report := NewReportService(env.repos)

	_, _, err := report.DealSummaryPDF(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
