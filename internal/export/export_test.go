package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"porttariff/internal/domain"
	"porttariff/internal/export"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleTariffs() []domain.PortTariff {
	return []domain.PortTariff{
		{
			PortID:       "SGSIN",
			ChargeType:   domain.ChargeTowage,
			ChargeName:   "Towage",
			Amount:       decimal.NewFromInt(1200),
			Currency:     "USD",
			Unit:         domain.UnitPerMovement,
			SizeRangeMax: int64Ptr(50000),
			Conditions:   "Inward",
			Confidence:   0.9,
			Status:       domain.TariffStatusActive,
			SourceText:   "Towage for vessels up to 50,000 GRT: USD 1,200 per movement",
			CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			PortID:     "SGSIN",
			ChargeType: domain.ChargePortDues,
			Amount:     decimal.RequireFromString("0.50"),
			Currency:   "USD",
			Unit:       domain.UnitPerGRT,
			Confidence: 0.95,
			Status:     domain.TariffStatusReview,
		},
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	row, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Equal(t, export.Columns, row)
	assert.Equal(t, "Port", row[0])
	assert.Equal(t, "Created At", row[len(row)-1])
}

func TestWriteTariffs(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteTariffs(sampleTariffs()))
	w.Flush()
	require.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"SGSIN", "towage", "Towage", "1200", "USD", "per_movement", "", "50000", "Inward",
		"0.90", "active", "", "Towage for vessels up to 50,000 GRT: USD 1,200 per movement",
		"2026-03-01T10:00:00Z",
	}, rows[1])
	assert.Equal(t, "0.5", rows[2][3])
	assert.Equal(t, "", rows[2][13])
}

func TestWriteStructured(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewWriter(&buf)
	require.NoError(t, w.WriteStructured([]domain.StructuredTariff{{
		TariffCandidate: domain.TariffCandidate{
			ChargeType: domain.ChargePilotage,
			Amount:     decimal.NewFromInt(2500),
			Currency:   "USD",
			Unit:       domain.UnitLumpsum,
			Conditions: []string{"Inward", "weekdays"},
			Confidence: 0.9,
		},
		Issues: []string{"missing charge name"},
	}}))
	w.Flush()

	row, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Equal(t, "Inward; weekdays", row[8])
	assert.Equal(t, "missing charge name", row[11])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sampleTariffs()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Charge Type", rows[0][1])
	assert.Equal(t, "towage", rows[1][1])
	assert.Equal(t, "1200", rows[1][3])
	assert.Equal(t, "50000", rows[1][7])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "SG_SIN", export.SanitizeFilename("SG  SIN!!"))
	assert.Equal(t, "abc-1", export.SanitizeFilename("__abc-1__"))
}

func TestBuildFilename(t *testing.T) {
	name := export.BuildFilename("SGSIN", "xlsx")
	assert.Regexp(t, `^SGSIN_tariffs_\d{4}-\d{2}-\d{2}\.xlsx$`, name)
}
