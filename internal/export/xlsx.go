package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"porttariff/internal/domain"
)

// SheetName is the worksheet holding exported tariffs.
const SheetName = "Tariffs"

// XLSXContentType is the MIME type of the workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes tariffs as a single-sheet workbook to w. Amounts and
// confidences are written as numbers.
func WriteXLSX(w io.Writer, tariffs []domain.PortTariff) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("export.WriteXLSX header: %w", err)
	}

	for i := range tariffs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		if err := sw.SetRow(cell, xlsxRow(&tariffs[i])); err != nil {
			return fmt.Errorf("export.WriteXLSX row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export.WriteXLSX flush: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.WriteXLSX write: %w", err)
	}
	return nil
}

func xlsxRow(t *domain.PortTariff) []interface{} {
	text := TariffRow(t)
	row := make([]interface{}, len(text))
	for i, v := range text {
		row[i] = v
	}
	amount, _ := t.Amount.Float64()
	row[3] = amount
	row[9] = t.Confidence
	if t.SizeRangeMin != nil {
		row[6] = *t.SizeRangeMin
	}
	if t.SizeRangeMax != nil {
		row[7] = *t.SizeRangeMax
	}
	return row
}
