package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter implements SheetWriter with a local .xlsx workbook.
// An existing workbook is updated in place so each user's HISTORY keeps growing
// and other users' sheets are left alone.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer for the workbook at path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := appendSheetRow(f, r.HistorySheet(), historyHeader, buildHistoryRow(r)); err != nil {
		return err
	}
	if err := replaceSheet(f, r.HoldingsSheet(), buildHoldings(r.Holdings)); err != nil {
		return err
	}
	if err := replaceSheet(f, r.SummarySheet(), buildSummary(r.Summary)); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(defaultSheet); err == nil && idx >= 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}
	if idx, err := f.GetSheetIndex(r.HoldingsSheet()); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

func (w *XLSXWriter) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	return nil, fmt.Errorf("opening workbook %s: %w", w.path, err)
}

// replaceSheet drops the named sheet if present and writes rows into a fresh one.
func replaceSheet(f *excelize.File, name string, rows [][]any) error {
	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("clearing sheet %s: %w", name, err)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	for i, row := range rows {
		if err := setRow(f, name, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

// appendSheetRow adds row after the last used row, writing header first on an empty sheet.
func appendSheetRow(f *excelize.File, name string, header, row []any) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	existing, err := f.GetRows(name)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", name, err)
	}
	next := len(existing) + 1
	if len(existing) == 0 {
		if err := setRow(f, name, 1, header); err != nil {
			return err
		}
		next = 2
	}
	return setRow(f, name, next, row)
}

func setRow(f *excelize.File, sheet string, rowNum int, row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
