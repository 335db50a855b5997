package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/portfolio"
)

// Sheet names shared by every writer.
const (
	holdingsSheet = "HOLDINGS"
	summarySheet  = "SUMMARY"
	historySheet  = "HISTORY"
)

const maxSheetTitle = 31

// sheetTitle names a user's copy of a sheet, e.g. "HOLDINGS alice". Characters
// spreadsheets reject in titles are replaced and the result is capped at 31 runes.
func sheetTitle(base, userID string) string {
	if userID == "" {
		return base
	}
	title := []rune(sheetTitleReplacer.Replace(base + " " + userID))
	if len(title) > maxSheetTitle {
		title = title[:maxSheetTitle]
	}
	return string(title)
}

var sheetTitleReplacer = strings.NewReplacer(
	"[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", `\`, "_", "'", "_",
)

// Report is the data written to a spreadsheet for one user.
type Report struct {
	UserID   string
	Holdings []domain.Holding
	Summary  portfolio.Summary
	At       time.Time
}

// HoldingsSheet, SummarySheet and HistorySheet name the report user's sheets, so
// several users can share one spreadsheet.
func (r Report) HoldingsSheet() string { return sheetTitle(holdingsSheet, r.UserID) }
func (r Report) SummarySheet() string  { return sheetTitle(summarySheet, r.UserID) }
func (r Report) HistorySheet() string  { return sheetTitle(historySheet, r.UserID) }

// SheetWriter writes a report to a spreadsheet destination.
// The user's HOLDINGS and SUMMARY are rewritten; their HISTORY gains one row per report.
type SheetWriter interface {
	Write(ctx context.Context, r Report) error
}

// Service builds reports and delegates writing to a SheetWriter.
type Service struct {
	writer SheetWriter
	now    func() time.Time
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	if writer == nil {
		panic("export.NewService: writer is nil")
	}
	return &Service{writer: writer, now: time.Now}
}

// Export summarizes holdings and writes them out.
// Implements worker.AfterRefreshHook.
func (s *Service) Export(ctx context.Context, userID string, holdings []domain.Holding) error {
	report := Report{
		UserID:   userID,
		Holdings: holdings,
		Summary:  portfolio.Summarize(holdings),
		At:       s.now().UTC(),
	}
	if err := s.writer.Write(ctx, report); err != nil {
		return fmt.Errorf("exporting holdings for %s: %w", userID, err)
	}
	return nil
}

// buildHoldings builds the HOLDINGS sheet data.
// Columns: ID | Kind | Name | Symbol | Quantity | Unit Cost | Acquired | Price | Value | Gain | Gain % | Currency | Priced At
func buildHoldings(holdings []domain.Holding) [][]any {
	data := make([][]any, 0, len(holdings)+1)
	data = append(data, []any{
		"ID", "Kind", "Name", "Symbol", "Quantity", "Unit Cost", "Acquired",
		"Price", "Value", "Gain", "Gain %", "Currency", "Priced At",
	})

	for _, h := range holdings {
		row := []any{
			h.ID, string(h.Kind), h.Name, h.Symbol,
			toFloat(h.Quantity), toFloat(h.UnitCost), h.AcquiredOn.String(),
			nil, nil, nil, nil, "", "",
		}
		if v := h.Valuation; v != nil {
			row[7] = toFloat(v.CurrentUnitPrice)
			row[8] = toFloat(v.CurrentTotalValue)
			row[9] = toFloat(v.UnallocatedGain)
			row[10] = toFloat(v.UnallocatedGainPercent)
			row[11] = v.Currency
			row[12] = v.PricedAt.UTC().Format(time.RFC3339)
		}
		data = append(data, row)
	}

	return data
}

// buildSummary builds the SUMMARY sheet data: one row per kind, then the total.
// Columns: Kind | Holdings | Invested | Current Value | Gain | Gain %
func buildSummary(s portfolio.Summary) [][]any {
	data := [][]any{
		{"Kind", "Holdings", "Invested", "Current Value", "Gain", "Gain %"},
	}
	for _, k := range s.ByKind {
		data = append(data, totalsRow(string(k.Kind), k.Totals))
	}
	data = append(data, totalsRow("Total", s.Totals))
	return data
}

func totalsRow(label string, t portfolio.Totals) []any {
	return []any{
		label, t.Count,
		toFloat(t.Invested), toFloat(t.CurrentValue), toFloat(t.Gain), toFloat(t.GainPercent),
	}
}

var historyHeader = []any{"Date", "Invested", "Current Value", "Gain", "Gain %", "Holdings", "Priced"}

// buildHistoryRow builds the single HISTORY row appended for a report.
func buildHistoryRow(r Report) []any {
	return []any{
		r.At.UTC().Format("2006-01-02 15:04"),
		toFloat(r.Summary.Invested),
		toFloat(r.Summary.CurrentValue),
		toFloat(r.Summary.Gain),
		toFloat(r.Summary.GainPercent),
		r.Summary.Count,
		r.Summary.Priced,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
