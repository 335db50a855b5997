package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/investracker/tracker/internal/domain"
)

type mockWriter struct {
	reports []Report
	err     error
}

func (m *mockWriter) Write(_ context.Context, r Report) error {
	m.reports = append(m.reports, r)
	return m.err
}

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func testHoldings() []domain.Holding {
	stock := domain.Holding{
		ID:         "rel",
		Kind:       domain.KindEquity,
		Name:       "Reliance",
		Symbol:     "RELIANCE",
		Quantity:   decimal.NewFromInt(10),
		UnitCost:   decimal.NewFromInt(2500),
		AcquiredOn: domain.NewDate(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)),
	}
	v := stock.Priced(decimal.NewFromInt(2600), "INR", at)
	stock.Valuation = &v

	cash := domain.Holding{
		ID:         "fd",
		Kind:       domain.KindCash,
		Name:       "Fixed deposit",
		Quantity:   decimal.NewFromInt(1),
		UnitCost:   decimal.NewFromInt(10000),
		AcquiredOn: domain.NewDate(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	return []domain.Holding{stock, cash}
}

func TestExportBuildsReport(t *testing.T) {
	writer := &mockWriter{}
	svc := NewService(writer)
	svc.now = func() time.Time { return at }

	if err := svc.Export(context.Background(), "alice", testHoldings()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(writer.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(writer.reports))
	}
	r := writer.reports[0]
	if r.UserID != "alice" || !r.At.Equal(at) {
		t.Errorf("report user/at = %s/%v", r.UserID, r.At)
	}
	if !r.Summary.CurrentValue.Equal(decimal.NewFromInt(36000)) {
		t.Errorf("current value = %s, want 36000", r.Summary.CurrentValue)
	}
}

func TestExportWrapsWriterError(t *testing.T) {
	writer := &mockWriter{err: errors.New("quota exceeded")}
	svc := NewService(writer)

	err := svc.Export(context.Background(), "alice", nil)
	if !errors.Is(err, writer.err) {
		t.Errorf("error = %v, want wrapped writer error", err)
	}
}

func TestBuildHoldings(t *testing.T) {
	rows := buildHoldings(testHoldings())

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if len(rows[0]) != 13 {
		t.Errorf("header columns = %d, want 13", len(rows[0]))
	}
	stock := rows[1]
	if stock[0] != "rel" || stock[1] != "stocks" || stock[6] != "2023-01-02" {
		t.Errorf("stock row = %v", stock)
	}
	if stock[8] != 26000.0 || stock[10] != 4.0 {
		t.Errorf("stock value/gain%% = %v/%v, want 26000/4", stock[8], stock[10])
	}
	cash := rows[2]
	if cash[7] != nil || cash[11] != "" {
		t.Errorf("unpriced row should leave valuation blank: %v", cash)
	}
}

func TestBuildSummary(t *testing.T) {
	rows := buildSummary(Report{}.Summary)
	if len(rows) != 2 || rows[1][0] != "Total" {
		t.Errorf("empty summary rows = %v, want header + total", rows)
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.xlsx")
	writer := NewXLSXWriter(path)
	svc := NewService(writer)
	svc.now = func() time.Time { return at }
	ctx := context.Background()

	if err := svc.Export(ctx, "alice", testHoldings()); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if err := svc.Export(ctx, "alice", testHoldings()[:1]); err != nil {
		t.Fatalf("second export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(defaultSheet); idx >= 0 {
		t.Error("default sheet was not removed")
	}

	holdings, err := f.GetRows("HOLDINGS alice")
	if err != nil {
		t.Fatalf("GetRows holdings: %v", err)
	}
	if len(holdings) != 2 {
		t.Errorf("holdings rows = %d, want header + 1 after rewrite", len(holdings))
	}
	if holdings[1][0] != "rel" {
		t.Errorf("holdings[1][0] = %q, want rel", holdings[1][0])
	}

	history, err := f.GetRows("HISTORY alice")
	if err != nil {
		t.Fatalf("GetRows history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history rows = %d, want header + 2", len(history))
	}
	if history[0][0] != "Date" || history[1][0] != "2024-05-01 09:30" {
		t.Errorf("history = %v", history)
	}

	summary, err := f.GetRows("SUMMARY alice")
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	if last := summary[len(summary)-1]; last[0] != "Total" {
		t.Errorf("summary last row = %v, want Total", last)
	}
}

func TestXLSXWriterKeepsUsersApart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.xlsx")
	svc := NewService(NewXLSXWriter(path))
	svc.now = func() time.Time { return at }
	ctx := context.Background()

	if err := svc.Export(ctx, "alice", testHoldings()); err != nil {
		t.Fatalf("alice export: %v", err)
	}
	if err := svc.Export(ctx, "bob", testHoldings()[1:]); err != nil {
		t.Fatalf("bob export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	tests := []struct {
		sheet   string
		rows    int
		firstID string
	}{
		{"HOLDINGS alice", 3, "rel"},
		{"HOLDINGS bob", 2, "fd"},
		{"HISTORY alice", 2, "2024-05-01 09:30"},
		{"HISTORY bob", 2, "2024-05-01 09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			rows, err := f.GetRows(tt.sheet)
			if err != nil {
				t.Fatalf("GetRows: %v", err)
			}
			if len(rows) != tt.rows {
				t.Fatalf("rows = %d, want %d", len(rows), tt.rows)
			}
			if rows[1][0] != tt.firstID {
				t.Errorf("rows[1][0] = %q, want %q", rows[1][0], tt.firstID)
			}
		})
	}

	aliceHistory, _ := f.GetRows("HISTORY alice")
	bobHistory, _ := f.GetRows("HISTORY bob")
	if aliceHistory[1][5] != "2" || bobHistory[1][5] != "1" {
		t.Errorf("history holdings counts = %s/%s, want 2/1", aliceHistory[1][5], bobHistory[1][5])
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		base, user, want string
	}{
		{"HOLDINGS", "", "HOLDINGS"},
		{"HOLDINGS", "alice", "HOLDINGS alice"},
		{"HISTORY", "a/b:c'd", "HISTORY a_b_c_d"},
		{"HOLDINGS", "a-very-long-user-identifier-value", "HOLDINGS a-very-long-user-ident"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.base, tt.user); got != tt.want {
			t.Errorf("sheetTitle(%q, %q) = %q, want %q", tt.base, tt.user, got, tt.want)
		}
	}
}
