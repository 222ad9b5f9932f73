package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

const (
	SheetExecutiveSummary = "Executive Summary"
	SheetSegmentAnalysis  = "Segment Analysis"
	SheetRFMData          = "RFM Data"
	SheetTopCustomers     = "Top 100 Customers"
	SheetAtRiskCustomers  = "At-Risk Customers"
	SheetMonthlyTrends    = "Monthly Trends"
	SheetCategoryAnalysis = "Category Analysis"

	// ContentType is the MIME type of a written workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	topCustomers = 100
)

// Data is everything the workbook is built from.
type Data struct {
	AnalysisDate       time.Time
	ChurnThresholdDays int
	Portfolio          rfm.Portfolio
	Segments           []rfm.SegmentSummary
	Customers          []rfm.ScoredCustomer
	Transactions       []*transaction.Transaction
}

type styles struct {
	header   int
	currency int
	percent  int
}

type workbook struct {
	f      *excelize.File
	styles styles
}

// Workbook builds the seven-sheet analysis workbook.
func Workbook(data Data) (*excelize.File, error) {
	f := excelize.NewFile()

	wb := &workbook{f: f}
	if err := wb.newStyles(); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetExecutiveSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming first sheet: %w", err)
	}

	builders := []struct {
		name  string
		build func(string, Data) error
	}{
		{SheetExecutiveSummary, wb.executiveSummary},
		{SheetSegmentAnalysis, wb.segmentAnalysis},
		{SheetRFMData, wb.rfmData},
		{SheetTopCustomers, wb.topCustomers},
		{SheetAtRiskCustomers, wb.atRiskCustomers},
		{SheetMonthlyTrends, wb.breakdown("Month", transaction.MonthlyTrends)},
		{SheetCategoryAnalysis, wb.breakdown("Category", transaction.CategoryBreakdown)},
	}

	for i, b := range builders {
		if i > 0 {
			if _, err := f.NewSheet(b.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("creating sheet %q: %w", b.name, err)
			}
		}

		if err := b.build(b.name, data); err != nil {
			f.Close()
			return nil, fmt.Errorf("building sheet %q: %w", b.name, err)
		}

		if err := wb.layout(b.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("formatting sheet %q: %w", b.name, err)
		}
	}

	f.SetActiveSheet(0)

	return f, nil
}

// WriteWorkbook builds the workbook and writes it to w.
func WriteWorkbook(w io.Writer, data Data) error {
	f, err := Workbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

// SaveWorkbook builds the workbook and saves it at path.
func SaveWorkbook(path string, data Data) error {
	f, err := Workbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}

	return nil
}

func (wb *workbook) newStyles() error {
	border := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "top", "right", "bottom"} {
		border = append(border, excelize.Border{Type: side, Color: "000000", Style: 1})
	}

	header, err := wb.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border,
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	currencyFmt := "$#,##0.00"

	currency, err := wb.f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return fmt.Errorf("creating currency style: %w", err)
	}

	percent, err := wb.f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return fmt.Errorf("creating percent style: %w", err)
	}

	wb.styles = styles{header: header, currency: currency, percent: percent}

	return nil
}

// layout applies the column widths shared by every sheet.
func (wb *workbook) layout(sheet string) error {
	if err := wb.f.SetColWidth(sheet, "A", "A", 25); err != nil {
		return err
	}

	return wb.f.SetColWidth(sheet, "B", "Z", 18)
}

// table writes a styled header row followed by rows, starting at A1.
func (wb *workbook) table(sheet string, header []any, rows [][]any) error {
	if err := wb.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}

	if err := wb.f.SetCellStyle(sheet, "A1", last, wb.styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := wb.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

// styleColumn applies style to data rows 2..n+1 of column col (1-based).
func (wb *workbook) styleColumn(sheet string, col, n, style int) error {
	if n == 0 {
		return nil
	}

	from, err := excelize.CoordinatesToCellName(col, 2)
	if err != nil {
		return err
	}

	to, err := excelize.CoordinatesToCellName(col, n+1)
	if err != nil {
		return err
	}

	return wb.f.SetCellStyle(sheet, from, to, style)
}

func (wb *workbook) executiveSummary(sheet string, d Data) error {
	p := d.Portfolio

	threshold := d.ChurnThresholdDays
	if threshold <= 0 {
		threshold = rfm.DefaultChurnThresholdDays
	}

	rows := [][]any{
		{"Total Customers", p.TotalCustomers},
		{"Total Transactions", p.TotalTransactions},
		{"Total Revenue", p.TotalRevenue.InexactFloat64()},
		{"Average Customer Value", p.AvgCustomerValue.InexactFloat64()},
		{"High-Value Customers (Champions + Loyal)", p.HighValueCustomers},
		{"At-Risk Customers", p.AtRiskCustomers},
		{fmt.Sprintf("Churn Rate (>%d days)", threshold), p.ChurnRate},
		{"Average Recency (days)", p.AvgRecency},
		{"Average Frequency (orders)", p.AvgFrequency},
		{"Average Monetary ($)", p.AvgMonetary.InexactFloat64()},
	}

	if !d.AnalysisDate.IsZero() {
		rows = append(rows, []any{"Analysis Date", d.AnalysisDate.Format(time.DateOnly)})
	}

	if err := wb.table(sheet, []any{"Metric", "Value"}, rows); err != nil {
		return err
	}

	cellStyles := map[string]int{
		"B4":  wb.styles.currency,
		"B5":  wb.styles.currency,
		"B8":  wb.styles.percent,
		"B11": wb.styles.currency,
	}

	for cell, style := range cellStyles {
		if err := wb.f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}

	return nil
}

func (wb *workbook) segmentAnalysis(sheet string, d Data) error {
	rows := make([][]any, len(d.Segments))
	for i, s := range d.Segments {
		rows[i] = []any{
			string(s.Segment),
			s.CustomerCount,
			s.AvgRecency,
			s.AvgFrequency,
			s.TotalRevenue.InexactFloat64(),
			s.AvgRevenuePerCustomer.InexactFloat64(),
			s.Percentage,
		}
	}

	header := []any{
		"Segment", "Customer_Count", "Avg_Recency", "Avg_Frequency",
		"Total_Revenue", "Avg_Revenue_Per_Customer", "Percentage",
	}

	if err := wb.table(sheet, header, rows); err != nil {
		return err
	}

	for _, col := range []int{5, 6} {
		if err := wb.styleColumn(sheet, col, len(rows), wb.styles.currency); err != nil {
			return err
		}
	}

	return nil
}

func (wb *workbook) customerTable(sheet string, customers []rfm.ScoredCustomer) error {
	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{
			c.CustomerID, c.Recency, c.Frequency, c.Monetary.InexactFloat64(),
			c.RScore, c.FScore, c.MScore, c.RFMScore, string(c.Segment),
		}
	}

	header := make([]any, len(customerHeader))
	for i, h := range customerHeader {
		header[i] = h
	}

	if err := wb.table(sheet, header, rows); err != nil {
		return err
	}

	return wb.styleColumn(sheet, 4, len(rows), wb.styles.currency)
}

func (wb *workbook) rfmData(sheet string, d Data) error {
	return wb.customerTable(sheet, d.Customers)
}

func (wb *workbook) topCustomers(sheet string, d Data) error {
	top := byMonetaryDesc(d.Customers)
	if len(top) > topCustomers {
		top = top[:topCustomers]
	}

	rows := make([][]any, len(top))
	for i, c := range top {
		rows[i] = []any{
			c.CustomerID, string(c.Segment), c.Recency, c.Frequency,
			c.Monetary.InexactFloat64(), c.RFMScore,
		}
	}

	header := []any{"customer_id", "segment", "recency", "frequency", "monetary", "rfm_score"}

	if err := wb.table(sheet, header, rows); err != nil {
		return err
	}

	return wb.styleColumn(sheet, 5, len(rows), wb.styles.currency)
}

func (wb *workbook) atRiskCustomers(sheet string, d Data) error {
	var retention []rfm.ScoredCustomer
	for _, c := range d.Customers {
		if c.Segment.NeedsRetention() {
			retention = append(retention, c)
		}
	}

	return wb.customerTable(sheet, byMonetaryDesc(retention))
}

func (wb *workbook) breakdown(label string, group func([]*transaction.Transaction) []transaction.Breakdown) func(string, Data) error {
	return func(sheet string, d Data) error {
		groups := group(d.Transactions)

		rows := make([][]any, len(groups))
		for i, g := range groups {
			rows[i] = []any{g.Key, g.Transactions, g.UniqueCustomers, g.Revenue.InexactFloat64()}
		}

		if err := wb.table(sheet, []any{label, "Transactions", "Unique Customers", "Revenue"}, rows); err != nil {
			return err
		}

		return wb.styleColumn(sheet, 4, len(rows), wb.styles.currency)
	}
}

func byMonetaryDesc(customers []rfm.ScoredCustomer) []rfm.ScoredCustomer {
	out := slices.Clone(customers)

	slices.SortStableFunc(out, func(a, b rfm.ScoredCustomer) int {
		return cmp.Or(b.Monetary.Cmp(a.Monetary), cmp.Compare(a.CustomerID, b.CustomerID))
	})

	return out
}
