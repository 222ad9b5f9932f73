package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/rfmseg/internal/config"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

// analysisFlags are shared by the commands that segment a CSV.
type analysisFlags struct {
	input     *string
	format    *string
	threshold *int
	workers   *int
}

func registerAnalysisFlags(fs *flag.FlagSet) analysisFlags {
	threshold, workers := rfm.DefaultChurnThresholdDays, 4

	if cfg, err := config.Load(); err == nil {
		threshold, workers = cfg.Analysis.ChurnThresholdDays, cfg.Analysis.Workers
	}

	return analysisFlags{
		input:     fs.String("i", "data/ecommerce_transactions.csv", "transaction CSV"),
		format:    fs.String("format", string(importer.FormatAuto), "CSV layout: auto, ecommerce or orders"),
		threshold: fs.Int("threshold", threshold, "churn threshold in days"),
		workers:   fs.Int("workers", workers, "aggregation workers"),
	}
}

func loadTransactions(path string, format importer.Format) ([]*transaction.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	params, err := importer.NewService().Import(format, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return transaction.FromParams(params), nil
}

func (a analysisFlags) analyze(ctx context.Context) ([]*transaction.Transaction, *rfm.Result, error) {
	txs, err := loadTransactions(*a.input, importer.Format(*a.format))
	if err != nil {
		return nil, nil, err
	}

	result, err := rfm.Analyze(ctx, transaction.ToRFM(txs), rfm.Options{
		ChurnThresholdDays: *a.threshold,
		Workers:            *a.workers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("analyzing %d transactions: %w", len(txs), err)
	}

	return txs, result, nil
}

func runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	flags := registerAnalysisFlags(fs)
	outDir := fs.String("o", "data", "output directory")
	stamp := fs.Bool("timestamp", false, "add a timestamp to the output file names")

	if err := fs.Parse(args); err != nil {
		return err
	}

	txs, result, err := flags.analyze(ctx)
	if err != nil {
		return err
	}

	customers := make(map[string]struct{})
	first, last := txs[0].Date, txs[0].Date

	for _, t := range txs {
		customers[t.CustomerID] = struct{}{}

		if t.Date.Before(first) {
			first = t.Date
		}

		if t.Date.After(last) {
			last = t.Date
		}
	}

	fmt.Printf("Loaded %d transactions\n", len(txs))
	fmt.Printf("Date range: %s to %s\n", first.Format(time.DateTime), last.Format(time.DateTime))
	fmt.Printf("Unique customers: %d\n", len(customers))
	fmt.Printf("Analysis date: %s\n\n", result.AnalysisDate.Format(time.DateOnly))

	metrics := make([]rfm.CustomerMetrics, len(result.Customers))
	for i, c := range result.Customers {
		metrics[i] = c.CustomerMetrics
	}

	fmt.Println(heading.Render("RFM STATISTICS"))
	fmt.Println(describeTable(rfm.Describe(metrics)))

	fmt.Println(heading.Render("CUSTOMER SEGMENT ANALYSIS"))
	fmt.Println(segmentTable(result.Segments))

	fmt.Println(heading.Render("KEY BUSINESS METRICS"))
	fmt.Println(report.GenerateSummary(result.Portfolio, *flags.threshold))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	now := time.Now()

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"rfm_analysis", func(w io.Writer) error { return report.WriteCustomersCSV(w, result.Customers) }},
		{"segment_summary", func(w io.Writer) error { return report.WriteSegmentsCSV(w, result.Segments) }},
	}

	for _, out := range outputs {
		path := filepath.Join(*outDir, out.name+".csv")
		if *stamp {
			path = report.TimestampedFilename(*outDir, out.name, "csv", now)
		}

		if err := writeFile(path, out.write); err != nil {
			return err
		}

		fmt.Printf("Saved %s\n", path)
	}

	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}

var heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4472C4")).MarginTop(1)

func describeTable(d rfm.Description) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

	row := func(name string, s rfm.Stats) []string {
		return []string{name, strconv.Itoa(s.Count), f(s.Mean), f(s.Std), f(s.Min), f(s.P25), f(s.P50), f(s.P75), f(s.Max)}
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "count", "mean", "std", "min", "25%", "50%", "75%", "max").
		Rows(
			row("recency", d.Recency),
			row("frequency", d.Frequency),
			row("monetary", d.Monetary),
		).
		String()
}

func segmentTable(segments []rfm.SegmentSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Segment", "Customers", "Avg Recency", "Avg Frequency", "Total Revenue", "Avg Revenue", "%")

	for _, s := range segments {
		t.Row(
			string(s.Segment),
			strconv.Itoa(s.CustomerCount),
			strconv.FormatFloat(s.AvgRecency, 'f', 1, 64),
			strconv.FormatFloat(s.AvgFrequency, 'f', 2, 64),
			s.TotalRevenue.StringFixed(2),
			s.AvgRevenuePerCustomer.StringFixed(2),
			strconv.FormatFloat(s.Percentage, 'f', 2, 64),
		)
	}

	return t.String()
}
