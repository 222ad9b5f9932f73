package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrJamesThe3rd/rfmseg/internal/report"
)

func runWorkbook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("workbook", flag.ExitOnError)
	flags := registerAnalysisFlags(fs)
	output := fs.String("o", "excel/Customer_Segmentation_Analysis.xlsx", "output workbook path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	txs, result, err := flags.analyze(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	err = report.SaveWorkbook(*output, report.Data{
		AnalysisDate:       result.AnalysisDate,
		ChurnThresholdDays: *flags.threshold,
		Portfolio:          result.Portfolio,
		Segments:           result.Segments,
		Customers:          result.Customers,
		Transactions:       txs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Excel workbook created: %s\n", *output)
	fmt.Println("Sheets created:")

	for i, name := range []string{
		report.SheetExecutiveSummary,
		report.SheetSegmentAnalysis,
		report.SheetRFMData,
		report.SheetTopCustomers,
		report.SheetAtRiskCustomers,
		report.SheetMonthlyTrends,
		report.SheetCategoryAnalysis,
	} {
		fmt.Printf("  %d. %s\n", i+1, name)
	}

	return nil
}
