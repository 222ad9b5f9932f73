package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/MrJamesThe3rd/rfmseg/internal/generator"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
)

func runGenerate(ctx context.Context, args []string) error {
	def := generator.DefaultConfig()

	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	output := fs.String("o", "data/ecommerce_transactions.csv", "output CSV path")
	customers := fs.Int("customers", def.Customers, "number of customers")
	transactions := fs.Int("transactions", def.Transactions, "number of transactions")
	seed := fs.Uint64("seed", def.Seed, "random seed")
	start := fs.String("start", def.Start.Format(time.DateOnly), "first purchase day (YYYY-MM-DD)")
	end := fs.String("end", def.End.Format(time.DateOnly), "last purchase day (YYYY-MM-DD)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := generator.Config{
		Customers:    *customers,
		Transactions: *transactions,
		Seed:         *seed,
	}

	var err error
	if cfg.Start, err = time.Parse(time.DateOnly, *start); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if cfg.End, err = time.Parse(time.DateOnly, *end); err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	bar := progressbar.Default(int64(cfg.Transactions), "generating")

	txs, err := generator.Generate(ctx, cfg, func(done int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return err
	}

	_ = bar.Finish()

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := report.WriteTransactionsCSV(f, txs); err != nil {
		return fmt.Errorf("writing transactions: %w", err)
	}

	fmt.Printf("Generated %d transactions for %d customers\n", len(txs), cfg.Customers)

	if len(txs) > 0 {
		fmt.Printf("Date range: %s to %s\n", txs[0].Date.Format(time.DateOnly), txs[len(txs)-1].Date.Format(time.DateOnly))
	}

	fmt.Printf("Saved to: %s\n", *output)

	return f.Close()
}
