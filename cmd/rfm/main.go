package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

const usage = `Usage: rfm <command> [flags]

Commands:
  generate   write a synthetic transaction history as CSV
  analyze    segment a transaction CSV and write the customer and segment tables
  workbook   segment a transaction CSV and write the Excel workbook

Run "rfm <command> -h" for the flags of a command.
`

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	commands := map[string]func(context.Context, []string) error{
		"generate": runGenerate,
		"analyze":  runAnalyze,
		"workbook": runWorkbook,
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := cmd(ctx, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
