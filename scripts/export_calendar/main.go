package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bookwise/internal/calendar"
	"bookwise/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		dbPath    = flag.String("db", "./data/engine.db", "path to sqlite db")
		companyID = flag.Int64("company", 1, "company id")
		fromStr   = flag.String("from", "", "start date YYYY-MM-DD (default: today)")
		days      = flag.Int("days", 7, "number of days to export")
		outDir    = flag.String("out", "exports", "output directory for xlsx files")
	)
	flag.Parse()

	from := time.Now().Truncate(24 * time.Hour)
	if *fromStr != "" {
		parsed, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			return fmt.Errorf("parse from date: %w", err)
		}
		from = parsed
	}
	to := from.AddDate(0, 0, *days)

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	builder := calendar.NewBuilder(db, nil, &logger)
	exporter := calendar.NewExporter(db, builder, *outDir, &logger)

	path, err := exporter.ExportCalendar(ctx, *companyID, from, to)
	if err != nil {
		return fmt.Errorf("export calendar: %w", err)
	}

	fmt.Printf("done: %s\n", path)
	return nil
}
