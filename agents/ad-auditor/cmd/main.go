package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	adauditor "adindex/agents/ad-auditor"
	"adindex/shared/config"
	"adindex/shared/fetch"
	"adindex/shared/scheduler"
)

const usage = `Ad Auditor - Responsible Advertising Index pipeline

Usage:
  ad-auditor url <URL> [brand] [campaign] [--force]
  ad-auditor batch <catalog.csv> [--start N] [--count N]
  ad-auditor export
  ad-auditor watch

Commands:
  url     Download and analyze a single ad URL
  batch   Process an ordered CSV catalog (url column required)
  export  Export all analyzed ads to a CSV file
  watch   Run the configured catalog on the cron schedule

Storage layout:
  <storage.dir>/<ad_id>/  media file + metadata.json (includes analysis)
  <storage.dir>/batch_summary_<ts>.json  per-run audit log`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	auditor := adauditor.NewAuditor(cfg)

	switch os.Args[1] {
	case "url":
		runURL(ctx, auditor, os.Args[2:])
	case "batch":
		runBatch(ctx, auditor, cfg, os.Args[2:])
	case "export":
		runExport(auditor)
	case "watch":
		s := scheduler.New(cfg, auditor)
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Scheduler failed: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}
}

func runURL(ctx context.Context, auditor *adauditor.Auditor, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: ad-auditor url <URL> [brand] [campaign] [--force]")
	}

	url := args[0]
	brand, campaign := "", ""
	force := false
	var positional []string
	for _, arg := range args[1:] {
		if arg == "--force" {
			force = true
			continue
		}
		positional = append(positional, arg)
	}
	if len(positional) > 0 {
		brand = positional[0]
	}
	if len(positional) > 1 {
		campaign = positional[1]
	}

	if err := auditor.Initialize(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	record, err := auditor.ProcessURL(ctx, url, brand, campaign, force)
	if err != nil {
		var manual *fetch.ManualDownloadError
		if errors.As(err, &manual) {
			fmt.Println(manual.Instructions())
			return
		}
		log.Fatalf("Failed to process %s: %v", url, err)
	}

	fmt.Printf("✅ Complete! Results stored in: %s\n", record.ID)
	if record.Analysis != nil {
		fmt.Printf("   Overall: %.1f/100 (%s)\n", record.Analysis.OverallScore, record.Analysis.DetectedLanguage)
	}
}

func runBatch(ctx context.Context, auditor *adauditor.Auditor, cfg *config.Config, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: ad-auditor batch <catalog.csv> [--start N] [--count N]")
	}

	catalogPath := args[0]
	start, count := 0, 0
	for i := 1; i < len(args)-1; i++ {
		switch args[i] {
		case "--start":
			start = mustAtoi(args[i+1], "--start")
		case "--count":
			count = mustAtoi(args[i+1], "--count")
		}
	}

	if err := auditor.Initialize(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	summary, err := auditor.ProcessCatalog(ctx, catalogPath, start, count)
	if err != nil {
		log.Fatalf("Batch failed: %v", err)
	}
	fmt.Printf("✅ Batch complete! Successful: %d/%d\n", summary.Succeeded(), len(summary.Entries))
}

func runExport(auditor *adauditor.Auditor) {
	if err := auditor.Initialize(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	path, count, err := auditor.Export()
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if count == 0 {
		fmt.Println("No analyzed ads found")
		return
	}
	fmt.Printf("✅ Exported %d ads to: %s\n", count, path)
}

func mustAtoi(s, flag string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid value for %s: %s", flag, s)
	}
	return n
}
