package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"offerlens/internal/config"
	"offerlens/internal/logger"
	"offerlens/internal/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scraper: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("scraper", flag.ContinueOnError)
	flags.SetOutput(stderr)
	out := flags.String("out", "offers.json", "Where to write the offers feed")
	pages := flags.Int("pages", 0, "Maximum pages to fetch (0 uses SCRAPER_MAX_PAGES)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *pages > 0 {
		cfg.ScraperMaxPages = *pages
	}

	logs := logger.NewWriter(stderr)

	s := scraper.New(scraper.Options{
		SourceURL: cfg.ScraperSourceURL,
		UserAgent: cfg.UserAgent,
		MaxPages:  cfg.ScraperMaxPages,
		Interval:  cfg.ScraperRate,
		Timeout:   cfg.FeedTimeout,
	}, logs)

	offers, err := s.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	if err := scraper.WriteFeed(*out, offers); err != nil {
		return err
	}
	logs.Info("Wrote %d offers to %s", len(offers), *out)
	return nil
}
