package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harshdev/amazon-gpu-scraper/internal/browser"
	"github.com/harshdev/amazon-gpu-scraper/internal/capture"
	"github.com/harshdev/amazon-gpu-scraper/internal/config"
	"github.com/harshdev/amazon-gpu-scraper/internal/extract"
	"github.com/harshdev/amazon-gpu-scraper/internal/ocr"
	"github.com/harshdev/amazon-gpu-scraper/internal/pipeline"
	"github.com/harshdev/amazon-gpu-scraper/internal/seen"
	"github.com/harshdev/amazon-gpu-scraper/internal/store"
	"github.com/harshdev/amazon-gpu-scraper/pkg/logger"
)

func main() {
	var (
		query    = flag.String("query", "", "search query (overrides SCRAPER_QUERY)")
		maxPages = flag.Int("pages", 0, "maximum pages to scrape (overrides SCRAPER_MAX_PAGES)")
		cards    = flag.Int("cards-per-page", 0, "cards captured per page (overrides SCRAPER_CARDS_PER_PAGE)")
		target   = flag.Int("target", 0, "stop after this many stored records (overrides SCRAPER_TARGET_COUNT)")
		headless = flag.Bool("headless", true, "run the browser headless")
		outDir   = flag.String("out-dir", "", "directory for card screenshots (overrides SCRAPER_OUTPUT_DIR)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *query != "" {
		cfg.Scraper.Query = *query
	}
	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}
	if *cards > 0 {
		cfg.Scraper.CardsPerPage = *cards
	}
	if *target > 0 {
		cfg.Scraper.TargetCount = *target
	}
	if *outDir != "" {
		cfg.Scraper.OutputDir = *outDir
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			cfg.Browser.Headless = *headless
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting gpu card scraper",
		"query", cfg.Scraper.Query,
		"pages", cfg.Scraper.MaxPages,
		"target", cfg.Scraper.TargetCount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	// Everything that can be misconfigured fails here, before the first
	// card is touched.
	engine, err := ocr.NewEngine(cfg.OCR.Languages, cfg.OCR.TessdataPrefix, log)
	if err != nil {
		log.Error("ocr engine unavailable", "error", err)
		os.Exit(1)
	}

	db, err := store.New(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var seenCache pipeline.SeenCache
	if cfg.Redis.Addr != "" {
		cache, err := seen.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SeenTTL, log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		seenCache = cache
	}

	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		log.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	collector, err := capture.NewCollector(b, capture.Options{
		Query:        cfg.Scraper.Query,
		Domain:       cfg.Scraper.Domain,
		MaxPages:     cfg.Scraper.MaxPages,
		CardsPerPage: cfg.Scraper.CardsPerPage,
		OutputDir:    cfg.Scraper.OutputDir,
		PageDelay:    cfg.Scraper.PageDelay,
	}, log)
	if err != nil {
		log.Error("failed to create collector", "error", err)
		os.Exit(1)
	}
	defer collector.Close()

	p := pipeline.New(pipeline.Options{
		Recognizer: engine,
		Store:      db,
		Seen:       seenCache,
		Extract: extract.Options{
			TitleScanWindow: cfg.Extract.TitleScanWindow,
			MinTitleLength:  cfg.Extract.MinTitleLength,
		},
		TargetCount: cfg.Scraper.TargetCount,
		Logger:      log,
	})

	result, err := p.Run(ctx, collector)
	if err != nil && err != context.Canceled {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}

	log.Info("run summary",
		"run_id", result.RunID,
		"cards", result.Cards,
		"stored", len(result.Stored),
		"outcomes", outcomeCounts(result))

	for i, rec := range result.Stored {
		fmt.Printf("%2d. %s | %s | %s | %s\n", i+1, rec.IdentityKey, truncate(rec.Title, 70), rec.Price, rec.Rating)
	}
	fmt.Printf("Total GPU laptops stored: %d\n", len(result.Stored))
}

func outcomeCounts(result *pipeline.RunResult) map[string]int {
	out := make(map[string]int, len(result.Outcomes))
	for k, v := range result.Outcomes {
		out[string(k)] = v
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
