package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/harshdev/amazon-gpu-scraper/internal/config"
	"github.com/harshdev/amazon-gpu-scraper/internal/models"
	"github.com/harshdev/amazon-gpu-scraper/internal/store"
	"github.com/harshdev/amazon-gpu-scraper/pkg/logger"
)

var csvHeader = []string{
	"identity_key", "key_type", "asin", "query", "page", "index",
	"image_file", "title", "price", "rating", "reviews",
	"source_tag", "created_at", "updated_at",
}

func main() {
	var (
		out   = flag.String("out", "gpu_laptops.csv", "output CSV path, - for stdout")
		limit = flag.Int("limit", 1000, "maximum records to export")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	records, err := db.List(ctx, *limit)
	if err != nil {
		log.Error("failed to list records", "error", err)
		os.Exit(1)
	}

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Error("failed to create output file", "path", *out, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := writeCSV(w, records); err != nil {
		log.Error("failed to write csv", "error", err)
		os.Exit(1)
	}

	log.Info("export complete", "records", len(records), "path", *out)
}

func writeCSV(w *os.File, records []*models.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.IdentityKey,
			string(r.KeyType),
			r.ASIN,
			r.Query,
			strconv.Itoa(r.Page),
			strconv.Itoa(r.Index),
			r.ImageFile,
			r.Title,
			r.Price,
			r.Rating,
			r.Reviews,
			r.SourceTag,
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.IdentityKey, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
