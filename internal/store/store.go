package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harshdev/amazon-gpu-scraper/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLife
	}
	if cfg.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdle
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the records table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS gpu_laptops (
			identity_key TEXT PRIMARY KEY,
			key_type     TEXT NOT NULL,
			asin         TEXT NOT NULL DEFAULT '',
			query        TEXT NOT NULL DEFAULT '',
			page         INT  NOT NULL DEFAULT 0,
			card_index   INT  NOT NULL DEFAULT 0,
			image_file   TEXT NOT NULL DEFAULT '',
			image_path   TEXT NOT NULL DEFAULT '',
			title        TEXT NOT NULL DEFAULT '',
			price        TEXT NOT NULL DEFAULT '',
			rating       TEXT NOT NULL DEFAULT '',
			reviews      TEXT NOT NULL DEFAULT '',
			raw_text     TEXT NOT NULL DEFAULT '',
			source_tag   TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gpu_laptops_asin ON gpu_laptops (asin)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Upsert inserts or refreshes the record for its identity key in a single
// conditional statement: created_at is written once on first insert and
// never touched again, updated_at is refreshed on every write. The record's
// timestamps are populated from the database on return.
func (s *Store) Upsert(ctx context.Context, r *models.Record) error {
	query := `
		INSERT INTO gpu_laptops (
			identity_key, key_type, asin, query, page, card_index,
			image_file, image_path, title, price, rating, reviews,
			raw_text, source_tag
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (identity_key) DO UPDATE SET
			key_type   = EXCLUDED.key_type,
			asin       = EXCLUDED.asin,
			query      = EXCLUDED.query,
			page       = EXCLUDED.page,
			card_index = EXCLUDED.card_index,
			image_file = EXCLUDED.image_file,
			image_path = EXCLUDED.image_path,
			title      = EXCLUDED.title,
			price      = EXCLUDED.price,
			rating     = EXCLUDED.rating,
			reviews    = EXCLUDED.reviews,
			raw_text   = EXCLUDED.raw_text,
			source_tag = EXCLUDED.source_tag,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		r.IdentityKey, r.KeyType, r.ASIN, r.Query, r.Page, r.Index,
		r.ImageFile, r.ImagePath, r.Title, r.Price, r.Rating, r.Reviews,
		r.RawText, r.SourceTag,
	).Scan(&r.CreatedAt, &r.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", r.IdentityKey, err)
	}

	return nil
}

// GetByKey retrieves one record by identity key, or nil when absent.
func (s *Store) GetByKey(ctx context.Context, key string) (*models.Record, error) {
	query := selectColumns + ` WHERE identity_key = $1`

	r := &models.Record{}
	err := s.pool.QueryRow(ctx, query, key).Scan(scanTargets(r)...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return r, nil
}

// List returns the most recently updated records, capped at limit.
func (s *Store) List(ctx context.Context, limit int) ([]*models.Record, error) {
	query := selectColumns + ` ORDER BY updated_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		r := &models.Record{}
		if err := rows.Scan(scanTargets(r)...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByKeyType returns record counts grouped by key type.
func (s *Store) CountByKeyType(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT key_type, COUNT(*) FROM gpu_laptops GROUP BY key_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var keyType string
		var count int
		if err := rows.Scan(&keyType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[keyType] = count
	}
	return counts, rows.Err()
}

const selectColumns = `
	SELECT identity_key, key_type, asin, query, page, card_index,
	       image_file, image_path, title, price, rating, reviews,
	       raw_text, source_tag, created_at, updated_at
	FROM gpu_laptops`

func scanTargets(r *models.Record) []any {
	return []any{
		&r.IdentityKey, &r.KeyType, &r.ASIN, &r.Query, &r.Page, &r.Index,
		&r.ImageFile, &r.ImagePath, &r.Title, &r.Price, &r.Rating, &r.Reviews,
		&r.RawText, &r.SourceTag, &r.CreatedAt, &r.UpdatedAt,
	}
}
