package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Scraper  ScraperConfig
	Extract  ExtractConfig
	OCR      OCRConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type ScraperConfig struct {
	Query        string
	Domain       string
	MaxPages     int
	CardsPerPage int
	TargetCount  int
	OutputDir    string
	PageDelay    time.Duration
}

// ExtractConfig holds the tunables of the title-selection heuristic. The
// values have no derivation beyond empirical tuning, so they live in config
// rather than as hardcoded policy.
type ExtractConfig struct {
	TitleScanWindow int
	MinTitleLength  int
}

type OCRConfig struct {
	Languages      []string
	TessdataPrefix string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	SeenTTL  time.Duration
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	cfg := &Config{
		Scraper: ScraperConfig{
			Query:        getEnvOrDefault("SCRAPER_QUERY", "gaming laptop"),
			Domain:       getEnvOrDefault("SCRAPER_DOMAIN", "www.amazon.in"),
			MaxPages:     getIntOrDefault("SCRAPER_MAX_PAGES", 8),
			CardsPerPage: getIntOrDefault("SCRAPER_CARDS_PER_PAGE", 12),
			TargetCount:  getIntOrDefault("SCRAPER_TARGET_COUNT", 10),
			OutputDir:    getEnvOrDefault("SCRAPER_OUTPUT_DIR", "card_images"),
			PageDelay:    getDurationOrDefault("SCRAPER_PAGE_DELAY", 2500*time.Millisecond),
		},
		Extract: ExtractConfig{
			TitleScanWindow: getIntOrDefault("EXTRACT_TITLE_SCAN_WINDOW", 15),
			MinTitleLength:  getIntOrDefault("EXTRACT_MIN_TITLE_LENGTH", 10),
		},
		OCR: OCRConfig{
			Languages:      []string{getEnvOrDefault("OCR_LANGUAGE", "eng")},
			TessdataPrefix: getEnvOrDefault("OCR_TESSDATA_PREFIX", ""),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 25*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent: getEnvOrDefault("BROWSER_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-IN,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Kolkata"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-IN"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "amazon_ocr"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			SeenTTL:  getDurationOrDefault("REDIS_SEEN_TTL", 6*time.Hour),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.Query == "" {
		return fmt.Errorf("SCRAPER_QUERY must not be empty")
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.CardsPerPage < 1 {
		return fmt.Errorf("SCRAPER_CARDS_PER_PAGE must be at least 1")
	}

	if c.Scraper.TargetCount < 1 {
		return fmt.Errorf("SCRAPER_TARGET_COUNT must be at least 1")
	}

	if c.Extract.TitleScanWindow < 1 {
		return fmt.Errorf("EXTRACT_TITLE_SCAN_WINDOW must be at least 1")
	}

	if c.Extract.MinTitleLength < 1 {
		return fmt.Errorf("EXTRACT_MIN_TITLE_LENGTH must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
