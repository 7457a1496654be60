package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./eventhive.db" description:"Path to the SQLite database file"`

	// Scraper configuration
	ScraperAPIKey  string `long:"scraper-api-key" env:"SCRAPER_API_KEY" description:"ScrapeFish API key (required for polling)" required:"true"`
	ScraperBaseURL string `long:"scraper-base-url" env:"SCRAPER_BASE_URL" default:"https://scraping.narf.ai/api/v1/" description:"Scraping proxy base URL"`
	PageSize       int    `long:"page-size" env:"PAGE_SIZE" default:"24" description:"Number of posts requested per timeline page"`

	// Extraction configuration
	CohereAPIKey string `long:"cohere-api-key" env:"COHERE_API_KEY" description:"Cohere API key for event extraction (preferred)"`
	OpenAIAPIKey string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key for event extraction (fallback)"`

	// Application configuration
	AccountsDir      string `long:"accounts-dir" env:"ACCOUNTS_DIR" default:"./accounts" description:"Directory containing tracked account configuration files"`
	MailDropDir      string `long:"mail-drop-dir" env:"MAIL_DROP_DIR" description:"Directory scanned for dropped mail bodies (optional)"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for ingestion tasks"`
	PollInterval     int    `long:"poll-interval" env:"POLL_INTERVAL" default:"600" description:"Default per-account poll interval in seconds"`
	StartFrom        string `long:"start-from" env:"START_FROM" default:"2024-11-20 00:00:00" description:"Initial ingestion boundary for accounts without a stored watermark (YYYY-MM-DD HH:MM:SS, UTC)"`
	OnTimeParseError string `long:"on-time-parse-error" env:"ON_TIME_PARSE_ERROR" default:"fallback" choice:"fallback" choice:"drop" description:"Policy when strict time parsing fails: fall back to a date-only event or drop the record"`
	APIAccessKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"EventHive/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Montreal)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		ScraperAPIKey:    raw.ScraperAPIKey,
		ScraperBaseURL:   raw.ScraperBaseURL,
		PageSize:         raw.PageSize,
		CohereAPIKey:     raw.CohereAPIKey,
		OpenAIAPIKey:     raw.OpenAIAPIKey,
		AccountsDir:      raw.AccountsDir,
		MailDropDir:      raw.MailDropDir,
		Port:             raw.Port,
		WorkerCount:      raw.WorkerCount,
		PollInterval:     raw.PollInterval,
		StartFrom:        raw.StartFrom,
		OnTimeParseError: raw.OnTimeParseError,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
