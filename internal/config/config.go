package config

import (
	"encoding/json"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config holds all runtime parameters, sourced from environment variables.
type Config struct {
	FTPBaseURL      string `envconfig:"CATALOG_FTP_BASE_URL" default:"https://ftp.ncbi.nlm.nih.gov/dbgap/studies"`
	EutilsBaseURL   string `envconfig:"CATALOG_EUTILS_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	EutilsAPIKey    string `envconfig:"CATALOG_EUTILS_API_KEY"`
	EutilsEmail     string `envconfig:"CATALOG_EUTILS_EMAIL"`
	EutilsTool      string `envconfig:"CATALOG_EUTILS_TOOL" default:"gapcatalog-builder"`
	ReporterBaseURL string `envconfig:"CATALOG_REPORTER_BASE_URL" default:"https://api.reporter.nih.gov/v2"`

	PlatformsFile string `envconfig:"CATALOG_PLATFORMS_FILE" default:"data/platforms.tsv"`
	RegistryFile  string `envconfig:"CATALOG_REGISTRY_FILE" default:"data/registry_links.csv"`
	StudiesCSV    string `envconfig:"CATALOG_STUDIES_CSV" default:"data/study_metadata.csv"`

	// Platform index endpoints as "platform:url" pairs, for membership sync.
	PlatformIndexes map[string]string `envconfig:"CATALOG_PLATFORM_INDEXES"`

	OutDir  string `envconfig:"CATALOG_OUT_DIR" default:"out"`
	DBPath  string `envconfig:"CATALOG_DB_PATH" default:"catalog.db"`
	DBDebug bool   `envconfig:"CATALOG_DB_DEBUG" default:"false"`

	RateLimitsFile string `envconfig:"CATALOG_RATE_LIMITS_FILE"`

	// Cron expression for scheduled rebuilds; empty means run once and exit.
	Schedule string `envconfig:"CATALOG_SCHEDULE"`

	ProgressEvery       int `envconfig:"CATALOG_PROGRESS_EVERY" default:"25"`
	MaxDescriptionRunes int `envconfig:"CATALOG_MAX_DESCRIPTION_RUNES" default:"2000"`

	Env string `envconfig:"CATALOG_ENV" default:"production"`
}

// Load reads configuration from the environment, letting a local .env file
// fill in anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

// Logger builds the process logger for the configured environment.
func (c *Config) Logger() (*zap.Logger, error) {
	if c.Env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Snapshot renders the config as JSON for build-run records, with
// credentials blanked.
func (c *Config) Snapshot() (string, error) {
	redacted := *c
	redacted.EutilsAPIKey = ""

	data, err := json.Marshal(redacted)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
