package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	S3          S3Config
	Log         LogConfig
	Email       EmailConfig
	LLM         LLMConfig
	OCR         OCRConfig
	Extraction  ExtractionConfig
	Structuring StructuringConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for source documents.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Archive   bool   `mapstructure:"archive"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EmailConfig holds reviewer notification settings.
type EmailConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Reviewers   []string `mapstructure:"reviewers"`
	FrontendURL string   `mapstructure:"frontend_url"`
}

// LLMProviderConfig holds settings for a single LLM provider.
type LLMProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// LLMConfig holds LLM structuring backend settings with multi-provider support.
type LLMConfig struct {
	// Legacy flat fields (single provider)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
	Tertiary  LLMProviderConfig `mapstructure:"tertiary"`

	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (l *LLMConfig) PrimaryConfig() *LLMProviderConfig {
	if l.Primary.Provider != "" {
		return &l.Primary
	}
	return &LLMProviderConfig{
		Provider:     l.Provider,
		APIKey:       l.APIKey,
		DefaultModel: l.DefaultModel,
		TimeoutSecs:  l.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (l *LLMConfig) SecondaryConfig() *LLMProviderConfig {
	if l.Secondary.Provider != "" {
		return &l.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (l *LLMConfig) TertiaryConfig() *LLMProviderConfig {
	if l.Tertiary.Provider != "" {
		return &l.Tertiary
	}
	return nil
}

// Enabled reports whether any provider has an API key. Without one the
// structuring engine runs on the pattern fallback only.
func (l *LLMConfig) Enabled() bool {
	return l.PrimaryConfig().APIKey != ""
}

// OCRConfig holds settings for the external OCR toolchain.
type OCRConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Pdftoppm      string `mapstructure:"pdftoppm"`
	Tesseract     string `mapstructure:"tesseract"`
	TesseractLang string `mapstructure:"tesseract_lang"`
	TessdataDir   string `mapstructure:"tessdata_dir"`
	DPI           int    `mapstructure:"dpi"`
	MaxPages      int    `mapstructure:"max_pages"`
	PSM           int    `mapstructure:"psm"`
}

// ExtractionConfig holds text extraction policy settings.
type ExtractionConfig struct {
	FairThreshold       float64       `mapstructure:"fair_threshold"`
	GoodThreshold       float64       `mapstructure:"good_threshold"`
	ExcellentThreshold  float64       `mapstructure:"excellent_threshold"`
	OCRConfidenceFactor float64       `mapstructure:"ocr_confidence_factor"`
	MaxFileSizeMB       int64         `mapstructure:"max_file_size_mb"`
	PrimaryTimeout      time.Duration `mapstructure:"primary_timeout"`
	OCRTimeout          time.Duration `mapstructure:"ocr_timeout"`
}

// MaxFileSizeBytes returns the upload ceiling in bytes.
func (e *ExtractionConfig) MaxFileSizeBytes() int64 {
	return e.MaxFileSizeMB * 1024 * 1024
}

// StructuringConfig holds structuring and ingestion routing settings.
type StructuringConfig struct {
	BatchWindow         int           `mapstructure:"batch_window"`
	LLMTimeout          time.Duration `mapstructure:"llm_timeout"`
	AutoImportThreshold float64       `mapstructure:"auto_import_threshold"`
}

// Load reads configuration from environment variables with the PORTTARIFF_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTTARIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "porttariff")
	v.SetDefault("db.password", "porttariff_secret")
	v.SetDefault("db.name", "porttariff_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "port-tariff-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.archive", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "tariffs@example.com")
	v.SetDefault("email.from_name", "Port Tariffs")
	v.SetDefault("email.reviewers", "")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// LLM defaults (legacy flat)
	v.SetDefault("llm.provider", "claude")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.default_model", "")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.primary.provider", "")
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.default_model", "")
	v.SetDefault("llm.primary.timeout_secs", 120)
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.api_key", "")
	v.SetDefault("llm.secondary.default_model", "")
	v.SetDefault("llm.secondary.timeout_secs", 120)
	v.SetDefault("llm.tertiary.provider", "")
	v.SetDefault("llm.tertiary.api_key", "")
	v.SetDefault("llm.tertiary.default_model", "")
	v.SetDefault("llm.tertiary.timeout_secs", 120)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 2)

	// OCR defaults
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.psm", 6)

	// Extraction defaults
	v.SetDefault("extraction.fair_threshold", 0.70)
	v.SetDefault("extraction.good_threshold", 0.85)
	v.SetDefault("extraction.excellent_threshold", 0.95)
	v.SetDefault("extraction.ocr_confidence_factor", 0.9)
	v.SetDefault("extraction.max_file_size_mb", 50)
	v.SetDefault("extraction.primary_timeout", "60s")
	v.SetDefault("extraction.ocr_timeout", "5m")

	// Structuring defaults
	v.SetDefault("structuring.batch_window", 3)
	v.SetDefault("structuring.llm_timeout", "120s")
	v.SetDefault("structuring.auto_import_threshold", 0.8)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                       "PORTTARIFF_SERVER_PORT",
		"server.read_timeout":               "PORTTARIFF_SERVER_READ_TIMEOUT",
		"server.write_timeout":              "PORTTARIFF_SERVER_WRITE_TIMEOUT",
		"server.environment":                "PORTTARIFF_SERVER_ENVIRONMENT",
		"server.cors_origins":               "PORTTARIFF_SERVER_CORS_ORIGINS",
		"db.host":                           "PORTTARIFF_DB_HOST",
		"db.port":                           "PORTTARIFF_DB_PORT",
		"db.user":                           "PORTTARIFF_DB_USER",
		"db.password":                       "PORTTARIFF_DB_PASSWORD",
		"db.name":                           "PORTTARIFF_DB_NAME",
		"db.sslmode":                        "PORTTARIFF_DB_SSLMODE",
		"db.max_open":                       "PORTTARIFF_DB_MAX_OPEN",
		"db.max_idle":                       "PORTTARIFF_DB_MAX_IDLE",
		"s3.region":                         "PORTTARIFF_S3_REGION",
		"s3.bucket":                         "PORTTARIFF_S3_BUCKET",
		"s3.endpoint":                       "PORTTARIFF_S3_ENDPOINT",
		"s3.access_key":                     "PORTTARIFF_S3_ACCESS_KEY",
		"s3.secret_key":                     "PORTTARIFF_S3_SECRET_KEY",
		"s3.archive":                        "PORTTARIFF_S3_ARCHIVE",
		"log.level":                         "PORTTARIFF_LOG_LEVEL",
		"log.format":                        "PORTTARIFF_LOG_FORMAT",
		"email.provider":                    "PORTTARIFF_EMAIL_PROVIDER",
		"email.region":                      "PORTTARIFF_EMAIL_REGION",
		"email.from_address":                "PORTTARIFF_EMAIL_FROM_ADDRESS",
		"email.from_name":                   "PORTTARIFF_EMAIL_FROM_NAME",
		"email.reviewers":                   "PORTTARIFF_EMAIL_REVIEWERS",
		"email.frontend_url":                "PORTTARIFF_EMAIL_FRONTEND_URL",
		"llm.provider":                      "PORTTARIFF_LLM_PROVIDER",
		"llm.api_key":                       "PORTTARIFF_LLM_API_KEY",
		"llm.default_model":                 "PORTTARIFF_LLM_DEFAULT_MODEL",
		"llm.timeout_secs":                  "PORTTARIFF_LLM_TIMEOUT_SECS",
		"llm.primary.provider":              "PORTTARIFF_LLM_PRIMARY_PROVIDER",
		"llm.primary.api_key":               "PORTTARIFF_LLM_PRIMARY_API_KEY",
		"llm.primary.default_model":         "PORTTARIFF_LLM_PRIMARY_DEFAULT_MODEL",
		"llm.primary.timeout_secs":          "PORTTARIFF_LLM_PRIMARY_TIMEOUT_SECS",
		"llm.secondary.provider":            "PORTTARIFF_LLM_SECONDARY_PROVIDER",
		"llm.secondary.api_key":             "PORTTARIFF_LLM_SECONDARY_API_KEY",
		"llm.secondary.default_model":       "PORTTARIFF_LLM_SECONDARY_DEFAULT_MODEL",
		"llm.secondary.timeout_secs":        "PORTTARIFF_LLM_SECONDARY_TIMEOUT_SECS",
		"llm.tertiary.provider":             "PORTTARIFF_LLM_TERTIARY_PROVIDER",
		"llm.tertiary.api_key":              "PORTTARIFF_LLM_TERTIARY_API_KEY",
		"llm.tertiary.default_model":        "PORTTARIFF_LLM_TERTIARY_DEFAULT_MODEL",
		"llm.tertiary.timeout_secs":         "PORTTARIFF_LLM_TERTIARY_TIMEOUT_SECS",
		"llm.temperature":                   "PORTTARIFF_LLM_TEMPERATURE",
		"llm.max_tokens":                    "PORTTARIFF_LLM_MAX_TOKENS",
		"llm.requests_per_second":           "PORTTARIFF_LLM_REQUESTS_PER_SECOND",
		"llm.burst":                         "PORTTARIFF_LLM_BURST",
		"ocr.enabled":                       "PORTTARIFF_OCR_ENABLED",
		"ocr.pdftoppm":                      "PORTTARIFF_OCR_PDFTOPPM",
		"ocr.tesseract":                     "PORTTARIFF_OCR_TESSERACT",
		"ocr.tesseract_lang":                "PORTTARIFF_OCR_TESSERACT_LANG",
		"ocr.tessdata_dir":                  "PORTTARIFF_OCR_TESSDATA_DIR",
		"ocr.dpi":                           "PORTTARIFF_OCR_DPI",
		"ocr.max_pages":                     "PORTTARIFF_OCR_MAX_PAGES",
		"ocr.psm":                           "PORTTARIFF_OCR_PSM",
		"extraction.fair_threshold":         "PORTTARIFF_EXTRACTION_FAIR_THRESHOLD",
		"extraction.good_threshold":         "PORTTARIFF_EXTRACTION_GOOD_THRESHOLD",
		"extraction.excellent_threshold":    "PORTTARIFF_EXTRACTION_EXCELLENT_THRESHOLD",
		"extraction.ocr_confidence_factor":  "PORTTARIFF_EXTRACTION_OCR_CONFIDENCE_FACTOR",
		"extraction.max_file_size_mb":       "PORTTARIFF_EXTRACTION_MAX_FILE_SIZE_MB",
		"extraction.primary_timeout":        "PORTTARIFF_EXTRACTION_PRIMARY_TIMEOUT",
		"extraction.ocr_timeout":            "PORTTARIFF_EXTRACTION_OCR_TIMEOUT",
		"structuring.batch_window":          "PORTTARIFF_STRUCTURING_BATCH_WINDOW",
		"structuring.llm_timeout":           "PORTTARIFF_STRUCTURING_LLM_TIMEOUT",
		"structuring.auto_import_threshold": "PORTTARIFF_STRUCTURING_AUTO_IMPORT_THRESHOLD",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set a PORT env var. Use it if PORTTARIFF_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PORTTARIFF_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		CORSOrigins:  splitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Archive:   v.GetBool("s3.archive"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		Reviewers:   splitList(v.GetString("email.reviewers")),
		FrontendURL: v.GetString("email.frontend_url"),
	}

	cfg.LLM = LLMConfig{
		Provider:     v.GetString("llm.provider"),
		APIKey:       v.GetString("llm.api_key"),
		DefaultModel: v.GetString("llm.default_model"),
		TimeoutSecs:  v.GetInt("llm.timeout_secs"),
		Primary: LLMProviderConfig{
			Provider:     v.GetString("llm.primary.provider"),
			APIKey:       v.GetString("llm.primary.api_key"),
			DefaultModel: v.GetString("llm.primary.default_model"),
			TimeoutSecs:  v.GetInt("llm.primary.timeout_secs"),
		},
		Secondary: LLMProviderConfig{
			Provider:     v.GetString("llm.secondary.provider"),
			APIKey:       v.GetString("llm.secondary.api_key"),
			DefaultModel: v.GetString("llm.secondary.default_model"),
			TimeoutSecs:  v.GetInt("llm.secondary.timeout_secs"),
		},
		Tertiary: LLMProviderConfig{
			Provider:     v.GetString("llm.tertiary.provider"),
			APIKey:       v.GetString("llm.tertiary.api_key"),
			DefaultModel: v.GetString("llm.tertiary.default_model"),
			TimeoutSecs:  v.GetInt("llm.tertiary.timeout_secs"),
		},
		Temperature:       v.GetFloat64("llm.temperature"),
		MaxTokens:         v.GetInt("llm.max_tokens"),
		RequestsPerSecond: v.GetFloat64("llm.requests_per_second"),
		Burst:             v.GetInt("llm.burst"),
	}

	cfg.OCR = OCRConfig{
		Enabled:       v.GetBool("ocr.enabled"),
		Pdftoppm:      v.GetString("ocr.pdftoppm"),
		Tesseract:     v.GetString("ocr.tesseract"),
		TesseractLang: v.GetString("ocr.tesseract_lang"),
		TessdataDir:   v.GetString("ocr.tessdata_dir"),
		DPI:           v.GetInt("ocr.dpi"),
		MaxPages:      v.GetInt("ocr.max_pages"),
		PSM:           v.GetInt("ocr.psm"),
	}

	cfg.Extraction = ExtractionConfig{
		FairThreshold:       v.GetFloat64("extraction.fair_threshold"),
		GoodThreshold:       v.GetFloat64("extraction.good_threshold"),
		ExcellentThreshold:  v.GetFloat64("extraction.excellent_threshold"),
		OCRConfidenceFactor: v.GetFloat64("extraction.ocr_confidence_factor"),
		MaxFileSizeMB:       v.GetInt64("extraction.max_file_size_mb"),
		PrimaryTimeout:      v.GetDuration("extraction.primary_timeout"),
		OCRTimeout:          v.GetDuration("extraction.ocr_timeout"),
	}
	if err := validateThresholds(cfg.Extraction); err != nil {
		return nil, err
	}

	cfg.Structuring = StructuringConfig{
		BatchWindow:         v.GetInt("structuring.batch_window"),
		LLMTimeout:          v.GetDuration("structuring.llm_timeout"),
		AutoImportThreshold: v.GetFloat64("structuring.auto_import_threshold"),
	}

	return cfg, nil
}

func validateThresholds(e ExtractionConfig) error {
	if !(0 < e.FairThreshold && e.FairThreshold < e.GoodThreshold && e.GoodThreshold < e.ExcellentThreshold && e.ExcellentThreshold <= 1) {
		return fmt.Errorf("extraction thresholds must be ascending within (0,1]: fair=%.2f good=%.2f excellent=%.2f",
			e.FairThreshold, e.GoodThreshold, e.ExcellentThreshold)
	}
	return nil
}

// splitList parses a comma-separated string into trimmed, non-empty values.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
