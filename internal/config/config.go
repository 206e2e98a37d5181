package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	// ConfigPathEnv points at an optional YAML config file.
	ConfigPathEnv = "MINIFLUX_AI_CONFIG"

	minifluxURLEnv           = "MINIFLUX_URL"
	minifluxUsernameEnv      = "MINIFLUX_USERNAME"
	minifluxPasswordEnv      = "MINIFLUX_PASSWORD"
	minifluxWebhookSecretEnv = "MINIFLUX_WEBHOOK_SECRET"
	aiURLEnv                 = "CF_AI_URL"
	aiTokenEnv               = "CF_AI_TOKEN"
	aiModelEnv               = "CF_AI_MODEL"
	enrichmentProviderEnv    = "ENRICHMENT_PROVIDER"
	queueBackendEnv          = "QUEUE_BACKEND"
	queueDataDirEnv          = "QUEUE_DATA_DIR"
	databaseDSNEnv           = "DATABASE_DSN"
	listenAddrEnv            = "LISTEN_ADDR"
	logLevelEnv              = "LOG_LEVEL"
	logFormatEnv             = "LOG_FORMAT"
)

// Default pipeline limits.
const (
	DefaultConcurrency      = 5
	DefaultMinContentLength = 500
	DefaultSummaryMaxLength = 512
)

// Config holds every externally supplied setting. It is built once at startup
// and passed by value afterwards.
type Config struct {
	Miniflux   MinifluxConfig   `yaml:"miniflux"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Queue      QueueConfig      `yaml:"queue"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Server     ServerConfig     `yaml:"server"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MinifluxConfig describes the content store and the webhook secret it signs with.
type MinifluxConfig struct {
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// EnrichmentConfig defines how to contact the summarization service.
type EnrichmentConfig struct {
	Provider     string        `yaml:"provider"`
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	Model        string        `yaml:"model"`
	MaxLength    int           `yaml:"maxLength"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// QueueConfig selects and configures the durable queue backend.
type QueueConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"dataDir"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Fsync   string `yaml:"fsync"`
}

// SchedulerConfig defines when drain cycles run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ServerConfig configures the webhook listener.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	WebhookPath  string `yaml:"webhookPath"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// PipelineConfig bounds intake and drain fan-out.
type PipelineConfig struct {
	IntakeConcurrency int `yaml:"intakeConcurrency"`
	DrainConcurrency  int `yaml:"drainConcurrency"`
	MinContentLength  int `yaml:"minContentLength"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration from defaults, the optional YAML file at path
// (or $MINIFLUX_AI_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg, nil
}

// Validate reports every required value that is missing.
func (c Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require(c.Miniflux.URL, "miniflux.url")
	require(c.Miniflux.Username, "miniflux.username")
	require(c.Miniflux.Password, "miniflux.password")
	require(c.Miniflux.WebhookSecret, "miniflux.webhookSecret")
	require(c.Enrichment.URL, "enrichment.url")
	require(c.Enrichment.Token, "enrichment.token")
	require(c.Enrichment.Model, "enrichment.model")

	switch strings.ToLower(c.Queue.Backend) {
	case "postgres", "postgresql":
		require(c.Queue.DSN, "queue.dsn")
	case "memory", "mem":
	default:
		require(c.Queue.DataDir, "queue.dataDir")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{minifluxURLEnv, &c.Miniflux.URL},
		{minifluxUsernameEnv, &c.Miniflux.Username},
		{minifluxPasswordEnv, &c.Miniflux.Password},
		{minifluxWebhookSecretEnv, &c.Miniflux.WebhookSecret},
		{aiURLEnv, &c.Enrichment.URL},
		{aiTokenEnv, &c.Enrichment.Token},
		{aiModelEnv, &c.Enrichment.Model},
		{enrichmentProviderEnv, &c.Enrichment.Provider},
		{queueBackendEnv, &c.Queue.Backend},
		{queueDataDirEnv, &c.Queue.DataDir},
		{databaseDSNEnv, &c.Queue.DSN},
		{listenAddrEnv, &c.Server.Addr},
		{logLevelEnv, &c.Logging.Level},
		{logFormatEnv, &c.Logging.Format},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Miniflux.URL, override.Miniflux.URL)
	mergeString(&base.Miniflux.Username, override.Miniflux.Username)
	mergeString(&base.Miniflux.Password, override.Miniflux.Password)
	mergeString(&base.Miniflux.WebhookSecret, override.Miniflux.WebhookSecret)

	mergeString(&base.Enrichment.Provider, override.Enrichment.Provider)
	mergeString(&base.Enrichment.URL, override.Enrichment.URL)
	mergeString(&base.Enrichment.Token, override.Enrichment.Token)
	mergeString(&base.Enrichment.Model, override.Enrichment.Model)
	mergeString(&base.Enrichment.SystemPrompt, override.Enrichment.SystemPrompt)
	if override.Enrichment.MaxLength > 0 {
		base.Enrichment.MaxLength = override.Enrichment.MaxLength
	}
	if override.Enrichment.Timeout > 0 {
		base.Enrichment.Timeout = override.Enrichment.Timeout
	}

	mergeString(&base.Queue.Backend, override.Queue.Backend)
	mergeString(&base.Queue.DataDir, override.Queue.DataDir)
	mergeString(&base.Queue.DSN, override.Queue.DSN)
	mergeString(&base.Queue.Table, override.Queue.Table)
	mergeString(&base.Queue.Fsync, override.Queue.Fsync)

	mergeString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	mergeString(&base.Server.Addr, override.Server.Addr)
	mergeString(&base.Server.WebhookPath, override.Server.WebhookPath)
	if override.Server.MaxBodyBytes > 0 {
		base.Server.MaxBodyBytes = override.Server.MaxBodyBytes
	}

	if override.Pipeline.IntakeConcurrency > 0 {
		base.Pipeline.IntakeConcurrency = override.Pipeline.IntakeConcurrency
	}
	if override.Pipeline.DrainConcurrency > 0 {
		base.Pipeline.DrainConcurrency = override.Pipeline.DrainConcurrency
	}
	if override.Pipeline.MinContentLength > 0 {
		base.Pipeline.MinContentLength = override.Pipeline.MinContentLength
	}

	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	return base
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Enrichment: EnrichmentConfig{
			Provider:     "workers-ai",
			MaxLength:    DefaultSummaryMaxLength,
			SystemPrompt: "You summarize articles in a few short paragraphs of Markdown.",
			Timeout:      30 * time.Second,
		},
		Queue: QueueConfig{
			Backend: "pebble",
			DataDir: "./data/queue",
			Table:   "pending_entries",
			Fsync:   "always",
		},
		Scheduler: SchedulerConfig{CronExpression: "*/10 * * * *", Timezone: defaultTimezone, location: tz},
		Server: ServerConfig{
			Addr:         ":8080",
			WebhookPath:  "/",
			MaxBodyBytes: 10 << 20,
		},
		Pipeline: PipelineConfig{
			IntakeConcurrency: DefaultConcurrency,
			DrainConcurrency:  DefaultConcurrency,
			MinContentLength:  DefaultMinContentLength,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
