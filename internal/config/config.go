package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadmatch/internal/normalize"
	"github.com/sells-group/leadmatch/internal/tabular"
	"github.com/sells-group/leadmatch/pkg/brreg"
)

// EnvPrefix prefixes every environment override, e.g. LEADMATCH_LOG_LEVEL.
const EnvPrefix = "LEADMATCH"

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InputConfig names the columns of both input files.
type InputConfig struct {
	Source   tabular.SourceColumns   `yaml:"source" mapstructure:"source"`
	Registry tabular.RegistryColumns `yaml:"registry" mapstructure:"registry"`
}

// MatchConfig configures name normalization and which match methods are
// shown.
type MatchConfig struct {
	LegalWords     []string `yaml:"legal_words" mapstructure:"legal_words"`
	QualifierWords []string `yaml:"qualifier_words" mapstructure:"qualifier_words"`
	Methods        []string `yaml:"methods" mapstructure:"methods"`
}

// RegistryConfig configures the registry API clients.
type RegistryConfig struct {
	EntitiesURL      string  `yaml:"entities_url" mapstructure:"entities_url"`
	AccountsURL      string  `yaml:"accounts_url" mapstructure:"accounts_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries          int     `yaml:"retries" mapstructure:"retries"`
	BackoffMs        int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// EnrichConfig configures the enrichment worker pool.
type EnrichConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Workers is the pool size. Zero means min(32, 4 × NumCPU).
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig configures the enrichment cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

var cacheDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}

// Validate checks values that would otherwise fail deep inside a run. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []string
	if !cacheDrivers[strings.ToLower(c.Cache.Driver)] {
		errs = append(errs, "cache.driver must be one of memory, sqlite, postgres")
	}
	if strings.EqualFold(c.Cache.Driver, "postgres") && c.Cache.DatabaseURL == "" {
		errs = append(errs, "cache.database_url is required for the postgres driver")
	}
	if c.Cache.TTLHours < 0 {
		errs = append(errs, "cache.ttl_hours must be >= 0")
	}
	if c.Enrich.Workers < 0 {
		errs = append(errs, "enrich.workers must be >= 0")
	}
	if c.Registry.Retries < 0 {
		errs = append(errs, "registry.retries must be >= 0")
	}
	if c.Registry.RateLimit < 0 {
		errs = append(errs, "registry.rate_limit must be >= 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	src := tabular.DefaultSourceColumns()
	reg := tabular.DefaultRegistryColumns()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.source.name", src.Name)
	v.SetDefault("input.source.registry_id", src.RegistryID)
	v.SetDefault("input.source.record_id", src.RecordID)
	v.SetDefault("input.source.last_activity", src.LastActivity)
	v.SetDefault("input.registry.registry_id", reg.RegistryID)
	v.SetDefault("input.registry.name", reg.Name)
	v.SetDefault("input.registry.industry_code", reg.IndustryCode)
	v.SetDefault("input.registry.industry_description", reg.IndustryDescription)
	v.SetDefault("match.legal_words", normalize.DefaultLegalWords)
	v.SetDefault("match.qualifier_words", normalize.DefaultQualifierWords)
	v.SetDefault("match.methods", []string{})
	v.SetDefault("registry.entities_url", brreg.DefaultEntitiesURL)
	v.SetDefault("registry.accounts_url", brreg.DefaultAccountsURL)
	v.SetDefault("registry.user_agent", brreg.DefaultUserAgent)
	v.SetDefault("registry.timeout_secs", 8)
	v.SetDefault("registry.retries", 1)
	v.SetDefault("registry.backoff_ms", 400)
	v.SetDefault("registry.rate_limit", 0)
	v.SetDefault("registry.breaker_threshold", 0)
	v.SetDefault("registry.breaker_reset_secs", 30)
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.workers", 0)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "leadmatch-cache.db")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.ttl_hours", 24)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
