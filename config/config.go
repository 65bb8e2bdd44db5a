// Package config loads the application configuration. Components never
// read configuration ambiently: the loaded Config (or the relevant
// section) is passed into each constructor explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the ingestion core.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Cache     CacheConfig     `mapstructure:"cache"`
	MediaWiki MediaWikiConfig `mapstructure:"mediawiki"`
	DIP       DIPConfig       `mapstructure:"dip"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// CacheConfig locates the on-disk evidence cache.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

func (c CacheConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("cache.dir must not be empty")
	}
	return nil
}

// MediaWikiConfig describes the wiki source.
type MediaWikiConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	UserAgent    string  `mapstructure:"user_agent"`
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
}

func (m MediaWikiConfig) Validate() error {
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("mediawiki.base_url must not be empty")
	}
	if m.RateLimitRPS < 0 {
		return fmt.Errorf("mediawiki.rate_limit_rps must be >= 0")
	}
	return nil
}

// DIPConfig describes the structured parliamentary API source.
type DIPConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	MaxWahlperiode int     `mapstructure:"max_wahlperiode"`
}

func (d DIPConfig) Validate() error {
	if strings.TrimSpace(d.BaseURL) == "" {
		return fmt.Errorf("dip.base_url must not be empty")
	}
	if d.MaxWahlperiode <= 0 {
		return fmt.Errorf("dip.max_wahlperiode must be > 0")
	}
	return nil
}

// ReconcileConfig carries the ruleset constants and the override file
// location for cross-source record linkage.
type ReconcileConfig struct {
	OverridesPath string  `mapstructure:"overrides_path"`
	ScoreFloor    float64 `mapstructure:"score_floor"`
	ScoreCeiling  float64 `mapstructure:"score_ceiling"`
	AcceptMargin  float64 `mapstructure:"accept_margin"`
	MaxPending    int     `mapstructure:"max_pending"`
}

func (r ReconcileConfig) Validate() error {
	if r.ScoreFloor <= 0 || r.ScoreFloor >= 1 {
		return fmt.Errorf("reconcile.score_floor must be in (0,1)")
	}
	if r.ScoreCeiling <= r.ScoreFloor || r.ScoreCeiling > 1 {
		return fmt.Errorf("reconcile.score_ceiling must be in (score_floor,1]")
	}
	if r.AcceptMargin <= 0 {
		return fmt.Errorf("reconcile.accept_margin must be > 0")
	}
	if r.MaxPending <= 0 {
		return fmt.Errorf("reconcile.max_pending must be > 0")
	}
	return nil
}

// Load reads configuration from the given file, or from the default
// search paths when path is empty, applying defaults and PISS_* env
// overrides. Structural validation failures abort startup.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("cache.dir", "data/cache")
	v.SetDefault("mediawiki.base_url", "https://de.wikipedia.org")
	v.SetDefault("mediawiki.user_agent", "piss/0.1 (+https://github.com/Hackbard/piss)")
	v.SetDefault("mediawiki.rate_limit_rps", 2.0)
	v.SetDefault("dip.base_url", "https://search.dip.bundestag.de/api/v1")
	v.SetDefault("dip.rate_limit_rps", 2.0)
	v.SetDefault("dip.max_wahlperiode", 50)
	v.SetDefault("reconcile.overrides_path", "config/link_overrides.yaml")
	v.SetDefault("reconcile.score_floor", 0.5)
	v.SetDefault("reconcile.score_ceiling", 0.95)
	v.SetDefault("reconcile.accept_margin", 0.05)
	v.SetDefault("reconcile.max_pending", 3)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PISS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when no explicit path was given; the
		// defaults plus env variables form a complete configuration.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Cache.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MediaWiki.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.DIP.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Reconcile.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
