package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/romangod6/sitemapgen/internal/sitemap"
	"github.com/romangod6/sitemapgen/internal/utils"
)

// EnvPrefix prefixes environment overrides, e.g. SITEMAPGEN_SERVER_PORT.
const EnvPrefix = "SITEMAPGEN"

type Config struct {
	Source   SourceConfig    `mapstructure:"source"`
	Sitemap  SitemapConfig   `mapstructure:"sitemap"`
	Crawler  CrawlerConfig   `mapstructure:"crawler"`
	Database DatabaseConfig  `mapstructure:"database"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      utils.LogConfig `mapstructure:"log"`
}

type SourceConfig struct {
	Dir         string `mapstructure:"dir"`
	Destination string `mapstructure:"destination"`
	Markdown    bool   `mapstructure:"markdown"`
	HTMLMeta    bool   `mapstructure:"htmlMeta"`
	GitDates    bool   `mapstructure:"gitDates"`
}

// SitemapConfig embeds the generator options. Template files are read into
// the inline template fields when the config is loaded.
type SitemapConfig struct {
	sitemap.Options     `mapstructure:",squash"`
	EntryTemplateFile   string `mapstructure:"entryTemplateFile"`
	SitemapTemplateFile string `mapstructure:"sitemapTemplateFile"`
}

type CrawlerConfig struct {
	StartURL       string   `mapstructure:"startURL"`
	UserAgent      string   `mapstructure:"userAgent"`
	MaxDepth       int      `mapstructure:"maxDepth"`
	AllowedDomains []string `mapstructure:"allowedDomains"`
	Parallelism    int      `mapstructure:"parallelism"`
	Delay          string   `mapstructure:"delay"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Watch    bool   `mapstructure:"watch"`
	Interval string `mapstructure:"interval"`
}

// LoadConfig reads configuration from path, or from config.yaml in the
// working directory or ./config when path is empty. A missing search-path
// config is not an error. Environment variables and a .env file override
// file values.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Default values
	v.SetDefault("source.dir", "src")
	v.SetDefault("source.destination", "build")
	v.SetDefault("source.markdown", true)
	v.SetDefault("source.htmlmeta", true)
	v.SetDefault("source.gitdates", false)
	v.SetDefault("crawler.useragent", "sitemapgen/1.0")
	v.SetDefault("crawler.maxdepth", 3)
	v.SetDefault("crawler.parallelism", 2)
	v.SetDefault("crawler.delay", "0s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "sitemapgen.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.watch", false)
	v.SetDefault("server.interval", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxsizemb", 10)
	v.SetDefault("log.maxbackups", 3)

	// Sitemap keys have no viper defaults; bind the common ones so the
	// environment can still set them.
	for _, key := range []string{"sitemap.hostname", "sitemap.output", "crawler.starturl"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		sitemap.DecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Sitemap.loadTemplates(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SitemapConfig) loadTemplates() error {
	read := func(file string, dst *string) error {
		if file == "" || *dst != "" {
			return nil
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		*dst = string(b)
		return nil
	}
	if err := read(s.EntryTemplateFile, &s.EntryTemplate); err != nil {
		return err
	}
	return read(s.SitemapTemplateFile, &s.SitemapTemplate)
}

// GetScheduleInterval returns the periodic regeneration interval, or zero
// when scheduling is disabled.
func (c *Config) GetScheduleInterval() time.Duration {
	if c.Server.Interval == "" {
		return 0
	}
	duration, err := time.ParseDuration(c.Server.Interval)
	if err != nil || duration < 0 {
		return 0
	}
	return duration
}

// GetCrawlDelay returns the delay between crawler requests.
func (c *Config) GetCrawlDelay() time.Duration {
	duration, err := time.ParseDuration(c.Crawler.Delay)
	if err != nil {
		return 0
	}
	return duration
}
