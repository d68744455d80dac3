// Package config provides configuration management for bilifeed. Values are
// layered: defaults, then an optional YAML config file, then environment
// variables (optionally from a .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reouo/bilifeed/internal/ratelimit"
	"github.com/reouo/bilifeed/internal/store"
)

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the connection string.
func (d *Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Bili holds upstream platform client settings.
type Bili struct {
	// Cookie is the opaque session credential sent verbatim.
	Cookie string `mapstructure:"cookie"`
	// UserAgent overrides the default client identity header.
	UserAgent string `mapstructure:"user_agent"`
	// Timeout bounds each upstream request.
	Timeout time.Duration `mapstructure:"timeout"`
	// ArticleDelay is the minimum gap between article fetches.
	ArticleDelay time.Duration `mapstructure:"article_delay"`
}

// Feed holds feed output settings.
type Feed struct {
	// OutputDir is where rendered feed documents are written.
	OutputDir string `mapstructure:"output_dir"`
}

// Tables holds the collection names.
type Tables struct {
	Data     string `mapstructure:"data"`
	Tags     string `mapstructure:"tags"`
	Filtered string `mapstructure:"filtered"`
}

// Logger holds logging settings.
type Logger struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Config is the application configuration.
type Config struct {
	Database Database `mapstructure:"database"`
	Bili     Bili     `mapstructure:"bili"`
	Feed     Feed     `mapstructure:"feed"`
	Tables   Tables   `mapstructure:"tables"`
	Logger   Logger   `mapstructure:"logger"`
}

// StoreTables converts the configured names to the store's table set.
func (c *Config) StoreTables() store.Tables {
	return store.Tables{
		Data:     c.Tables.Data,
		Tags:     c.Tables.Tags,
		Filtered: c.Tables.Filtered,
	}
}

// Validate checks settings that would otherwise fail late and obscurely.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Feed.OutputDir == "" {
		return fmt.Errorf("feed output directory is required")
	}
	return nil
}

// setDefaults applies default values to a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database", map[string]any{
		"host":    "localhost",
		"port":    5432,
		"user":    "postgres",
		"sslmode": "disable",
		"dbname":  "bilifeed",
	})

	v.SetDefault("bili", map[string]any{
		"timeout":       "30s",
		"article_delay": ratelimit.DefaultArticleDelay.String(),
	})

	v.SetDefault("feed", map[string]any{
		"output_dir": "xml_files",
	})

	v.SetDefault("tables", map[string]any{
		"data":     store.DefaultDataTable,
		"tags":     store.DefaultTagsTable,
		"filtered": store.DefaultFilteredTable,
	})

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "json",
		"development": false,
	})
}

// bindEnvVars maps well-known environment variable names onto config keys.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"database.password": {"POSTGRES_PASSWORD", "DATABASE_PASSWORD"},
		"database.user":     {"POSTGRES_USER"},
		"database.dbname":   {"POSTGRES_DB"},
		"bili.cookie":       {"BILI_COOKIE"},
		"logger.level":      {"LOG_LEVEL"},
		"logger.encoding":   {"LOG_FORMAT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration from the given file path. An empty path falls
// back to ./config.yaml; a missing file is not an error, defaults and
// environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// The config file is optional unless one was named explicitly.
	if err := v.ReadInConfig(); err != nil && path != "" {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
