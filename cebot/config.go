package cebot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ce-community/cebot/cebot/database"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// LoadConfig reads the TOML file, then applies environment overrides.
// A .env file next to the process is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log       LogConfig         `toml:"log"`
	Bot       BotConfig         `toml:"bot"`
	Store     StoreConfig       `toml:"store"`
	Mongo     MongoConfig       `toml:"mongo"`
	DB        database.DBConfig `toml:"db"`
	Catalog   CatalogConfig     `toml:"catalog"`
	Reconcile ReconcileConfig   `toml:"reconcile"`
	Spaces    SpacesConfig      `toml:"spaces"`
	API       APIConfig         `toml:"api"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type BotConfig struct {
	Token       string         `toml:"token" env:"CEBOT_BOT_TOKEN"`
	DevGuilds   []snowflake.ID `toml:"dev_guilds"`
	GameChannel snowflake.ID   `toml:"game_channel"`
	UserChannel snowflake.ID   `toml:"user_channel"`
	RollChannel snowflake.ID   `toml:"roll_channel"`
	LogChannel  snowflake.ID   `toml:"log_channel"`
}

type StoreConfig struct {
	Driver    string `toml:"driver"`
	CacheSize int    `toml:"cache_size"`
}

type MongoConfig struct {
	URI      string `toml:"uri" env:"CEBOT_MONGO_URI"`
	Database string `toml:"database"`
}

type CatalogConfig struct {
	BaseURL       string   `toml:"base_url" env:"CEBOT_CATALOG_BASE_URL"`
	Timeout       Duration `toml:"timeout"`
	MaxRetries    int      `toml:"max_retries"`
	RetryInterval Duration `toml:"retry_interval"`
}

type ReconcileConfig struct {
	Interval      Duration `toml:"interval"`
	GameWorkers   int      `toml:"game_workers"`
	UserWorkers   int      `toml:"user_workers"`
	QuietNewUsers bool     `toml:"quiet_new_users"`
}

type SpacesConfig struct {
	Key    string `toml:"key" env:"CEBOT_SPACES_KEY"`
	Secret string `toml:"secret" env:"CEBOT_SPACES_SECRET"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
}

// Enabled reports whether pass reports should be archived.
func (s SpacesConfig) Enabled() bool {
	return s.Bucket != ""
}

type APIConfig struct {
	Listen string `toml:"listen"`
}

// Duration decodes "15m" style strings from TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMongo
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "cebot"
	}
	if c.Catalog.Timeout.Duration == 0 {
		c.Catalog.Timeout.Duration = 30 * time.Second
	}
	if c.Catalog.MaxRetries == 0 {
		c.Catalog.MaxRetries = 3
	}
	if c.Catalog.RetryInterval.Duration == 0 {
		c.Catalog.RetryInterval.Duration = 5 * time.Second
	}
	if c.Reconcile.Interval.Duration == 0 {
		c.Reconcile.Interval.Duration = 15 * time.Minute
	}
	if c.Reconcile.GameWorkers == 0 {
		c.Reconcile.GameWorkers = 8
	}
	if c.Reconcile.UserWorkers == 0 {
		c.Reconcile.UserWorkers = 1
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo store"))
		}
	case StorePostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			errs = append(errs, errors.New("db.host and db.database are required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog.base_url is required"))
	}
	if c.Reconcile.GameWorkers < 1 || c.Reconcile.UserWorkers < 1 {
		errs = append(errs, errors.New("reconcile workers must be positive"))
	}
	if c.Reconcile.Interval.Duration < time.Minute {
		errs = append(errs, errors.New("reconcile.interval must be at least 1m"))
	}
	if c.Spaces.Enabled() && (c.Spaces.Key == "" || c.Spaces.Secret == "") {
		errs = append(errs, errors.New("spaces.key and spaces.secret are required when spaces.bucket is set"))
	}
	return errors.Join(errs...)
}
