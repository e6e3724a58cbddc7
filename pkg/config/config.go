package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		// Aggregated error logs are shipped to this Kafka topic when set.
		CollectorTopic string `yaml:"collector_topic"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Database struct {
		Driver          string        `yaml:"driver"` // postgres or sqlite
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		AutoMigrate     bool          `yaml:"auto_migrate"`
		MigrationsPath  string        `yaml:"migrations_path"`
	} `yaml:"database"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic"`
		IngestTopic  string   `yaml:"ingest_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Window struct {
		Size           time.Duration      `yaml:"size"`
		Grace          time.Duration      `yaml:"grace"`
		Schedule       string             `yaml:"schedule"`
		Dispatch       string             `yaml:"dispatch"` // direct or queue
		MaxSkew        time.Duration      `yaml:"max_skew"`
		RunOnStart     bool               `yaml:"run_on_start"`
		ChannelWeights map[string]float64 `yaml:"channel_weights"`
	} `yaml:"window"`
	Queue struct {
		Name         string        `yaml:"name"`
		Workers      int           `yaml:"workers"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"queue"`
	Realtime struct {
		Enabled      bool          `yaml:"enabled"`
		BufferSize   int           `yaml:"buffer_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"realtime"`
	Events struct {
		BufferSize int           `yaml:"buffer_size"`
		MaxRetries int           `yaml:"max_retries"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
	} `yaml:"events"`
	Feeds struct {
		Enabled      bool          `yaml:"enabled"`
		PollInterval time.Duration `yaml:"poll_interval"`
		DedupeTTL    time.Duration `yaml:"dedupe_ttl"`
		ScorerURL    string        `yaml:"scorer_url"`
		Timeout      time.Duration `yaml:"timeout"`
		Sources      []FeedSource  `yaml:"sources"`
	} `yaml:"feeds"`
	Ingest struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"ingest"`
	Cache struct {
		ResponseTTL time.Duration `yaml:"response_ttl"`
	} `yaml:"cache"`
}

// FeedSource binds one RSS/Atom feed to a catalog source and the instruments its items are filed under.
type FeedSource struct {
	URL     string   `yaml:"url"`
	Source  string   `yaml:"source"`  // source name in the catalog
	Type    string   `yaml:"type"`    // news, social or economic; defaults to news
	Channel string   `yaml:"channel"` // defaults to the source type
	Tickers []string `yaml:"tickers"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads a .env file when present, then the YAML config, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_EVENTS_TOPIC"); v != "" {
		c.Kafka.EventsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("WINDOW_DISPATCH"); v != "" {
		c.Window.Dispatch = v
	}
	if v := os.Getenv("SCORER_URL"); v != "" {
		c.Feeds.ScorerURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}
	if c.Window.Size == 0 {
		c.Window.Size = 30 * time.Minute
	}
	if c.Window.Grace == 0 {
		c.Window.Grace = time.Minute
	}
	if c.Window.Schedule == "" {
		c.Window.Schedule = "0 1,31 * * * *"
	}
	if c.Window.Dispatch == "" {
		c.Window.Dispatch = "direct"
	}
	if c.Window.MaxSkew == 0 {
		c.Window.MaxSkew = 5 * time.Minute
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "sentipulse:windows"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = 1024
	}
	if c.Feeds.PollInterval == 0 {
		c.Feeds.PollInterval = 5 * time.Minute
	}
	if c.Feeds.DedupeTTL == 0 {
		c.Feeds.DedupeTTL = 72 * time.Hour
	}
	if c.Ingest.RatePerSecond == 0 {
		c.Ingest.RatePerSecond = 20
	}
	if c.Ingest.Burst == 0 {
		c.Ingest.Burst = 40
	}
	if c.Cache.ResponseTTL == 0 {
		c.Cache.ResponseTTL = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got '%s'", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Window.Size <= 0 || c.Window.Size%time.Minute != 0 {
		return fmt.Errorf("window.size must be a positive whole number of minutes, got %s", c.Window.Size)
	}
	if c.Window.Grace < 0 || c.Window.Grace >= c.Window.Size {
		return fmt.Errorf("window.grace must be in [0, window.size)")
	}
	if c.Window.Dispatch != "direct" && c.Window.Dispatch != "queue" {
		return fmt.Errorf("window.dispatch must be 'direct' or 'queue', got '%s'", c.Window.Dispatch)
	}
	if c.Window.Dispatch == "queue" && !c.Redis.Enabled {
		return fmt.Errorf("window.dispatch 'queue' requires redis.enabled")
	}
	for ch, w := range c.Window.ChannelWeights {
		if w < 0 {
			return fmt.Errorf("window.channel_weights[%s] must be >= 0", ch)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.EventsTopic == "" {
		return fmt.Errorf("kafka.events_topic is required when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.IngestTopic == "" {
		return fmt.Errorf("kafka.ingest_topic is required when the consumer is enabled")
	}
	for i, f := range c.Feeds.Sources {
		if f.URL == "" || f.Source == "" || len(f.Tickers) == 0 {
			return fmt.Errorf("feeds.sources[%d] needs url, source and tickers", i)
		}
		switch f.Type {
		case "", "news", "social", "economic":
		default:
			return fmt.Errorf("feeds.sources[%d].type must be news, social or economic", i)
		}
	}
	return nil
}
