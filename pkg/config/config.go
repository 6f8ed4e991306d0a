package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		OpsLogTopic  string   `yaml:"ops_log_topic"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Ingest struct {
		BatchSize    int           `yaml:"batch_size"`
		FlushTimeout time.Duration `yaml:"flush_timeout"`
		BufferLimit  int           `yaml:"buffer_limit"`
	} `yaml:"ingest"`
	Alerts struct {
		// Sink is "kafka", "webhook" or "" to disable alerting.
		Sink       string        `yaml:"sink"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"alerts"`
	Analytics struct {
		// StartDate/EndDate bound the analysis range as YYYY-MM-DD; empty
		// means unbounded on that side.
		StartDate         string            `yaml:"start_date"`
		EndDate           string            `yaml:"end_date"`
		CorrelationMethod string            `yaml:"correlation_method"`
		RiskFreeRate      float64           `yaml:"risk_free_rate"`
		Workers           int               `yaml:"workers"`
		ReferenceAssets   map[string]string `yaml:"reference_assets"`
		RefreshInterval   time.Duration     `yaml:"refresh_interval"`
		LockTTL           time.Duration     `yaml:"lock_ttl"`
		ViewCacheTTL      time.Duration     `yaml:"view_cache_ttl"`

		// Classes tunes window sizes and anomaly thresholds per asset
		// class; keys are equity, crypto or economic. Unset fields keep
		// the class defaults.
		Classes map[string]AnalyticsClassConfig `yaml:"classes"`
	} `yaml:"analytics"`
}

// AnalyticsClassConfig overrides the default window sizes and anomaly
// thresholds for one asset class.
type AnalyticsClassConfig struct {
	MAWindows        []int `yaml:"ma_windows"`
	ShortMAWindow    int   `yaml:"short_ma_window"`
	LongMAWindow     int   `yaml:"long_ma_window"`
	VolumeWindow     int   `yaml:"volume_window"`
	VolatilityWindow int   `yaml:"volatility_window"`
	RSIPeriod        int   `yaml:"rsi_period"`
	BollingerWindow  int   `yaml:"bollinger_window"`

	ReturnZWindow       int     `yaml:"return_z_window"`
	VolumeZWindow       int     `yaml:"volume_z_window"`
	MinZObservations    int     `yaml:"min_z_observations"`
	VolatilityThreshold float64 `yaml:"volatility_threshold"`
	GapThreshold        float64 `yaml:"gap_threshold"`
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

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		c.Alerts.WebhookURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	switch c.Alerts.Sink {
	case "", "kafka", "webhook":
	default:
		return fmt.Errorf("alerts.sink must be 'kafka', 'webhook' or empty, got '%s'", c.Alerts.Sink)
	}
	if c.Alerts.Sink == "webhook" && c.Alerts.WebhookURL == "" {
		return fmt.Errorf("alerts.webhook_url is required for the webhook sink")
	}
	switch c.Analytics.CorrelationMethod {
	case "", "pearson", "signproxy":
	default:
		return fmt.Errorf("analytics.correlation_method must be 'pearson' or 'signproxy', got '%s'", c.Analytics.CorrelationMethod)
	}
	for class := range c.Analytics.Classes {
		switch class {
		case "equity", "crypto", "economic":
		default:
			return fmt.Errorf("analytics.classes keys must be 'equity', 'crypto' or 'economic', got '%s'", class)
		}
	}
	return nil
}
