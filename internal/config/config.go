package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RecordStore    RecordStoreConfig    `mapstructure:"record_store"`
	IMAP           IMAPConfig           `mapstructure:"imap"`
	SMS            SMSConfig            `mapstructure:"sms"`
	Dedup          DedupConfig          `mapstructure:"dedup"`
	Classifier     ClassifierConfig     `mapstructure:"classifier"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// ServerConfig covers the ops HTTP listener (/health, /metrics).
type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"` // "kafka" or "noop"
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	EventTopic string   `mapstructure:"event_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecordStoreConfig configures the bundled mongo adapter for the external
// record store. The ingestion core itself only sees the interface.
type RecordStoreConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type IMAPConfig struct {
	Accounts             []IMAPAccountConfig `mapstructure:"accounts"`
	CatchUpWindow        int                 `mapstructure:"catch_up_window"`
	HeartbeatInterval    time.Duration       `mapstructure:"heartbeat_interval"`
	BackupScanInterval   time.Duration       `mapstructure:"backup_scan_interval"`
	IdleTimeout          time.Duration       `mapstructure:"idle_timeout"`
	MaxReconnectAttempts int                 `mapstructure:"max_reconnect_attempts"`
	ReconnectInitial     time.Duration       `mapstructure:"reconnect_initial"`
	ReconnectMax         time.Duration       `mapstructure:"reconnect_max"`
	AuthRetryDelay       time.Duration       `mapstructure:"auth_retry_delay"`
	RateLimitRetryDelay  time.Duration       `mapstructure:"rate_limit_retry_delay"`
}

type IMAPAccountConfig struct {
	ID       string `mapstructure:"id"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`
	// SelfAddresses are addresses this system sends from; mail from any of
	// them is classified outbound and never ingested.
	SelfAddresses []string `mapstructure:"self_addresses"`
}

type SMSConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	AccountID         string        `mapstructure:"account_id"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	PageSize          int           `mapstructure:"page_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type DedupConfig struct {
	Retention         time.Duration `mapstructure:"retention"`
	HistorySize       int           `mapstructure:"history_size"`
	BodyPrefixLen     int           `mapstructure:"body_prefix_len"`
	TimestampRounding time.Duration `mapstructure:"timestamp_rounding"`
	CompactInterval   time.Duration `mapstructure:"compact_interval"`
}

type ClassifierConfig struct {
	MinNumericSenderDigits int    `mapstructure:"min_numeric_sender_digits"`
	DefaultCountryCode     string `mapstructure:"default_country_code"`
}

type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}
