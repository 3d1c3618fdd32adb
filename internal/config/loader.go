package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"inflow/internal/constants"
)

func Load(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.event_topic", "BROKER_KAFKA_EVENT_TOPIC")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("record_store.uri", "RECORD_STORE_URI")
	viper.BindEnv("record_store.database", "RECORD_STORE_DATABASE")

	viper.BindEnv("sms.base_url", "SMS_BASE_URL")
	viper.BindEnv("sms.api_key", "SMS_API_KEY")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

// applyDefaults fills the timing, windowing and threshold knobs that most
// deployments never touch.
func applyDefaults(cfg *Config) {
	if cfg.IMAP.CatchUpWindow <= 0 {
		cfg.IMAP.CatchUpWindow = constants.DefaultCatchUpWindow
	}
	if cfg.IMAP.HeartbeatInterval <= 0 {
		cfg.IMAP.HeartbeatInterval = constants.DefaultHeartbeatInterval
	}
	if cfg.IMAP.BackupScanInterval <= 0 {
		cfg.IMAP.BackupScanInterval = constants.DefaultBackupScanInterval
	}
	if cfg.IMAP.IdleTimeout <= 0 {
		cfg.IMAP.IdleTimeout = constants.DefaultIdleTimeout
	}
	if cfg.IMAP.MaxReconnectAttempts <= 0 {
		cfg.IMAP.MaxReconnectAttempts = constants.DefaultMaxReconnectAttempts
	}
	if cfg.IMAP.ReconnectInitial <= 0 {
		cfg.IMAP.ReconnectInitial = constants.DefaultReconnectInitial
	}
	if cfg.IMAP.ReconnectMax <= 0 {
		cfg.IMAP.ReconnectMax = constants.DefaultReconnectMax
	}
	if cfg.IMAP.AuthRetryDelay <= 0 {
		cfg.IMAP.AuthRetryDelay = constants.DefaultAuthRetryDelay
	}
	if cfg.IMAP.RateLimitRetryDelay <= 0 {
		cfg.IMAP.RateLimitRetryDelay = constants.DefaultRateLimitRetryDelay
	}

	if cfg.SMS.PollInterval <= 0 {
		cfg.SMS.PollInterval = constants.DefaultSMSPollInterval
	}
	if cfg.SMS.PageSize <= 0 {
		cfg.SMS.PageSize = constants.DefaultSMSPageSize
	}

	if cfg.Dedup.Retention <= 0 {
		cfg.Dedup.Retention = constants.DefaultRetention
	}
	if cfg.Dedup.HistorySize <= 0 {
		cfg.Dedup.HistorySize = constants.DefaultHistorySize
	}
	if cfg.Dedup.BodyPrefixLen <= 0 {
		cfg.Dedup.BodyPrefixLen = constants.DefaultBodyPrefixLen
	}
	if cfg.Dedup.TimestampRounding <= 0 {
		cfg.Dedup.TimestampRounding = constants.DefaultTimestampRounding
	}
	if cfg.Dedup.CompactInterval <= 0 {
		cfg.Dedup.CompactInterval = constants.DefaultCompactInterval
	}

	if cfg.Classifier.MinNumericSenderDigits <= 0 {
		cfg.Classifier.MinNumericSenderDigits = constants.DefaultMinNumericSenderDigits
	}
	if cfg.Classifier.DefaultCountryCode == "" {
		cfg.Classifier.DefaultCountryCode = constants.DefaultCountryCode
	}

	if cfg.Broker.Kafka.EventTopic == "" {
		cfg.Broker.Kafka.EventTopic = constants.DefaultEventTopic
	}

	for i := range cfg.IMAP.Accounts {
		if cfg.IMAP.Accounts[i].Mailbox == "" {
			cfg.IMAP.Accounts[i].Mailbox = "INBOX"
		}
		if cfg.IMAP.Accounts[i].Port == 0 {
			cfg.IMAP.Accounts[i].Port = 993
		}
	}
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
