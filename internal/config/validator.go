package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Redis); err != nil {
		errors = append(errors, err)
	}

	if err := validateRecordStore(cfg.RecordStore); err != nil {
		errors = append(errors, err)
	}

	if err := validateChannels(cfg); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	case "noop", "":
		return nil
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, noop)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateRecordStore(cfg RecordStoreConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "record_store.uri",
			Message: "record store URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "record_store.uri",
			Message: "record store URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "record_store.database",
			Message: "record store database name is required",
		}
	}

	return nil
}

// validateChannels requires at least one channel to watch and complete
// credentials for each configured account.
func validateChannels(cfg *Config) error {
	if len(cfg.IMAP.Accounts) == 0 && !cfg.SMS.Enabled {
		return &ValidationError{
			Field:   "imap.accounts",
			Message: "at least one IMAP account or an enabled SMS provider is required",
		}
	}

	seen := make(map[string]bool, len(cfg.IMAP.Accounts))
	for i, acct := range cfg.IMAP.Accounts {
		field := fmt.Sprintf("imap.accounts[%d]", i)
		if acct.ID == "" {
			return &ValidationError{Field: field + ".id", Message: "account ID is required"}
		}
		if seen[acct.ID] {
			return &ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate account ID %q", acct.ID)}
		}
		seen[acct.ID] = true
		if acct.Host == "" {
			return &ValidationError{Field: field + ".host", Message: "host is required"}
		}
		if acct.Username == "" {
			return &ValidationError{Field: field + ".username", Message: "username is required"}
		}
		if acct.Password == "" {
			return &ValidationError{Field: field + ".password", Message: "password is required"}
		}
	}

	if cfg.SMS.Enabled {
		if cfg.SMS.BaseURL == "" {
			return &ValidationError{Field: "sms.base_url", Message: "base URL is required when SMS is enabled"}
		}
		if cfg.SMS.AccountID == "" {
			return &ValidationError{Field: "sms.account_id", Message: "account ID is required when SMS is enabled"}
		}
		if seen[cfg.SMS.AccountID] {
			return &ValidationError{Field: "sms.account_id", Message: fmt.Sprintf("account ID %q collides with an IMAP account", cfg.SMS.AccountID)}
		}
	}

	return nil
}
