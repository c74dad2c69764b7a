package notisync

import (
	"time"

	"github.com/dmitrymomot/notisync/pkg/backoff"
	"github.com/dmitrymomot/notisync/pkg/config"
)

// Config holds engine tuning read from the environment. Pass it to New
// via WithConfig.
type Config struct {
	PollInterval   time.Duration `env:"NOTIFICATIONS_POLL_INTERVAL" envDefault:"30s"`
	RetryBaseDelay time.Duration `env:"NOTIFICATIONS_RETRY_BASE_DELAY" envDefault:"5s"`
	RetryMaxDelay  time.Duration `env:"NOTIFICATIONS_RETRY_MAX_DELAY" envDefault:"80s"`
	MaxRetries     int           `env:"NOTIFICATIONS_MAX_RETRIES" envDefault:"3"`
	RetryJitter    float64       `env:"NOTIFICATIONS_RETRY_JITTER" envDefault:"0"`
}

// LoadConfig reads Config from environment variables, consulting .env
// files first.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BackoffPolicy converts the retry settings into a backoff policy.
func (c Config) BackoffPolicy() backoff.Policy {
	return backoff.Policy{
		BaseDelay:    c.RetryBaseDelay,
		MaxDelay:     c.RetryMaxDelay,
		MaxRetries:   c.MaxRetries,
		Factor:       2,
		JitterFactor: c.RetryJitter,
	}
}
