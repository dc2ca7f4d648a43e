package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const envPrefix = "STARPLAN"

// Config is the environment part of the client configuration. Flags override
// it and it overrides the client config file.
type Config struct {
	// ServerURL is empty when the environment does not set it.
	ServerURL      string        `envconfig:"SERVER_URL" default:""`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	PollJitter     time.Duration `envconfig:"POLL_JITTER" default:"0s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MetricsAddress string        `envconfig:"METRICS_ADDRESS" default:""`
}

// New reads the STARPLAN_* environment.
func New() (*Config, error) {
	c := new(Config)
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.PollJitter < 0 {
		errs = append(errs, fmt.Errorf("poll jitter must not be negative, got %s", c.PollJitter))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %v", utilerrors.NewAggregate(errs).Error())
	}
	return nil
}
