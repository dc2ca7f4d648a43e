package client

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/yaml"
)

const (
	// TestRootDirEnvKey is the environment variable key used to set the file system root when testing.
	TestRootDirEnvKey = "STARPLAN_TEST_ROOT_DIR"
)

// Config holds the information needed to connect to a star plan service.
type Config struct {
	Service Service `json:"service"`

	// testRootDir is the root directory for test files.
	testRootDir string
}

// Service contains information how to reach the service.
type Service struct {
	// Server is the URL of the service (the part before /api/...).
	Server string `json:"server"`
	// Timeout bounds every request, e.g. "30s". Empty means DefaultTimeout.
	Timeout string `json:"timeout,omitempty"`
}

func NewDefault() *Config {
	c := &Config{}

	if value := os.Getenv(TestRootDirEnvKey); value != "" {
		c.testRootDir = filepath.Clean(value)
	}

	return c
}

// NewFromConfig returns a new service client from the given config.
func NewFromConfig(config *Config) (*Client, error) {
	httpClient, err := NewHTTPClientFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("NewFromConfig: creating HTTP client %w", err)
	}
	return newClient(config.Service.Server, httpClient), nil
}

// NewHTTPClientFromConfig returns a new HTTP Client from the given config.
func NewHTTPClientFromConfig(config *Config) (*http.Client, error) {
	timeout := DefaultTimeout
	if config.Service.Timeout != "" {
		d, err := time.ParseDuration(config.Service.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing timeout %q: %w", config.Service.Timeout, err)
		}
		timeout = d
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return httpClient, nil
}

// DefaultConfigPath returns the default path to the client config file.
func DefaultConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".starplan", "client.yaml")
}

func (c *Config) path(filename string) string {
	if c.testRootDir == "" {
		return filename
	}
	return filepath.Join(c.testRootDir, filename)
}

func ParseConfigFile(filename string) (*Config, error) {
	config := NewDefault()
	contents, err := os.ReadFile(config.path(filename))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WriteConfig writes a client config file using the given parameters.
func WriteConfig(filename string, server string) error {
	config := NewDefault()
	config.Service = Service{
		Server: server,
	}
	if err := config.Validate(); err != nil {
		return err
	}

	return config.Persist(filename)
}

func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	filename = c.path(filename)
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	validationErrors := make([]error, 0)
	validationErrors = append(validationErrors, validateService(c.Service)...)
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func validateService(service Service) []error {
	validationErrors := make([]error, 0)
	// Make sure the server is specified and well-formed
	if len(service.Server) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("no server found"))
	} else {
		u, err := url.Parse(service.Server)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: %w", service.Server, err))
		}
		if err == nil && len(u.Hostname()) == 0 {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: no hostname", service.Server))
		}
	}
	if service.Timeout != "" {
		if d, err := time.ParseDuration(service.Timeout); err != nil || d < 0 {
			validationErrors = append(validationErrors, fmt.Errorf("invalid timeout %q", service.Timeout))
		}
	}
	return validationErrors
}
