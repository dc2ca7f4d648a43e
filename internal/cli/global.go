package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/internal/config"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/log"
)

const (
	DefaultServerURL = "http://localhost:5000"

	requestTimeoutEnvKey = "STARPLAN_REQUEST_TIMEOUT"

	// envFile is read from the working directory when present. Variables
	// already set in the environment keep their value.
	envFile = ".env"
)

type GlobalOptions struct {
	ServerURL      string
	ConfigFilePath string
	LogLevel       string

	env    *config.Config
	file   *client.Config
	logger *zap.Logger
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ServerURL:      DefaultServerURL,
		ConfigFilePath: client.DefaultConfigPath(),
		LogLevel:       "info",
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerURL, "server-url", "u", o.ServerURL, "Address of the star plan service")
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level (debug, info, warn, error)")
}

// Complete resolves every global setting. Flags win over the STARPLAN_*
// environment, which wins over the client config file.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s file: %w", envFile, err)
	}

	env, err := config.New()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	o.env = env

	if !cmd.Flags().Changed("log-level") && env.LogLevel != "" {
		o.LogLevel = env.LogLevel
	}
	o.logger = log.InitLog(log.ParseLevel(o.LogLevel))
	zap.ReplaceGlobals(o.logger)

	file, err := client.ParseConfigFile(o.ConfigFilePath)
	switch {
	case err == nil:
		o.file = file
	case errors.Is(err, fs.ErrNotExist):
		o.logger.Debug("no client config file", zap.String("path", o.ConfigFilePath))
	default:
		return err
	}

	if !cmd.Flags().Changed("server-url") {
		switch {
		case env.ServerURL != "":
			o.ServerURL = env.ServerURL
		case o.file != nil:
			o.ServerURL = o.file.Service.Server
		}
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	u, err := url.Parse(o.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", o.ServerURL, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid server url %q: no hostname", o.ServerURL)
	}
	return nil
}

// Client returns a service client for the resolved server.
func (o *GlobalOptions) Client() (*client.Client, error) {
	cfg := client.NewDefault()
	if o.file != nil {
		cfg.Service = o.file.Service
	}
	cfg.Service.Server = o.ServerURL
	if _, ok := os.LookupEnv(requestTimeoutEnvKey); ok || cfg.Service.Timeout == "" {
		cfg.Service.Timeout = o.env.RequestTimeout.String()
	}
	return client.NewFromConfig(cfg)
}

// Logger returns the logger installed by Complete.
func (o *GlobalOptions) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}
