// Package config loads the groupctl configuration file and maps it onto
// the retry, poll and orchestrator settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/cuemby/groupctl/pkg/orchestrator"
	"github.com/cuemby/groupctl/pkg/poll"
	"github.com/cuemby/groupctl/pkg/retry"
	"github.com/cuemby/groupctl/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the groupctl configuration file
type Config struct {
	APIURL          string         `yaml:"api_url" validate:"required,url"`
	DeployURL       string         `yaml:"deploy_url" validate:"required,url"`
	CredentialsFile string         `yaml:"credentials_file"`
	Log             LogConfig      `yaml:"log"`
	Retry           RetryConfig    `yaml:"retry"`
	Poll            PollConfig     `yaml:"poll"`
	MetricsAddr     string         `yaml:"metrics_addr" validate:"omitempty,tcp_addr"`
	JournalPath     string         `yaml:"journal_path"`
	Tracing         tracing.Config `yaml:"tracing"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" validate:"gte=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	Delay             time.Duration `yaml:"delay" validate:"gte=0"`
	Backoff           string        `yaml:"backoff" validate:"oneof=fixed doubling"`
	RetryClientErrors bool          `yaml:"retry_client_errors"`
}

type PollConfig struct {
	MaxWait            time.Duration `yaml:"max_wait" validate:"gt=0"`
	CreateMaxWait      time.Duration `yaml:"create_max_wait" validate:"gt=0"`
	Interval           time.Duration `yaml:"interval" validate:"gt=0"`
	InspectMaxAttempts int           `yaml:"inspect_max_attempts" validate:"gte=1"`
	InspectTimeout     time.Duration `yaml:"inspect_timeout" validate:"gt=0"`
}

// DefaultPath is ~/.groupctl/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".groupctl", "config.yaml")
}

// DefaultJournalPath is ~/.groupctl/journal.db
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "groupctl-journal.db"
	}
	return filepath.Join(home, ".groupctl", "journal.db")
}

// Default returns the built-in configuration
func Default() *Config {
	rp := retry.DefaultPolicy()
	pp := poll.DefaultPolicy()
	return &Config{
		APIURL:          client.DefaultGroupsURL,
		DeployURL:       client.DefaultDeployURL,
		CredentialsFile: client.DefaultCredentialsPath(),
		Log:             LogConfig{Level: string(log.InfoLevel)},
		Retry: RetryConfig{
			MaxAttempts: rp.MaxAttempts,
			Timeout:     rp.Timeout,
			Delay:       rp.Delay,
			Backoff:     string(rp.Backoff),
		},
		Poll: PollConfig{
			MaxWait:            pp.MaxWait,
			CreateMaxWait:      orchestrator.DefaultCreateMaxWait,
			Interval:           pp.Interval,
			InspectMaxAttempts: pp.InspectMaxAttempts,
			InspectTimeout:     pp.InspectTimeout,
		},
		JournalPath: DefaultJournalPath(),
		Tracing:     tracing.DefaultConfig(),
	}
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RetryPolicy returns the submission retry policy
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy().
		WithMaxAttempts(c.Retry.MaxAttempts).
		WithTimeout(c.Retry.Timeout).
		WithBackoff(retry.Backoff(c.Retry.Backoff))
	p.Delay = c.Retry.Delay
	p.RetryClientErrors = c.Retry.RetryClientErrors
	return p
}

// PollPolicy returns the wait policy
func (c *Config) PollPolicy() poll.Policy {
	p := poll.DefaultPolicy()
	p.MaxWait = c.Poll.MaxWait
	p.Interval = c.Poll.Interval
	p.InspectMaxAttempts = c.Poll.InspectMaxAttempts
	p.InspectTimeout = c.Poll.InspectTimeout
	p.InspectDelay = c.Retry.Delay
	return p
}

// LogConfig returns the logger configuration
func (c *Config) LogConfig() log.Config {
	return log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
	}
}

// Orchestrator returns an orchestrator configuration for c and updates
func (c *Config) Orchestrator(rc client.ResourceClient, updates client.UpdateClient) orchestrator.Config {
	oc := orchestrator.DefaultConfig(rc)
	oc.Updates = updates
	oc.Retry = c.RetryPolicy()
	oc.Poll = c.PollPolicy()
	oc.CreateMaxWait = c.Poll.CreateMaxWait
	oc.ForcedDeleteDelay = c.Retry.Delay
	return oc
}
