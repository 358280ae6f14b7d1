package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/citecheck/citecheck/internal/util"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultConfigFile is the default path to the client's configuration file
	DefaultConfigFile = ".citecheck/config.yaml"
	// DefaultDataDir is the default directory where the persistent client store lives
	DefaultDataDir = ".citecheck/data"
	// DefaultServiceURL is the default address of the validation backend
	DefaultServiceURL = "http://localhost:8000"
	// DefaultStyle is the citation style submitted when none is given
	DefaultStyle = "apa7"
)

var singleConfig *Config = nil

// Config is the client configuration, resolved once at startup and passed by
// reference to the components that need it. Environment variables override
// defaults; an optional YAML config file overrides both.
type Config struct {
	// ServiceURL is the base URL of the validation backend (the part before /api/...).
	ServiceURL string `envconfig:"CITECHECK_SERVICE_URL" default:"http://localhost:8000" json:"service-url" validate:"required,url"`
	// DataDir is the directory holding the persistent client store.
	DataDir string `envconfig:"CITECHECK_DATA_DIR" default:".citecheck/data" json:"data-dir" validate:"required"`
	// PollInterval is the nominal wait between two status polls.
	PollInterval util.Duration `envconfig:"CITECHECK_POLL_INTERVAL" default:"2s" json:"poll-interval,omitempty"`
	// MaxPollAttempts bounds the poll loop. 90 attempts spaced 2s apart is
	// about 3 minutes of wall clock.
	MaxPollAttempts int `envconfig:"CITECHECK_MAX_POLL_ATTEMPTS" default:"90" json:"max-poll-attempts,omitempty" validate:"gt=0"`
	// GatingEnabled turns on the free-tier results gate.
	GatingEnabled bool `envconfig:"CITECHECK_GATING_ENABLED" default:"true" json:"gating-enabled"`
	// LogLevel is the zap level: "debug", "info", "warn" or "error".
	LogLevel string `envconfig:"CITECHECK_LOG_LEVEL" default:"info" json:"log-level,omitempty"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

func NewDefault() *Config {
	c := new(Config)
	if err := envconfig.Process("", c); err != nil {
		panic(err)
	}
	c.ServiceURL = DefaultServiceURL
	c.DataDir = DefaultDataDir
	return c
}

// ParseConfigFile reads the config file and unmarshals it into the Config struct
func (cfg *Config) ParseConfigFile(cfgFile string) error {
	contents, err := os.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return yaml.Unmarshal(contents, cfg)
}

// Validate checks that the required fields are set and well formed.
func (cfg *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	return nil
}

func (cfg *Config) String() string {
	contents, err := json.Marshal(cfg)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}
