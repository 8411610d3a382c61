package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gameserverctl/internal/models"
	"gameserverctl/pkg/logging"
)

// Defaults applied when a setting is left out of the file.
const (
	DefaultRegion             = "us-west-2"
	DefaultStatusPort         = 26900
	DefaultControlPort        = 5000
	DefaultProbeTimeout       = 3 * time.Second
	DefaultTagKey             = "Name"
	DefaultTagValue           = "7dtd"
	DefaultStartRetryInterval = 10 * time.Second
	DefaultStartMaxAttempts   = 30
)

// Probe modes decide what a non-refused connection failure means.
const (
	// ProbeModeStrict surfaces timeouts, DNS and routing failures as errors
	ProbeModeStrict = "strict"
	// ProbeModePermissive reports any connection failure as "game not running"
	ProbeModePermissive = "permissive"
)

// Config is the root configuration structure.
type Config struct {
	AWS        *AWSConfig        `yaml:"aws" hcl:"aws,block"`
	GameServer *GameServerConfig `yaml:"game_server" hcl:"game_server,block"`
	Instance   *InstanceConfig   `yaml:"instance" hcl:"instance,block"`
}

// AWSConfig holds AWS session settings.
type AWSConfig struct {
	Region          string `yaml:"region" hcl:"region,optional"`
	Profile         string `yaml:"profile" hcl:"profile,optional"`
	AccessKeyID     string `yaml:"access_key_id" hcl:"access_key_id,optional"`
	SecretAccessKey string `yaml:"secret_access_key" hcl:"secret_access_key,optional"`
	SessionToken    string `yaml:"session_token" hcl:"session_token,optional"`
}

// GameServerConfig describes the game process and its control endpoint.
type GameServerConfig struct {
	Host            string `yaml:"host" hcl:"host,optional"`
	StopUsername    string `yaml:"stop_username" hcl:"stop_username,optional"`
	StopPassword    string `yaml:"stop_password" hcl:"stop_password,optional"`
	StatusPort      int    `yaml:"status_port" hcl:"status_port,optional"`
	ControlPort     int    `yaml:"control_port" hcl:"control_port,optional"`
	ProbeTimeoutStr string `yaml:"probe_timeout" hcl:"probe_timeout,optional"`
	ProbeMode       string `yaml:"probe_mode" hcl:"probe_mode,optional"`

	ProbeTimeout time.Duration `yaml:"-"`
}

// UnmarshalYAML also accepts the short form `game_server: <host>`.
func (g *GameServerConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&g.Host)
	}
	type plain GameServerConfig
	return node.Decode((*plain)(g))
}

// InstanceConfig selects the EC2 instance and tunes the start retry.
type InstanceConfig struct {
	TagKey                string `yaml:"tag_key" hcl:"tag_key,optional"`
	TagValue              string `yaml:"tag_value" hcl:"tag_value,optional"`
	StartRetryIntervalStr string `yaml:"start_retry_interval" hcl:"start_retry_interval,optional"`
	StartMaxAttemptsSet   *int   `yaml:"start_max_attempts" hcl:"start_max_attempts,optional"`
	StartMaxWaitStr       string `yaml:"start_max_wait" hcl:"start_max_wait,optional"`

	StartRetryInterval time.Duration `yaml:"-"`
	StartMaxAttempts   int           `yaml:"-"` // 0 = unlimited, then start_max_wait must be set
	StartMaxWait       time.Duration `yaml:"-"`
}

// Loader reads configuration files
type Loader struct {
	logger logging.Logger
}

// NewLoader creates a new Loader with a specific logger
func NewLoader(logger logging.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load reads a YAML file, or an HCL file when the path ends in .hcl, then
// applies defaults and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		l.logger.Debug("Parsing HCL configuration %s", path)
		cfg, err = parseHCL(path)
	} else {
		l.logger.Debug("Parsing YAML configuration %s", path)
		cfg, err = parseYAML(path)
	}
	if err != nil {
		return nil, err
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.logger.Debug("Loaded configuration: region=%s host=%s tag=%s",
		cfg.AWS.Region, cfg.GameServer.Host, cfg.Tag())
	return cfg, nil
}

func parseYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, NewConfigError(ErrInvalidFile, "", "failed to read config file "+path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewConfigError(ErrInvalidFile, "", "failed to parse YAML config "+path, err)
	}
	return cfg, nil
}

// applyDefaults fills unset values and parses duration strings
func applyDefaults(cfg *Config) error {
	if cfg.AWS != nil && cfg.AWS.Region == "" {
		cfg.AWS.Region = DefaultRegion
	}

	if gs := cfg.GameServer; gs != nil {
		if gs.StatusPort == 0 {
			gs.StatusPort = DefaultStatusPort
		}
		if gs.ControlPort == 0 {
			gs.ControlPort = DefaultControlPort
		}
		if gs.ProbeMode == "" {
			gs.ProbeMode = ProbeModeStrict
		}
		gs.ProbeMode = strings.ToLower(gs.ProbeMode)

		d, err := parseDuration("game_server.probe_timeout", gs.ProbeTimeoutStr, DefaultProbeTimeout)
		if err != nil {
			return err
		}
		gs.ProbeTimeout = d
	}

	if cfg.Instance == nil {
		cfg.Instance = &InstanceConfig{}
	}
	inst := cfg.Instance
	if inst.TagKey == "" {
		inst.TagKey = DefaultTagKey
	}
	if inst.TagValue == "" {
		inst.TagValue = DefaultTagValue
	}
	inst.StartMaxAttempts = DefaultStartMaxAttempts
	if inst.StartMaxAttemptsSet != nil {
		inst.StartMaxAttempts = *inst.StartMaxAttemptsSet
	}

	interval, err := parseDuration("instance.start_retry_interval", inst.StartRetryIntervalStr, DefaultStartRetryInterval)
	if err != nil {
		return err
	}
	inst.StartRetryInterval = interval

	maxWait, err := parseDuration("instance.start_max_wait", inst.StartMaxWaitStr, 0)
	if err != nil {
		return err
	}
	inst.StartMaxWait = maxWait

	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, NewConfigError(ErrInvalidValue, field, fmt.Sprintf("cannot parse duration %q", value), err)
	}
	return d, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.AWS == nil {
		return NewConfigError(ErrMissingSection, "aws", "no AWS config found", nil)
	}
	if c.AWS.AccessKeyID != "" && c.AWS.SecretAccessKey == "" {
		return NewConfigError(ErrInvalidValue, "aws.secret_access_key", "required when access_key_id is set", nil)
	}

	if c.GameServer == nil {
		return NewConfigError(ErrMissingSection, "game_server", "no game server config found", nil)
	}
	gs := c.GameServer
	if gs.Host == "" {
		return NewConfigError(ErrInvalidValue, "game_server.host", "host is required", nil)
	}
	if err := validatePort("game_server.status_port", gs.StatusPort); err != nil {
		return err
	}
	if err := validatePort("game_server.control_port", gs.ControlPort); err != nil {
		return err
	}
	if gs.ProbeMode != ProbeModeStrict && gs.ProbeMode != ProbeModePermissive {
		return NewConfigError(ErrInvalidValue, "game_server.probe_mode",
			fmt.Sprintf("must be %q or %q (got %q)", ProbeModeStrict, ProbeModePermissive, gs.ProbeMode), nil)
	}
	if gs.ProbeTimeout <= 0 {
		return NewConfigError(ErrInvalidValue, "game_server.probe_timeout", "must be positive", nil)
	}
	if (gs.StopUsername == "") != (gs.StopPassword == "") {
		return NewConfigError(ErrInvalidValue, "game_server.stop_username",
			"stop_username and stop_password must be set together", nil)
	}

	if c.Instance != nil {
		if c.Instance.StartRetryInterval <= 0 {
			return NewConfigError(ErrInvalidValue, "instance.start_retry_interval", "must be positive", nil)
		}
		if c.Instance.StartMaxAttempts < 0 {
			return NewConfigError(ErrInvalidValue, "instance.start_max_attempts", "must not be negative", nil)
		}
		if c.Instance.StartMaxWait < 0 {
			return NewConfigError(ErrInvalidValue, "instance.start_max_wait", "must not be negative", nil)
		}
		if c.Instance.StartMaxAttempts == 0 && c.Instance.StartMaxWait == 0 {
			return NewConfigError(ErrInvalidValue, "instance.start_max_attempts",
				"unlimited attempts require instance.start_max_wait", nil)
		}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return NewConfigError(ErrInvalidValue, field, fmt.Sprintf("port %d out of range", port), nil)
	}
	return nil
}

// Tag renders the instance tag filter as key=value
func (c *Config) Tag() string {
	if c.Instance == nil {
		return ""
	}
	return c.Instance.TagKey + "=" + c.Instance.TagValue
}

// Endpoint returns the game server endpoint described by the configuration
func (c *Config) Endpoint() models.GameServerEndpoint {
	return models.GameServerEndpoint{
		Host:         c.GameServer.Host,
		StatusPort:   c.GameServer.StatusPort,
		ControlPort:  c.GameServer.ControlPort,
		StopUsername: c.GameServer.StopUsername,
		StopPassword: c.GameServer.StopPassword,
	}
}
