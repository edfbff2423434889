// Package config handles the XDG configuration directory and the config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "tasktracker"

	// ConfigFile is the settings filename inside the config directory.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// LocalDBFile is the default database filename of the local backend.
	LocalDBFile = "tasks.db"

	// LogFile receives log output of the interactive UI when debugging.
	LogFile = "tasktracker.log"

	// EnvPrefix prefixes environment overrides (TASKTRACKER_NEAR_NETWORK, ...).
	EnvPrefix = "TASKTRACKER"
)

// Backend names.
const (
	BackendNear   = "near"
	BackendGoogle = "google"
	BackendLocal  = "local"
)

// DefaultGas is the gas attached to contract change calls (30 Tgas).
const DefaultGas uint64 = 30_000_000_000_000

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `mapstructure:"-"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"-"`

	// Quiet suppresses informational output.
	Quiet bool `mapstructure:"-"`

	// Backend selects the remote task store: near, google or local.
	Backend string `mapstructure:"backend"`

	Near   NearConfig   `mapstructure:"near"`
	Google GoogleConfig `mapstructure:"google"`
	Local  LocalConfig  `mapstructure:"local"`
	Log    LogConfig    `mapstructure:"log"`
}

// NearConfig configures the NEAR contract backend.
type NearConfig struct {
	// Network is the NEAR network name (mainnet, testnet, or a near-cli entry).
	Network string `mapstructure:"network"`

	// RPCURL overrides the RPC endpoint of the network.
	RPCURL string `mapstructure:"rpc_url"`

	// ContractID is the account the task contract is deployed to.
	ContractID string `mapstructure:"contract_id"`

	// Gas is attached to create_task and delete_task_by_id calls.
	Gas uint64 `mapstructure:"gas"`

	// APIKey is sent as a bearer token to hosted RPC providers.
	APIKey string `mapstructure:"api_key"`

	// CLIConfig is an optional near-cli-rs config.toml to import networks from.
	CLIConfig string `mapstructure:"cli_config"`

	// CredentialsDir is where near-cli keeps account key files.
	CredentialsDir string `mapstructure:"credentials_dir"`
}

// GoogleConfig configures the Google Tasks backend.
type GoogleConfig struct {
	// OAuthClient is the OAuth client credentials file, relative to Dir.
	OAuthClient string `mapstructure:"oauth_client"`
}

// LocalConfig configures the SQLite backend.
type LocalConfig struct {
	// DBPath is the database file, relative to Dir.
	DBPath string `mapstructure:"db_path"`
}

// LogConfig configures console logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasktracker or $HOME/.config/tasktracker.
// The config file is not read; see Load.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := defaultConfig()
	cfg.Dir = dir
	return cfg, nil
}

// Load creates a Config for configDir and merges config.yaml and
// TASKTRACKER_* environment overrides into it. A missing config file is
// not an error.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(cfg.FilePath())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("near.network", cfg.Near.Network)
	v.SetDefault("near.rpc_url", "")
	v.SetDefault("near.contract_id", "")
	v.SetDefault("near.gas", cfg.Near.Gas)
	v.SetDefault("near.api_key", "")
	v.SetDefault("near.cli_config", "")
	v.SetDefault("near.credentials_dir", cfg.Near.CredentialsDir)
	v.SetDefault("google.oauth_client", cfg.Google.OAuthClient)
	v.SetDefault("local.db_path", cfg.Local.DBPath)
	v.SetDefault("log.level", cfg.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", cfg.FilePath(), err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", cfg.FilePath(), err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Backend: BackendNear,
		Near: NearConfig{
			Network:        "testnet",
			Gas:            DefaultGas,
			CredentialsDir: defaultNearCredentialsDir(),
		},
		Google: GoogleConfig{OAuthClient: OAuthClientFile},
		Local:  LocalConfig{DBPath: LocalDBFile},
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func defaultNearCredentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".near-credentials"
	}
	return filepath.Join(home, ".near-credentials")
}

// BackendName returns the configured backend, defaulting to near.
func (c *Config) BackendName() string {
	if c.Backend == "" {
		return BackendNear
	}
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the Google OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return c.resolve(c.Google.OAuthClient, OAuthClientFile)
}

// LogFilePath returns the path of the interactive UI's debug log.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Dir, LogFile)
}

// LocalDBPath returns the path to the local backend database.
func (c *Config) LocalDBPath() string {
	return c.resolve(c.Local.DBPath, LocalDBFile)
}

func (c *Config) resolve(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) || name == ":memory:" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}
