// Package config loads Lectern's configuration from, in increasing order of
// precedence: flag defaults, an optional YAML file, a .env file, LECTERN_*
// environment variables, and flags set on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "LECTERN_"

// Config holds the application configuration.
type Config struct {
	Env    string       `koanf:"env" validate:"oneof=development production"`
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Log    LogConfig    `koanf:"log"`
	Auth   AuthConfig   `koanf:"auth"`
	Import ImportConfig `koanf:"import"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// DBConfig holds storage configuration.
type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// AuthConfig holds session configuration.
type AuthConfig struct {
	// TokenKey is the hex encoded 32 byte PASETO key. When empty a random
	// key is generated at startup and sessions do not survive a restart.
	TokenKey     string        `koanf:"token_key" validate:"omitempty,hexadecimal,len=64"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

// ImportConfig holds the one-shot timetable import options.
type ImportConfig struct {
	Path     string `koanf:"path"`
	Owner    string `koanf:"owner" validate:"required_with=Path"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// flagKeys maps command-line flag names to config keys. Flags mapped to ""
// only steer loading and are not part of Config.
var flagKeys = map[string]string{
	"config":           "",
	"env-file":         "",
	"env":              "env",
	"addr":             "server.addr",
	"read-timeout":     "server.read_timeout",
	"write-timeout":    "server.write_timeout",
	"idle-timeout":     "server.idle_timeout",
	"db":               "db.path",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"token-key":        "auth.token_key",
	"session-ttl":      "auth.session_ttl",
	"cookie-secure":    "auth.cookie_secure",
	"import-timetable": "import.path",
	"owner":            "import.owner",
	"repos-dir":        "import.repos_dir",
}

// NewFlagSet defines every command-line flag with its default value.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("env-file", ".env", "Path to a .env file (ignored when missing)")
	f.String("env", "development", "Environment (development, production)")
	f.String("addr", ":8080", "HTTP listen address")
	f.Duration("read-timeout", 15*time.Second, "HTTP read timeout")
	f.Duration("write-timeout", 15*time.Second, "HTTP write timeout")
	f.Duration("idle-timeout", 60*time.Second, "HTTP idle timeout")
	f.String("db", "lectern.db", "Path to the SQLite database file")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "", "Log format (text, json); defaults to json in production")
	f.String("token-key", "", "Hex encoded 32 byte session key")
	f.Duration("session-ttl", 7*24*time.Hour, "Lifetime of a login session")
	f.Bool("cookie-secure", false, "Mark the session cookie Secure")
	f.String("import-timetable", "", "Import subjects from a timetable file, directory or git URL, then exit")
	f.String("owner", "", "Username that imported subjects belong to")
	f.String("repos-dir", "repos", "Directory for cloned timetable repositories")
	return f
}

// Load parses args and merges every configuration source.
func Load(args []string) (*Config, error) {
	f := NewFlagSet("lectern")
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	return LoadFlags(f)
}

// LoadFlags merges every configuration source using an already parsed
// flag set from NewFlagSet.
func LoadFlags(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if envFile, _ := f.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	flags := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
		return flagKeys[fl.Name], posflag.FlagVal(f, fl)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns LECTERN_SERVER_READ_TIMEOUT into server.read_timeout: the
// first underscore separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"server.idle_timeout":  c.Server.IdleTimeout,
		"auth.session_ttl":     c.Auth.SessionTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid config: %s must be positive, got %s", name, d)
		}
	}
	return nil
}
