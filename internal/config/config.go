// Package config loads bbpr configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/ryo246912/bbpr/internal/bitbucket"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BBPR"

// Config holds client and CLI settings.
type Config struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	Repo        string        `mapstructure:"repo"`
	Username    string        `mapstructure:"username"`
	AppPassword string        `mapstructure:"app_password"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// LoadOptions say where configuration comes from. Zero values are skipped.
type LoadOptions struct {
	// Path of the YAML config file; a missing file is not an error
	Path string
	// EnvFile is a dotenv file whose entries fill unset environment variables
	EnvFile string
	// Flags are bound by key name and win over every other source
	Flags *pflag.FlagSet
}

// DefaultPath returns ~/.config/bbpr/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "bbpr", "config.yaml")
}

// Load reads configuration with precedence flags > env > env file > config file > defaults.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		// Load keeps variables that are already set
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config %s: %w", opts.Path, err)
		}
	}

	if opts.Flags != nil {
		for _, key := range keys {
			flag := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var keys = []string{
	"base_url",
	"repo",
	"username",
	"app_password",
	"token",
	"timeout",
	"log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", bitbucket.DefaultBaseURL)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "warn")
}

func bindEnvs(v *viper.Viper) {
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate ensures fields hold usable values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.AppPassword != "" && c.Username == "" {
		return errors.New("invalid config: username is required with app_password")
	}
	return nil
}

// Host returns the host name of BaseURL, used to key stored tokens.
func (c Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Credentials returns the configured credentials. When neither token nor
// app password is set, lookup is asked for a stored token; a lookup failure
// means anonymous access.
func (c Config) Credentials(lookup func(host string) (string, error)) bitbucket.Credentials {
	creds := bitbucket.Credentials{
		Username:    c.Username,
		AppPassword: c.AppPassword,
		Token:       c.Token,
	}
	if !creds.Anonymous() || lookup == nil {
		return creds
	}

	if token, err := lookup(c.Host()); err == nil {
		creds.Token = token
	}
	return creds
}
