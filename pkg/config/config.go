// Package config loads iCIMS client settings from the environment, an optional .env file
// and a secrets directory.
//
// Keys follow the environment variable names (ENV, CLIENT_ID, CLIENT_SECRET, ...). Values
// set in the process environment win over the .env file; CLIENT_SECRET may also be kept
// in <secrets dir>/client_secret.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/icims-client/pkg/auth"
	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/ratelimit"
	"github.com/spf13/viper"
)

// Keys understood by Load. Each maps to the upper-case environment variable.
const (
	KeyEnvironment    = "env"
	KeyClientID       = "client_id"
	KeyClientSecret   = "client_secret"
	KeyDevCustomerID  = "dev_customer_id"
	KeyPrdCustomerID  = "prd_customer_id"
	KeyAccessTokenURL = "access_token_url"
	KeyAPIBaseURL     = "api_base_url"
	KeyRedisURL       = "redis_url"
	KeyResumeDir      = "resume_dir"
	KeyOfferLetterDir = "offer_letter_dir"
	KeyRequestDelay   = "request_delay"
	KeyTokenLifetime  = "token_lifetime"
	KeyLogLevel       = "log_level"
)

const (
	// DefaultEnvFile is read when present.
	DefaultEnvFile = ".env"

	// DefaultSecretsDir holds one file per secret, named after its key.
	DefaultSecretsDir = "./secrets"

	// EnvironmentDev selects the development customer.
	EnvironmentDev = "DEV"
)

// ErrMissingSetting is returned when a required setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Config holds the client settings.
type Config struct {
	Environment    string
	ClientID       string
	ClientSecret   string
	DevCustomerID  string
	PrdCustomerID  string
	AccessTokenURL string
	APIBaseURL     string
	RedisURL       string
	ResumeDir      string
	OfferLetterDir string
	RequestDelay   time.Duration
	TokenLifetime  time.Duration
	LogLevel       string
}

// IsDev reports whether ENV selects the development customer.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, EnvironmentDev)
}

// CustomerID returns the customer id for the selected environment.
func (c *Config) CustomerID() string {
	if c.IsDev() {
		return c.DevCustomerID
	}
	return c.PrdCustomerID
}

// BaseURL returns the customer API root.
func (c *Config) BaseURL() string {
	return client.CustomerBaseURL(c.APIBaseURL, c.CustomerID())
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	var missing []string
	for _, s := range []struct {
		key   string
		value string
	}{
		{KeyEnvironment, c.Environment},
		{KeyClientID, c.ClientID},
		{KeyClientSecret, c.ClientSecret},
	} {
		if s.value == "" {
			missing = append(missing, strings.ToUpper(s.key))
		}
	}

	if c.CustomerID() == "" {
		if c.IsDev() {
			missing = append(missing, strings.ToUpper(KeyDevCustomerID))
		} else {
			missing = append(missing, strings.ToUpper(KeyPrdCustomerID))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("REQUEST_DELAY must not be negative (got %s)", c.RequestDelay)
	}
	return nil
}

// String describes the config without the client secret.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, ClientID: %s, CustomerID: %s, BaseURL: %s}",
		c.Environment, c.ClientID, c.CustomerID(), c.BaseURL())
}

// NewViper returns a viper instance with defaults and environment bindings for every key.
// Callers may bind flags to it before calling FromViper.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyAccessTokenURL, auth.DefaultTokenURL)
	v.SetDefault(KeyAPIBaseURL, client.DefaultAPIHost)
	v.SetDefault(KeyResumeDir, filepath.Join("docs", "resumes"))
	v.SetDefault(KeyOfferLetterDir, filepath.Join("docs", "offer_letters"))
	v.SetDefault(KeyRequestDelay, ratelimit.DefaultInterval)
	v.SetDefault(KeyTokenLifetime, auth.DefaultLifetime)
	v.SetDefault(KeyLogLevel, "info")

	v.AutomaticEnv()
	for _, key := range []string{
		KeyEnvironment, KeyClientID, KeyClientSecret, KeyDevCustomerID, KeyPrdCustomerID,
		KeyAccessTokenURL, KeyAPIBaseURL, KeyRedisURL, KeyResumeDir, KeyOfferLetterDir,
		KeyRequestDelay, KeyTokenLifetime, KeyLogLevel,
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	return v
}

// Options control where Load looks for files.
type Options struct {
	// EnvFile is a dotenv file; empty selects DefaultEnvFile. A missing file is ignored.
	EnvFile string

	// SecretsDir is searched for client_secret; empty selects DefaultSecretsDir.
	SecretsDir string
}

// Load reads the configuration using a fresh viper instance.
func Load(opts Options) (*Config, error) {
	return FromViper(NewViper(), opts)
}

// FromViper reads the configuration from v, merging the env file and secrets directory
// described by opts, and validates it.
func FromViper(v *viper.Viper, opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := readEnvFile(v, envFile); err != nil {
		return nil, err
	}

	secretsDir := opts.SecretsDir
	if secretsDir == "" {
		secretsDir = DefaultSecretsDir
	}
	if v.GetString(KeyClientSecret) == "" {
		secret, err := readSecret(secretsDir, KeyClientSecret)
		if err != nil {
			return nil, err
		}
		if secret != "" {
			v.Set(KeyClientSecret, secret)
		}
	}

	cfg := &Config{
		Environment:    strings.TrimSpace(v.GetString(KeyEnvironment)),
		ClientID:       v.GetString(KeyClientID),
		ClientSecret:   v.GetString(KeyClientSecret),
		DevCustomerID:  v.GetString(KeyDevCustomerID),
		PrdCustomerID:  v.GetString(KeyPrdCustomerID),
		AccessTokenURL: v.GetString(KeyAccessTokenURL),
		APIBaseURL:     v.GetString(KeyAPIBaseURL),
		RedisURL:       v.GetString(KeyRedisURL),
		ResumeDir:      v.GetString(KeyResumeDir),
		OfferLetterDir: v.GetString(KeyOfferLetterDir),
		RequestDelay:   v.GetDuration(KeyRequestDelay),
		TokenLifetime:  v.GetDuration(KeyTokenLifetime),
		LogLevel:       v.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func readSecret(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
