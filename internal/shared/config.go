package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Debug       bool              `toml:"debug"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Injection   InjectionConfig   `toml:"injection"`
	Journal     JournalConfig     `toml:"journal"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last known OAuth2 token.
//
// The token fields are filled in by the auth command and refreshed after every session.
type SpotifyConfig struct {
	ClientID       string  `toml:"client_id"`
	ClientSecret   string  `toml:"client_secret"`
	RedirectURI    string  `toml:"redirect_uri"`
	AccessToken    string  `toml:"access_token"`
	RefreshToken   string  `toml:"refresh_token"`
	Expiry         string  `toml:"expiry"`
	DeviceID       string  `toml:"device_id"`
	RequestTimeout int     `toml:"request_timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// InjectionConfig holds the tunables of the just-in-time injection engine.
type InjectionConfig struct {
	ThresholdSeconds          float64 `toml:"injection_threshold_seconds"`
	PollIntervalSeconds       float64 `toml:"poll_interval_seconds"`
	RetryAttempts             int     `toml:"retry_attempts"`
	RetryDelaySeconds         float64 `toml:"retry_delay_seconds"`
	RetryMultiplier           float64 `toml:"retry_multiplier"`
	MaxSessionDurationSeconds float64 `toml:"max_session_duration_seconds"`
	FailurePolicy             string  `toml:"failure_policy"`
	ResolveWorkers            int     `toml:"resolve_workers"`
	ResolveRate               float64 `toml:"resolve_rate"`
}

// JournalConfig controls the JSONL session journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

const (
	FailurePolicyRetry = "retry"
	FailurePolicySkip  = "skip"
)

// Threshold returns the injection threshold as a [time.Duration].
func (c InjectionConfig) Threshold() time.Duration { return Seconds(c.ThresholdSeconds) }

// PollInterval returns the oracle poll interval as a [time.Duration].
func (c InjectionConfig) PollInterval() time.Duration { return Seconds(c.PollIntervalSeconds) }

// RetryDelay returns the delay between injection attempts as a [time.Duration].
func (c InjectionConfig) RetryDelay() time.Duration { return Seconds(c.RetryDelaySeconds) }

// MaxSessionDuration returns zero when the session is unbounded.
func (c InjectionConfig) MaxSessionDuration() time.Duration {
	if c.MaxSessionDurationSeconds <= 0 {
		return 0
	}
	return Seconds(c.MaxSessionDurationSeconds)
}

// Validate checks the injection tunables.
func (c InjectionConfig) Validate() error {
	switch {
	case c.ThresholdSeconds <= 0:
		return fmt.Errorf("%w: injection_threshold_seconds must be positive", ErrInvalidConfig)
	case c.PollIntervalSeconds <= 0:
		return fmt.Errorf("%w: poll_interval_seconds must be positive", ErrInvalidConfig)
	case c.RetryAttempts < 1:
		return fmt.Errorf("%w: retry_attempts must be at least 1", ErrInvalidConfig)
	case c.RetryDelaySeconds < 0:
		return fmt.Errorf("%w: retry_delay_seconds cannot be negative", ErrInvalidConfig)
	}

	switch c.FailurePolicy {
	case "", FailurePolicyRetry, FailurePolicySkip:
	default:
		return fmt.Errorf("%w: unknown failure_policy %q", ErrInvalidConfig, c.FailurePolicy)
	}
	return nil
}

// Validate checks that the Spotify credentials needed for a session are present.
func (s SpotifyConfig) Validate() error {
	var missing []string
	if s.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spotify %s must be set in config.toml", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Token builds an [oauth2.Token] from the stored credentials.
//
// A token with an empty or unparsable expiry is treated as expired so the refresh token is used.
func (s SpotifyConfig) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
		token.Expiry = expiry
	} else {
		token.Expiry = time.Unix(1, 0)
	}
	return token
}

// Update stores a (possibly refreshed) token.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidArgument)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		s.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// Map returns the credentials in the map form accepted by service constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Validate checks the whole configuration before any session starts.
func (c *Config) Validate() error {
	if err := c.Credentials.Spotify.Validate(); err != nil {
		return err
	}
	return c.Injection.Validate()
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
