package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./jitdj.db" {
			t.Errorf("expected database path ./jitdj.db, got %s", config.Database.Path)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		inj := config.Injection
		if inj.Threshold() != 15*time.Second {
			t.Errorf("expected 15s threshold, got %v", inj.Threshold())
		}
		if inj.PollInterval() != 1500*time.Millisecond {
			t.Errorf("expected 1.5s poll interval, got %v", inj.PollInterval())
		}
		if inj.RetryAttempts != 3 {
			t.Errorf("expected 3 retry attempts, got %d", inj.RetryAttempts)
		}
		if inj.RetryDelay() != 500*time.Millisecond {
			t.Errorf("expected 0.5s retry delay, got %v", inj.RetryDelay())
		}
		if inj.MaxSessionDuration() != 0 {
			t.Errorf("expected unbounded session, got %v", inj.MaxSessionDuration())
		}
		if inj.FailurePolicy != FailurePolicyRetry {
			t.Errorf("expected retry failure policy, got %q", inj.FailurePolicy)
		}
		if err := inj.Validate(); err != nil {
			t.Errorf("default injection config should validate: %v", err)
		}

		if !config.Journal.Enabled || config.Journal.Dir != "logs" {
			t.Errorf("unexpected journal defaults: %+v", config.Journal)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
refresh_token = "refresh"

[injection]
injection_threshold_seconds = 20
failure_policy = "skip"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Injection.Threshold() != 20*time.Second {
			t.Errorf("expected 20s threshold, got %v", config.Injection.Threshold())
		}
		if config.Injection.FailurePolicy != FailurePolicySkip {
			t.Errorf("expected skip policy, got %q", config.Injection.FailurePolicy)
		}
		if config.Injection.RetryAttempts != 3 {
			t.Errorf("missing keys should keep defaults, got retry_attempts=%d", config.Injection.RetryAttempts)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("config should validate: %v", err)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[injection\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.AccessToken = "abc"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Credentials.Spotify.AccessToken != "abc" {
			t.Errorf("expected access token to persist, got %q", loaded.Credentials.Spotify.AccessToken)
		}
	})
}

func TestInjectionConfigValidate(t *testing.T) {
	base := DefaultConfig().Injection

	tc := []struct {
		name   string
		modify func(c *InjectionConfig)
	}{
		{"zero threshold", func(c *InjectionConfig) { c.ThresholdSeconds = 0 }},
		{"zero poll interval", func(c *InjectionConfig) { c.PollIntervalSeconds = 0 }},
		{"no attempts", func(c *InjectionConfig) { c.RetryAttempts = 0 }},
		{"negative delay", func(c *InjectionConfig) { c.RetryDelaySeconds = -1 }},
		{"unknown policy", func(c *InjectionConfig) { c.FailurePolicy = "explode" }},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSpotifyConfig(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		if err := (SpotifyConfig{}).Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		ok := SpotifyConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "r"}
		if err := ok.Validate(); err != nil {
			t.Errorf("expected valid credentials, got %v", err)
		}
	})

	t.Run("Token treats missing expiry as expired", func(t *testing.T) {
		token := (SpotifyConfig{AccessToken: "a", RefreshToken: "r"}).Token()
		if token.Valid() {
			t.Error("token without expiry should not be valid")
		}
		if token.RefreshToken != "r" {
			t.Errorf("expected refresh token r, got %q", token.RefreshToken)
		}
	})

	t.Run("Update", func(t *testing.T) {
		cfg := SpotifyConfig{RefreshToken: "old"}
		expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

		if err := cfg.Update(&oauth2.Token{AccessToken: "new", Expiry: expiry}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if cfg.AccessToken != "new" || cfg.RefreshToken != "old" {
			t.Errorf("unexpected credentials after update: %+v", cfg)
		}

		token := cfg.Token()
		if !token.Expiry.Equal(expiry) || !token.Valid() {
			t.Errorf("expected valid token expiring at %v, got %v", expiry, token.Expiry)
		}

		if err := cfg.Update(nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for nil token, got %v", err)
		}
	})
}
