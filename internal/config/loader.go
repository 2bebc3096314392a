package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// LiveKit
	if cfg.LiveKit.URL == "" {
		errs = append(errs, errors.New("livekit.url is required"))
	} else if !strings.HasPrefix(cfg.LiveKit.URL, "ws://") && !strings.HasPrefix(cfg.LiveKit.URL, "wss://") &&
		!strings.HasPrefix(cfg.LiveKit.URL, "http://") && !strings.HasPrefix(cfg.LiveKit.URL, "https://") {
		errs = append(errs, fmt.Errorf("livekit.url %q must be a ws(s):// or http(s):// URL", cfg.LiveKit.URL))
	}
	if cfg.LiveKit.APIKey == "" {
		errs = append(errs, errors.New("livekit.api_key is required"))
	}
	if cfg.LiveKit.APISecret == "" {
		errs = append(errs, errors.New("livekit.api_secret is required"))
	}
	if cfg.LiveKit.FeedURL != "" && !strings.HasPrefix(cfg.LiveKit.FeedURL, "ws://") && !strings.HasPrefix(cfg.LiveKit.FeedURL, "wss://") {
		errs = append(errs, fmt.Errorf("livekit.feed_url %q must be a ws(s):// URL", cfg.LiveKit.FeedURL))
	}

	// Both binaries resolve assistants from the database, so the DSN is
	// mandatory.
	if cfg.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("database.postgres_dsn is required"))
	}

	// Recording
	if cfg.Recording.Bucket != "" && cfg.Recording.Region == "" && cfg.Recording.Endpoint == "" {
		errs = append(errs, errors.New("recording.region is required when recording.bucket is set (unless a custom endpoint is configured)"))
	}
	if cfg.Recording.Bucket == "" {
		slog.Warn("recording.bucket is empty; post-call webhooks will report recording_path as null")
	}

	// Webhook
	if cfg.Webhook.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("webhook.max_attempts %d must not be negative", cfg.Webhook.MaxAttempts))
	}
	if cfg.Webhook.InitialBackoff < 0 {
		errs = append(errs, fmt.Errorf("webhook.initial_backoff %s must not be negative", cfg.Webhook.InitialBackoff))
	}
	if cfg.Webhook.MaxBackoff < 0 {
		errs = append(errs, fmt.Errorf("webhook.max_backoff %s must not be negative", cfg.Webhook.MaxBackoff))
	}
	if cfg.Webhook.InitialBackoff > 0 && cfg.Webhook.MaxBackoff > 0 && cfg.Webhook.InitialBackoff > cfg.Webhook.MaxBackoff {
		errs = append(errs, fmt.Errorf("webhook.initial_backoff %s exceeds webhook.max_backoff %s", cfg.Webhook.InitialBackoff, cfg.Webhook.MaxBackoff))
	}

	return errors.Join(errs...)
}
