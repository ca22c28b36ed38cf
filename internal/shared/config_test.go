package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("parses a valid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		content := `
[credentials.spotify]
client_id = "abc"
client_secret = "def"
redirect_uri = "http://localhost:3000/callback"
flow = "user"

[credentials.youtube]
api_key = "yt-key"

[match]
link_style = "api_link"
rate_limit = 2.5

[database]
path = "test.db"
max_open_conns = 3
max_idle_conns = 1
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Credentials.Spotify.ClientID != "abc" {
			t.Errorf("expected client_id abc, got %q", cfg.Credentials.Spotify.ClientID)
		}
		if cfg.Credentials.YouTube.APIKey != "yt-key" {
			t.Errorf("expected api_key yt-key, got %q", cfg.Credentials.YouTube.APIKey)
		}
		if cfg.Match.LinkStyle != LinkStyleAPILink {
			t.Errorf("expected link_style api_link, got %q", cfg.Match.LinkStyle)
		}
		if cfg.Match.RateLimit != 2.5 {
			t.Errorf("expected rate_limit 2.5, got %v", cfg.Match.RateLimit)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not [valid"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for malformed toml")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Credentials.Spotify.Flow != FlowUser {
		t.Errorf("expected default flow %q, got %q", FlowUser, cfg.Credentials.Spotify.Flow)
	}
	if cfg.Match.LinkStyle != LinkStyleWatchURL {
		t.Errorf("expected default link_style %q, got %q", LinkStyleWatchURL, cfg.Match.LinkStyle)
	}
	if cfg.Match.RateLimit <= 0 {
		t.Errorf("expected positive default rate_limit, got %v", cfg.Match.RateLimit)
	}
	if cfg.Database.Path == "" {
		t.Error("expected default database path")
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Credentials.Spotify.ClientID = "roundtrip"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Credentials.Spotify.ClientID != "roundtrip" {
		t.Errorf("expected saved client_id to survive, got %q", loaded.Credentials.Spotify.ClientID)
	}
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("creates example config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := LoadConfig(path); err != nil {
			t.Errorf("created file should parse: %v", err)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(path); err != nil {
			t.Fatal(err)
		}
		err := CreateConfigFile(path)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("YOUTUBE_API_KEY", "env-yt")
	t.Setenv("SPOTIFY_REDIRECT_URI", "")

	cfg := DefaultConfig()
	cfg.Credentials.Spotify.RedirectURI = "http://localhost:9999/callback"
	ApplyEnv(cfg)

	if cfg.Credentials.Spotify.ClientID != "env-id" {
		t.Errorf("expected env client id, got %q", cfg.Credentials.Spotify.ClientID)
	}
	if cfg.Credentials.YouTube.APIKey != "env-yt" {
		t.Errorf("expected env api key, got %q", cfg.Credentials.YouTube.APIKey)
	}
	if cfg.Credentials.Spotify.RedirectURI != "http://localhost:9999/callback" {
		t.Errorf("empty env var should not clear config value, got %q", cfg.Credentials.Spotify.RedirectURI)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects unknown flow", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Credentials.Spotify.Flow = "device"
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("expected ErrInvalidConfig")
		}
	})

	t.Run("rejects unknown link style", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Match.LinkStyle = "shortlink"
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("expected ErrInvalidConfig")
		}
	})
}
