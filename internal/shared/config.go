package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Link style values for [MatchConfig.LinkStyle].
const (
	LinkStyleWatchURL = "watch_url"
	LinkStyleAPILink  = "api_link"
)

// Credential flow values for [SpotifyConfig.Flow].
const (
	FlowUser = "user"
	FlowApp  = "app"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Match       MatchConfig       `toml:"match"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials and the credential flow selection.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Flow         string `toml:"flow"`
}

// YouTubeConfig contains the YouTube Data API key.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// MatchConfig controls how resolved videos are turned into links and how fast
// search requests are issued.
type MatchConfig struct {
	LinkStyle string  `toml:"link_style"`
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to a TOML file at the specified path.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration.
//
// A .env file in the working directory is loaded first when present; values
// already exported in the environment win over the file, and both win over
// the TOML config.
func ApplyEnv(config *Config) {
	_ = godotenv.Load()

	overlay := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	overlay(&config.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	overlay(&config.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	overlay(&config.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	overlay(&config.Credentials.YouTube.APIKey, "YOUTUBE_API_KEY")
}

// Validate checks configuration fields that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Credentials.Spotify.Flow {
	case "", FlowUser, FlowApp:
	default:
		return fmt.Errorf("%w: unknown credential flow %q", ErrInvalidConfig, c.Credentials.Spotify.Flow)
	}

	switch c.Match.LinkStyle {
	case "", LinkStyleWatchURL, LinkStyleAPILink:
	default:
		return fmt.Errorf("%w: unknown link style %q", ErrInvalidConfig, c.Match.LinkStyle)
	}

	return nil
}
