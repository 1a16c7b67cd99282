package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config describes the application level configuration loaded from json.
type Config struct {
	Bind        string          `json:"bind"`
	LogLevel    string          `json:"log_level"`
	CORSOrigins []string        `json:"cors_origins"`
	DB          DBConfig        `json:"db"`
	Media       MediaConfig     `json:"media"`
	RAWG        RAWGConfig      `json:"rawg"`
	Wikipedia   WikipediaConfig `json:"wikipedia"`
}

// DBConfig holds the sqlite catalog location.
type DBConfig struct {
	Path string `json:"path"`
}

// MediaConfig selects where covers, screenshots and metadata artifacts live.
// Backend is either "local" (DataDir on disk) or "s3".
type MediaConfig struct {
	Backend string   `json:"backend"`
	DataDir string   `json:"data_dir"`
	S3      S3Config `json:"s3"`
}

// S3Config holds the options for accessing the object store.
type S3Config struct {
	Host            string `json:"host"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	ForcePathStyle  bool   `json:"force_path_style"`
}

// RAWGConfig configures the game-database source. An empty APIKey disables
// the source; lookups then rely on the encyclopedia source alone.
type RAWGConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// WikipediaConfig configures the encyclopedia source.
type WikipediaConfig struct {
	Endpoint       string `json:"endpoint"`
	UserAgent      string `json:"user_agent"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LoadFirst tries to load configuration from the given paths, returning the
// first successfully decoded configuration. If none of the paths contain a
// readable config, an error is returned.
func LoadFirst(paths ...string) (*Config, error) {
	var lastErr error
	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("config not found in paths: %v", paths)
	}
	return nil, lastErr
}

// Load reads configuration from a single json file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Bind == "" {
		c.Bind = ":9001"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.DB.Path == "" {
		c.DB.Path = "./db/gamevault.db"
	}
	if c.Media.Backend == "" {
		c.Media.Backend = "local"
	}
	if c.Media.DataDir == "" {
		c.Media.DataDir = "./data"
	}
	if c.RAWG.BaseURL == "" {
		c.RAWG.BaseURL = "https://api.rawg.io/api"
	}
	if c.RAWG.TimeoutSeconds <= 0 {
		c.RAWG.TimeoutSeconds = 15
	}
	if c.Wikipedia.Endpoint == "" {
		c.Wikipedia.Endpoint = "https://en.wikipedia.org/w/api.php"
	}
	if c.Wikipedia.UserAgent == "" {
		c.Wikipedia.UserAgent = "GameVault/1.0 (personal media catalog)"
	}
	if c.Wikipedia.TimeoutSeconds <= 0 {
		c.Wikipedia.TimeoutSeconds = 10
	}
}

// Validate performs basic validation of the configuration.
func (c *Config) Validate() error {
	switch c.Media.Backend {
	case "local":
		if c.Media.DataDir == "" {
			return errors.New("config.media.data_dir must be set for the local backend")
		}
	case "s3":
		if c.Media.S3.Host == "" {
			return errors.New("config.media.s3.host must be set")
		}
		if c.Media.S3.Bucket == "" {
			return errors.New("config.media.s3.bucket must be set")
		}
	default:
		return fmt.Errorf("config.media.backend must be local or s3, got %q", c.Media.Backend)
	}
	if c.DB.Path == "" {
		return errors.New("config.db.path must be set")
	}
	return nil
}
