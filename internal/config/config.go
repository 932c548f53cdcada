package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Queue struct {
		// Backend is "memory" or "redis".
		Backend  string `yaml:"backend"`
		RedisURL string `yaml:"redis_url"`
		Name     string `yaml:"name"`
	} `yaml:"queue"`

	Storage struct {
		TempDir     string `yaml:"temp_dir"`
		OutputDir   string `yaml:"output_dir"`
		TrackingDir string `yaml:"tracking_dir"`
		Database    string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	LLM struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`

	Voice struct {
		Male   string `yaml:"male"`
		Female string `yaml:"female"`
		Rate   string `yaml:"rate"`
		Binary string `yaml:"binary"`
	} `yaml:"voice"`

	Whisper struct {
		Model    string `yaml:"model"`
		Python   string `yaml:"python"`
		Language string `yaml:"language"`
	} `yaml:"whisper"`

	FFmpeg struct {
		Threads        int    `yaml:"threads"`
		BackgroundClip string `yaml:"background_clip"`
	} `yaml:"ffmpeg"`

	Style Style `yaml:"style"`

	Source struct {
		Subreddits []string `yaml:"subreddits"`
		Limit      int      `yaml:"limit"`
		Schedule   string   `yaml:"schedule"`
	} `yaml:"source"`
}

// Load reads configuration from file or returns defaults. Environment
// variables override file values for secrets and deployment paths.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("TIKTOK_HANDLE"); v != "" {
		c.Style.Handle = v
	}
	if v := os.Getenv("BACKGROUND_CLIP_PATH"); v != "" {
		c.FFmpeg.BackgroundClip = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Queue.RedisURL = v
	}
}

// Validate reports configuration values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers.Count < 1 {
		errs = append(errs, errors.New("workers.count must be at least 1"))
	}
	switch c.Queue.Backend {
	case "memory":
	case "redis":
		if c.Queue.RedisURL == "" {
			errs = append(errs, errors.New("queue.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.backend %q must be memory or redis", c.Queue.Backend))
	}
	if c.Storage.TempDir == "" || c.Storage.OutputDir == "" {
		errs = append(errs, errors.New("storage.temp_dir and storage.output_dir are required"))
	}
	if err := c.Style.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./config/config.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".storyshorts", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
