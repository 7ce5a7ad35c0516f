package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig    `json:"server"`
	Node   NodeConfig      `json:"node"`
	Export ExportConfig    `json:"export"`
	Poller PollerConfig    `json:"poller"`
	Slack  SlackConfig     `json:"slack"`
	Jobs   types.JobConfig `json:"jobs"`
}

type ServerConfig struct {
	Port         string `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type NodeConfig struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	CacheTTL string `json:"cache_ttl"`
}

type ExportConfig struct {
	OutputDir string `json:"output_dir"`
}

type PollerConfig struct {
	Interval string `json:"interval"`
	Timeout  string `json:"timeout"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if err := godotenv.Load(); err != nil {
			if err := godotenv.Load(".env.local"); err != nil {
				fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
			}
		}

		return fromEnv(), nil
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func fromEnv() *Config {
	defaults := DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", defaults.Server.Port),
		},
		Node: NodeConfig{
			URL:      getEnv("NODE_URL", defaults.Node.URL),
			Token:    getEnv("NODE_TOKEN", ""),
			CacheTTL: getEnv("CACHE_TTL", defaults.Node.CacheTTL),
		},
		Export: ExportConfig{
			OutputDir: getEnv("EXPORT_DIR", defaults.Export.OutputDir),
		},
		Poller: PollerConfig{
			Interval: getEnv("POLLER_INTERVAL", defaults.Poller.Interval),
			Timeout:  getEnv("POLLER_TIMEOUT", defaults.Poller.Timeout),
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		},
		Jobs: defaults.Jobs,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Node: NodeConfig{
			URL:      "http://localhost:6688",
			CacheTTL: "5m",
		},
		Export: ExportConfig{
			OutputDir: "definitions",
		},
		Poller: PollerConfig{
			Interval: "1m",
			Timeout:  "30s",
		},
		Jobs: types.JobConfig{
			MaxConcurrent: 1,
		},
	}
}

// ParseDuration parses value, returning fallback when it is empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadWatchList reads config/jobs.yaml, looking in the working directory and
// up to two of its parents.
func LoadWatchList() (*types.WatchList, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	configPath, err := findWatchList(wd)
	if err != nil {
		return nil, err
	}
	return LoadWatchListFile(configPath)
}

func LoadWatchListFile(path string) (*types.WatchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch list: %w", err)
	}

	var list types.WatchList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse watch list: %w", err)
	}

	return &list, nil
}

func findWatchList(wd string) (string, error) {
	for i := 0; i < 3; i++ {
		configPath := filepath.Join(wd, "config", "jobs.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if i == 0 {
			configPath = filepath.Join(wd, "jobs.yaml")
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}

	return "", fmt.Errorf("config directory not found")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
