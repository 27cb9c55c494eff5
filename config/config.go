package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Database struct {
		URI  string `yaml:"uri"`
		Name string `yaml:"name"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Debate DebateConfig `yaml:"debate"`
}

// DebateConfig tunes the lifecycle limits. Zero values mean "use the default".
type DebateConfig struct {
	MinArgumentLength   int           `yaml:"minArgumentLength"`
	OpeningLimit        int           `yaml:"openingLimit"`
	RebuttalLimit       int           `yaml:"rebuttalLimit"`
	ClosingLimit        int           `yaml:"closingLimit"`
	MaxResolutionLength int           `yaml:"maxResolutionLength"`
	WinnerThreshold     float64       `yaml:"winnerThreshold"`
	MindChangeThreshold int           `yaml:"mindChangeThreshold"`
	GraduationThreshold int           `yaml:"graduationThreshold"`
	NotifyTimeout       time.Duration `yaml:"notifyTimeout"`
	StanceRateLimit     int           `yaml:"stanceRateLimit"`
	StanceRateWindow    time.Duration `yaml:"stanceRateWindow"`
}

// Default returns a config that runs fully in memory on port 8080.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Log.Level = "info"
	cfg.Debate.NotifyTimeout = 10 * time.Second
	return &cfg
}

// LoadConfig reads the configuration file, then applies environment
// overrides. A .env file in the working directory is loaded first if present.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEBATEARENA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DEBATEARENA_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DEBATEARENA_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Database.URI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}
