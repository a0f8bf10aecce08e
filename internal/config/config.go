package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderMock   Provider = "mock"
)

// Server contains HTTP listener settings.
type Server struct {
	Addr                  string   `toml:"addr"`
	MaxFrameBytes         int      `toml:"max_frame_bytes"`
	AllowedOrigins        []string `toml:"allowed_origins"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
}

// LLM selects and configures the generative model backend.
type LLM struct {
	Provider       Provider `toml:"provider"`
	APIKey         string   `toml:"api_key"`
	Model          string   `toml:"model"`
	BaseURL        string   `toml:"base_url"`
	UseVertex      bool     `toml:"use_vertex"`
	GCPProject     string   `toml:"gcp_project"`
	GCPLocation    string   `toml:"gcp_location"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Sessions controls the lifetime of finished sessions.
type Sessions struct {
	MaxAgeHours          int `toml:"max_age_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Storage selects where ended sessions are archived.
type Storage struct {
	Backend    string `toml:"backend"`
	GCPProject string `toml:"gcp_project"`
	Collection string `toml:"collection"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Tracing struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

type Config struct {
	Server   Server   `toml:"server"`
	LLM      LLM      `toml:"llm"`
	Sessions Sessions `toml:"sessions"`
	Storage  Storage  `toml:"storage"`
	Logging  Logging  `toml:"logging"`
	Tracing  Tracing  `toml:"tracing"`
}

// Default returns a config that runs locally with the mock model.
func Default() Config {
	return Config{
		Server: Server{
			Addr:                  ":8080",
			MaxFrameBytes:         10 << 20,
			AllowedOrigins:        []string{"*"},
			RequestTimeoutSeconds: 60,
		},
		LLM: LLM{
			Provider:       ProviderMock,
			Model:          "gemini-2.5-flash",
			GCPLocation:    "us-central1",
			TimeoutSeconds: 15,
		},
		Sessions: Sessions{
			MaxAgeHours:          24,
			SweepIntervalMinutes: 10,
		},
		Storage: Storage{
			Backend:    "memory",
			Collection: "incidents",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
		Tracing: Tracing{
			ServiceName: "guardian-api",
		},
	}
}

// Load builds the config from defaults, an optional TOML file and
// GUARDIAN_* environment variables, in that order. An empty path falls back
// to GUARDIAN_CONFIG; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GUARDIAN_CONFIG")
	}
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			decoder := toml.NewDecoder(file)
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnv("GUARDIAN_ADDR", c.Server.Addr)
	c.Server.MaxFrameBytes = getIntEnv("GUARDIAN_MAX_FRAME_BYTES", c.Server.MaxFrameBytes)
	if origins := os.Getenv("GUARDIAN_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.LLM.Provider = Provider(getEnv("GUARDIAN_LLM_PROVIDER", string(c.LLM.Provider)))
	c.LLM.APIKey = getEnv("GUARDIAN_LLM_API_KEY", getEnv("GEMINI_API_KEY", c.LLM.APIKey))
	c.LLM.Model = getEnv("GUARDIAN_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("GUARDIAN_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.UseVertex = getBoolEnv("GUARDIAN_LLM_USE_VERTEX", c.LLM.UseVertex)
	c.LLM.GCPProject = getEnv("GUARDIAN_GCP_PROJECT", c.LLM.GCPProject)
	c.LLM.GCPLocation = getEnv("GUARDIAN_GCP_LOCATION", c.LLM.GCPLocation)
	c.LLM.TimeoutSeconds = getIntEnv("GUARDIAN_LLM_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)

	c.Sessions.MaxAgeHours = getIntEnv("GUARDIAN_SESSION_MAX_AGE_HOURS", c.Sessions.MaxAgeHours)
	c.Sessions.SweepIntervalMinutes = getIntEnv("GUARDIAN_SWEEP_INTERVAL_MINUTES", c.Sessions.SweepIntervalMinutes)

	c.Storage.Backend = getEnv("GUARDIAN_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.GCPProject = getEnv("GUARDIAN_STORAGE_GCP_PROJECT", c.Storage.GCPProject)

	c.Logging.Level = getEnv("GUARDIAN_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("GUARDIAN_LOG_FORMAT", c.Logging.Format)

	c.Tracing.Enabled = getBoolEnv("GUARDIAN_TRACING_ENABLED", c.Tracing.Enabled)
}

func (c *Config) normalize() {
	c.LLM.Provider = Provider(strings.ToLower(strings.TrimSpace(string(c.LLM.Provider))))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.GCPProject == "" {
		c.Storage.GCPProject = c.LLM.GCPProject
	}
	origins := c.Server.AllowedOrigins[:0]
	for _, o := range c.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.AllowedOrigins = origins
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("server.max_frame_bytes must be positive"))
	}

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderGemini:
		if c.LLM.UseVertex {
			if c.LLM.GCPProject == "" {
				errs = append(errs, errors.New("llm.gcp_project is required when llm.use_vertex is set"))
			}
		} else if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required for the gemini provider (or set GEMINI_API_KEY)"))
		}
	case ProviderOpenAI:
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm.api_key or llm.base_url is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of gemini, openai, mock", c.LLM.Provider))
	}
	if c.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("llm.timeout_seconds must be positive"))
	}

	if c.Sessions.MaxAgeHours <= 0 {
		errs = append(errs, errors.New("sessions.max_age_hours must be positive"))
	}
	if c.Sessions.SweepIntervalMinutes <= 0 {
		errs = append(errs, errors.New("sessions.sweep_interval_minutes must be positive"))
	}

	switch c.Storage.Backend {
	case "memory":
	case "firestore":
		if c.Storage.GCPProject == "" {
			errs = append(errs, errors.New("storage.gcp_project is required for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, firestore", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Sessions.MaxAgeHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepIntervalMinutes) * time.Minute
}
