package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port         string
	Environment  string
	MongoURI     string
	MongoMaxPool int
	RedisURL     string
	FrontendURL  string
	Timezone     string

	// AllowedOrigins is the comma-separated CORS and WebSocket origin list
	AllowedOrigins string

	// JWT configuration
	JWTSecret        string
	JWTRefreshSecret string
	JWTExpiresIn     time.Duration
	JWTRefreshIn     time.Duration

	LLM LLMConfig

	// Background plan generation
	PlanWorkerCount    int
	PlanJobTTL         time.Duration
	PlanJobStaleAfter  time.Duration
	PlanJobCleanupCron string
	PlannerConfigFile  string

	// Rate limiting (requests per window)
	RateLimitGlobalAPI int
	RateLimitLLM       int
	RateLimitWebSocket int
	RateLimitWindow    time.Duration
	DevAuthBypass      bool
}

// LLMConfig tunes the text generation backend
type LLMConfig struct {
	BaseURL               string        `yaml:"base_url"`
	APIKey                string        `yaml:"-"`
	Model                 string        `yaml:"model"`
	PlanTemperature       float64       `yaml:"plan_temperature"`
	CorrectionTemperature float64       `yaml:"correction_temperature"`
	ChatTemperature       float64       `yaml:"chat_temperature"`
	MaxPlanAttempts       int           `yaml:"max_plan_attempts"`
	ChatTimeout           time.Duration `yaml:"chat_timeout"`
	RequestsPerSecond     float64       `yaml:"requests_per_second"`
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location resolves the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017/listai"),
		MongoMaxPool: getIntEnv("MONGODB_MAX_POOL_SIZE", 50),
		RedisURL:     getEnv("REDIS_URL", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		Timezone:     getEnv("TIMEZONE", "UTC"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		JWTExpiresIn:     getDurationEnv("JWT_EXPIRES_IN", 15*time.Minute),
		JWTRefreshIn:     getDurationEnv("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),

		LLM: LLMConfig{
			BaseURL:               strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			APIKey:                getEnv("OPENAI_API_KEY", ""),
			Model:                 getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			PlanTemperature:       getFloatEnv("LLM_PLAN_TEMPERATURE", 0.7),
			CorrectionTemperature: getFloatEnv("LLM_CORRECTION_TEMPERATURE", 0.5),
			ChatTemperature:       getFloatEnv("LLM_CHAT_TEMPERATURE", 0.7),
			MaxPlanAttempts:       getIntEnv("LLM_MAX_PLAN_ATTEMPTS", 3),
			ChatTimeout:           getDurationEnv("LLM_CHAT_TIMEOUT", 30*time.Second),
			RequestsPerSecond:     getFloatEnv("LLM_REQUESTS_PER_SECOND", 0),
		},

		PlanWorkerCount:    getIntEnv("PLAN_WORKER_COUNT", 2),
		PlanJobTTL:         getDurationEnv("PLAN_JOB_TTL", 24*time.Hour),
		PlanJobStaleAfter:  getDurationEnv("PLAN_JOB_STALE_AFTER", 15*time.Minute),
		PlanJobCleanupCron: getEnv("PLAN_JOB_CLEANUP_CRON", "*/5 * * * *"),
		PlannerConfigFile:  getEnv("PLANNER_CONFIG_FILE", ""),
		RateLimitGlobalAPI: getIntEnv("RATE_LIMIT_GLOBAL_API", 60),
		RateLimitLLM:       getIntEnv("RATE_LIMIT_LLM", 20),
		RateLimitWebSocket: getIntEnv("RATE_LIMIT_WEBSOCKET", 20),
		RateLimitWindow:    time.Minute,
		DevAuthBypass:      getBoolEnv("DEV_AUTH_BYPASS", false),
	}

	cfg.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.FrontendURL)
	return cfg
}

// LLMSettings is the live, reloadable view of LLMConfig shared by the
// generation client and the planner.
type LLMSettings struct {
	mu  sync.RWMutex
	cfg LLMConfig
}

// NewLLMSettings wraps the initial configuration
func NewLLMSettings(cfg LLMConfig) *LLMSettings {
	return &LLMSettings{cfg: cfg}
}

// Get returns a copy of the current settings
func (s *LLMSettings) Get() LLMConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Apply overlays the non-zero fields of o onto the current settings
func (s *LLMSettings) Apply(o *LLMOverrides) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Model != "" {
		s.cfg.Model = o.Model
	}
	if o.BaseURL != "" {
		s.cfg.BaseURL = strings.TrimRight(o.BaseURL, "/")
	}
	if o.PlanTemperature != nil {
		s.cfg.PlanTemperature = *o.PlanTemperature
	}
	if o.CorrectionTemperature != nil {
		s.cfg.CorrectionTemperature = *o.CorrectionTemperature
	}
	if o.ChatTemperature != nil {
		s.cfg.ChatTemperature = *o.ChatTemperature
	}
	if o.MaxPlanAttempts > 0 {
		s.cfg.MaxPlanAttempts = o.MaxPlanAttempts
	}
	if o.ChatTimeout != "" {
		if d, err := time.ParseDuration(o.ChatTimeout); err == nil && d > 0 {
			s.cfg.ChatTimeout = d
		}
	}
}

// LLMOverrides is the YAML shape of PLANNER_CONFIG_FILE
type LLMOverrides struct {
	Model                 string   `yaml:"model"`
	BaseURL               string   `yaml:"base_url"`
	PlanTemperature       *float64 `yaml:"plan_temperature"`
	CorrectionTemperature *float64 `yaml:"correction_temperature"`
	ChatTemperature       *float64 `yaml:"chat_temperature"`
	MaxPlanAttempts       int      `yaml:"max_plan_attempts"`
	ChatTimeout           string   `yaml:"chat_timeout"`
}

// LoadLLMOverrides loads LLM tuning overrides from a YAML file
func LoadLLMOverrides(filePath string) (*LLMOverrides, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read planner config file: %w", err)
	}

	var overrides LLMOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse planner config YAML: %w", err)
	}

	if overrides.ChatTimeout != "" {
		if _, err := time.ParseDuration(overrides.ChatTimeout); err != nil {
			return nil, fmt.Errorf("invalid chat_timeout %q: %w", overrides.ChatTimeout, err)
		}
	}

	return &overrides, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15m") and the "7d" shorthand
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if strings.HasSuffix(value, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}
