package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultTimezone = "America/Sao_Paulo"

// SSM parameter names, relative to PARAM_PREFIX.
const (
	ClientTokenParam = "client-token"
	APIBaseURLParam  = "api-base-url"
)

// Config holds process configuration. It is read once at startup.
type Config struct {
	StateTable      string
	ParamPrefix     string
	APIBaseURL      string
	ClientToken     string
	Timezone        string
	CookieSecure    bool
	AllowedOrigins  []string
	ConversationTTL time.Duration
	HTTPTimeout     time.Duration

	// Dev server only
	Port          string
	RedisAddr     string
	RedisPassword string
	UseMockAPI    bool
}

func Load() *Config {
	return &Config{
		StateTable:      getEnv("STATE_TABLE", ""),
		ParamPrefix:     getEnv("PARAM_PREFIX", ""),
		APIBaseURL:      getEnv("API_BASE_URL", ""),
		ClientToken:     getEnv("CLIENT_TOKEN", ""),
		Timezone:        getEnv("TIMEZONE", defaultTimezone),
		CookieSecure:    getEnvAsBool("COOKIE_SECURE", true),
		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS"),
		ConversationTTL: time.Duration(getEnvAsInt("CONVERSATION_TTL_HOURS", 72)) * time.Hour,
		HTTPTimeout:     time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,

		Port:          getEnv("PORT", "8080"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		UseMockAPI:    getEnvAsBool("USE_MOCK_API", false),
	}
}

// Require reports the first of keys whose value is empty.
func (c *Config) Require(keys ...string) error {
	values := map[string]string{
		"STATE_TABLE":  c.StateTable,
		"PARAM_PREFIX": c.ParamPrefix,
		"API_BASE_URL": c.APIBaseURL,
		"REDIS_ADDR":   c.RedisAddr,
	}
	for _, key := range keys {
		v, known := values[key]
		if !known {
			return fmt.Errorf("config: unknown key %s", key)
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("config: required environment variable %s is not set", key)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
