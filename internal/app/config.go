package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	GlobalTimeout  time.Duration
	FetchTimeout   time.Duration
	LogLevel       string
	LogFormat      string
	UserAgent      string
	ClassifierMode string

	MinScore      int
	EnrichMin     int
	EnrichMax     int
	FallbackLimit int

	JSONBayEndpoint    string
	AudioNexusEndpoint string
	TrackerHQEndpoint  string
	TrackerHQUsername  string
	TrackerHQPassword  string

	RedisURL      string
	CacheTTL      time.Duration
	CacheDisabled bool
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8090"),
		GlobalTimeout:  time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 8)) * time.Second,
		FetchTimeout:   time.Duration(getEnvInt("SEARCH_FETCH_TIMEOUT_SECONDS", 4)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:      getEnv("SEARCH_USER_AGENT", "audioswarm-search/1.0"),
		ClassifierMode: strings.ToLower(getEnv("CLASSIFIER_MODE", "soft")),

		MinScore:      getEnvInt("SEARCH_MIN_SCORE", 45),
		EnrichMin:     getEnvInt("SEARCH_ENRICH_MIN", 5),
		EnrichMax:     getEnvInt("SEARCH_ENRICH_MAX", 15),
		FallbackLimit: getEnvInt("SEARCH_FALLBACK_LIMIT", 15),

		JSONBayEndpoint:    getEnv("SEARCH_SOURCE_JSONBAY_ENDPOINT", "https://apibay.org/q.php"),
		AudioNexusEndpoint: getEnv("SEARCH_SOURCE_AUDIONEXUS_ENDPOINT", "https://audionexus.cc,https://audionexus.to"),
		TrackerHQEndpoint:  getEnv("SEARCH_SOURCE_TRACKERHQ_ENDPOINT", "https://trackerhq.org/forum"),
		TrackerHQUsername:  strings.TrimSpace(os.Getenv("SEARCH_SOURCE_TRACKERHQ_USERNAME")),
		TrackerHQPassword:  strings.TrimSpace(os.Getenv("SEARCH_SOURCE_TRACKERHQ_PASSWORD")),

		RedisURL:      getEnv("REDIS_URL", ""),
		CacheTTL:      time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 30)) * time.Minute,
		CacheDisabled: getEnvBool("SEARCH_CACHE_DISABLED", false),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
