// internal/config/config.go
//
// Process configuration read from the environment (after godotenv has loaded .env).
// Every value has a default so `go run .` works with only a TMDB credential set.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // "json" or "console"

	TMDBAPIKey    string
	TMDBReadToken string
	TMDBBaseURL   string
	TMDBTimeout   time.Duration

	// SearchImageBase prefixes search result images, GameImageBase game backdrops.
	SearchImageBase string
	GameImageBase   string

	DBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	JWTSecret     string
	JWTExpiresIn  time.Duration
	CookieName    string
	ClientOrigins []string
	Production    bool

	DailySalt string

	MaxGuesses      int
	MinBackdrops    int
	MaxRetries      int
	SearchThreshold int
	SearchLimit     int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Port:      getEnv("PORT", "5175"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		TMDBAPIKey:    os.Getenv("TMDB_API_KEY"),
		TMDBReadToken: os.Getenv("TMDB_READ_TOKEN"),
		TMDBBaseURL:   getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBTimeout:   time.Duration(getInt("TMDB_TIMEOUT_SECONDS", 10)) * time.Second,

		SearchImageBase: getEnv("TMDB_IMAGE_BASE", "https://image.tmdb.org/t/p/w500"),
		GameImageBase:   getEnv("TMDB_GAME_IMAGE_BASE", "https://image.tmdb.org/t/p/w1280"),

		DBPath: getEnv("DB_PATH", "./data/app.db"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		SessionTTL:    time.Duration(getInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiresIn:  time.Duration(getInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:    getEnv("COOKIE_NAME", "movieguess_token"),
		ClientOrigins: splitList(getEnv("CLIENT_ORIGIN", "http://localhost:5173")),
		Production:    os.Getenv("NODE_ENV") == "production",

		DailySalt: getEnv("DAILY_SALT", "movieguess"),

		MaxGuesses:      getInt("MAX_GUESSES", 5),
		MinBackdrops:    getInt("MIN_BACKDROPS", 5),
		MaxRetries:      getInt("MAX_RETRIES", 5),
		SearchThreshold: getInt("SEARCH_THRESHOLD", 60),
		SearchLimit:     getInt("SEARCH_LIMIT", 5),
	}
}

// HasTMDBCredentials reports whether any TMDB auth is configured.
func (c Config) HasTMDBCredentials() bool {
	return c.TMDBAPIKey != "" || c.TMDBReadToken != ""
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
