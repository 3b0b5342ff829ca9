package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	IMAPHost       string
	IMAPPort       string
	IMAPUsername   string
	IMAPPassword   string
	IMAPTLS        bool
	IMAPFetchDays  int
	IMAPFetchLimit int

	GeminiAPIKey   string
	OllamaBaseURL  string
	OllamaModel    string
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Digest pipeline
	DefaultTimezone   string  // Zone for users that never picked one
	AlgoVersion       string  // Tag stamped on clusters by the current algorithm
	DigestHour        int     // Local hour the nightly digest runs at
	GroupingStrategy  string  // thread | similarity | chroma
	GroupingThreshold float64 // Subject similarity cutoff
	ScoringProvider   string  // heuristic | ollama | gemini | auto
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		IMAPHost:       getEnv("IMAP_HOST", ""),
		IMAPPort:       getEnv("IMAP_PORT", "993"),
		IMAPUsername:   getEnv("IMAP_USERNAME", ""),
		IMAPPassword:   getEnv("IMAP_PASSWORD", ""),
		IMAPTLS:        getEnvBool("IMAP_TLS", true),
		IMAPFetchDays:  getEnvInt("IMAP_FETCH_DAYS", 7),
		IMAPFetchLimit: getEnvInt("IMAP_FETCH_LIMIT", 200),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", ""),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llama3"),
		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		DefaultTimezone:   getEnv("DEFAULT_TIMEZONE", "UTC"),
		AlgoVersion:       getEnv("DIGEST_ALGO_VERSION", "clustering_v1"),
		DigestHour:        getEnvInt("DIGEST_HOUR", 6),
		GroupingStrategy:  getEnv("GROUPING_STRATEGY", "similarity"),
		GroupingThreshold: getEnvFloat("GROUPING_THRESHOLD", 0.75),
		ScoringProvider:   getEnv("SCORING_PROVIDER", "auto"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
