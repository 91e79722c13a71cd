package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	CORS_ORIGIN string

	LOG_LEVEL  string
	LOG_FORMAT string

	// Tokens issued by the external identity platform. When the issuer is empty
	// only HMAC tokens signed with JWT_SECRET are accepted.
	OIDC_ISSUER_URL string
	OIDC_CLIENT_ID  string

	FETCH_TIMEOUT    time.Duration
	IMAGE_MAX_BYTES  int64
	RSS_RATE_PER_MIN int

	S3_BUCKET     string
	S3_REGION     string
	S3_ENDPOINT   string
	S3_PUBLIC_URL string

	PUBLIC_BASE_URL string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FORMAT = getEnv("LOG_FORMAT", "text")

	OIDC_ISSUER_URL = getEnv("OIDC_ISSUER_URL", "")
	OIDC_CLIENT_ID = getEnv("OIDC_CLIENT_ID", "")

	FETCH_TIMEOUT = getDuration("FETCH_TIMEOUT", 20*time.Second)
	IMAGE_MAX_BYTES = int64(getInt("IMAGE_MAX_BYTES", 5*1024*1024))
	RSS_RATE_PER_MIN = getInt("RSS_RATE_PER_MIN", 10)

	S3_BUCKET = getEnv("S3_BUCKET", "")
	S3_REGION = getEnv("S3_REGION", "us-east-1")
	S3_ENDPOINT = getEnv("S3_ENDPOINT", "")
	S3_PUBLIC_URL = getEnv("S3_PUBLIC_URL", "")

	PUBLIC_BASE_URL = getEnv("PUBLIC_BASE_URL", "http://localhost:"+PORT)
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
