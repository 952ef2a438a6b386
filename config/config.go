package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	AppURL      string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// AI document generation (OpenAI)
	OpenAIAPIKey string
	OpenAIModel  string
	// Stripe billing
	StripeSecretKey     string
	StripeWebhookSecret string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Other
	AllowedOrigins []string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "db/app.db"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		UploadDir:           getEnv("UPLOAD_DIR", "static/uploads"),
		AppURL:              getEnv("APP_URL", "http://localhost:8080"),
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", "noreply@tradieshield.com.au"),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "TradieShield"),
		EmailTestMode:       getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		R2AccountID:         getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:       getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:        getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:         getEnv("R2_PUBLIC_URL", ""),
		AllowedOrigins:      strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// AIEnabled reports whether the OpenAI collaborator is configured.
// Without a key the generator runs in degraded placeholder mode.
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// PaymentsEnabled reports whether Stripe is configured. Without a key the
// payment adapter runs in stub mode.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
