package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to whatever needs it.
// Nothing reads the environment after Load returns.
type Config struct {
	Port       string
	DBURL      string
	JWTSecret  string
	CORSOrigin string
	AppURL     string

	AsaasAPIKey       string
	AsaasAPIURL       string
	AsaasWebhookToken string
	ChargeDueDays     int

	// Reward rate on a referred user's confirmed payment, in percent.
	ReferralRewardPercent float64

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		DBURL:      mustEnv("DB_URL"),
		JWTSecret:  mustEnv("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
		AppURL:     getEnv("APP_URL", "http://localhost:3000"),

		AsaasAPIKey:       mustEnv("ASAAS_API_KEY"),
		AsaasAPIURL:       mustEnv("ASAAS_API_URL"),
		AsaasWebhookToken: mustEnv("ASAAS_WEBHOOK_TOKEN"),
		ChargeDueDays:     getEnvInt("CHARGE_DUE_DAYS", 3),

		ReferralRewardPercent: getEnvFloat("REFERRAL_REWARD_PERCENT", 20),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
	}
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

func getEnvInt(key string, fallback int) int {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %q", key, v)
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("Invalid number for %s: %q", key, v)
	}
	return f
}
