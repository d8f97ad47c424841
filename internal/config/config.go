package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	FrontendURL     string
	UploadsDir      string
	PublicBaseURL   string

	// AllocRetries bounds how many times a create is retried after losing
	// a productCode/barcode uniqueness race.
	AllocRetries     int
	BulkConcurrency  int
	BackfillSchedule string

	LogMode string
	LogFile string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = fromEnv()
}

func fromEnv() Config {
	port := getEnvOrDefault("PORT", "5000")
	return Config{
		Port:             port,
		MongoURI:         getFirstEnv([]string{"MONGODB_URI", "MONGO_URI"}, "mongodb://localhost:27017/furniture_shop"),
		DBName:           getEnvOrDefault("DB_NAME", "furniture_shop"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:   getDurationEnv("ACCESS_TOKEN_TTL", 60, time.Minute),
		RefreshTokenTTL:  getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		FrontendURL:      getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		UploadsDir:       getEnvOrDefault("UPLOADS_DIR", "./uploads"),
		PublicBaseURL:    strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		AllocRetries:     getIntEnv("ALLOC_RETRIES", 3),
		BulkConcurrency:  getIntEnv("BULK_CONCURRENCY", 4),
		BackfillSchedule: getRawEnv("BARCODE_BACKFILL_SCHEDULE", "@every 15m"),
		LogMode:          getEnvOrDefault("LOG_MODE", "development"),
		LogFile:          getEnvOrDefault("LOG_FILE", ""),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("ENV JWT_SECRET is required")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("ENV MONGODB_URI is required")
	}
	return nil
}
