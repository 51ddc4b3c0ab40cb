package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins string

	// Environment
	Environment string

	// Document registry (SQLite)
	DatabasePath string

	// Uploads
	MaxUploadBytes int64

	// OCR
	OCRLanguage string

	// Captioning service (BLIP-style HTTP inference endpoint)
	CaptionURL     string
	CaptionTimeout time.Duration

	// Speech synthesis
	TTSLanguage string
	TTSTimeout  time.Duration

	// Inference concurrency gate (OCR, captioning, TTS share one budget)
	InferenceSlots int

	// Storage backend: "fs" or "s3"
	StorageBackend string
	DataDir        string

	// S3/Garage Storage (used when StorageBackend is "s3")
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3Region    string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8000"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173, http://localhost:3000"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DatabasePath:   getEnv("DATABASE_PATH", "voxaccess.db"),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_MB", 20)) * 1024 * 1024,
		OCRLanguage:    getEnv("OCR_LANGUAGE", "por"),
		CaptionURL:     getEnv("CAPTION_API_URL", ""),
		CaptionTimeout: getDurationEnv("CAPTION_TIMEOUT_SECONDS", 60) * time.Second,
		TTSLanguage:    getEnv("TTS_LANGUAGE", "pt-BR"),
		TTSTimeout:     getDurationEnv("TTS_TIMEOUT_SECONDS", 30) * time.Second,
		InferenceSlots: getIntEnv("INFERENCE_SLOTS", 4),
		StorageBackend: getEnv("STORAGE_BACKEND", "fs"),
		DataDir:        getEnv("DATA_DIR", "data"),
		S3Endpoint:     getEnv("S3_ENDPOINT", "localhost:3900"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Bucket:       getEnv("S3_BUCKET", "voxaccess"),
		S3UseSSL:       getBoolEnv("S3_USE_SSL", false),
		S3Region:       getEnv("S3_REGION", "garage"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
	}
	return time.Duration(defaultValue)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
