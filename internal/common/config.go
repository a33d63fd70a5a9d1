package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Queue     QueueConfig
	OCR       OCRConfig
	Normalize NormalizeConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// QueueConfig holds background-worker configuration
type QueueConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration
}

// OCRConfig holds recognition-related configuration
type OCRConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language string // default "vie"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit

	TessdataDir string
	PSM         int // 6 is good for a uniform block of text
	OEM         int // 3 = default engine selection

	RemoteOCRURL     string // OCR microservice base URL; empty disables the remote engine
	EngineTimeout    time.Duration
	AcceptConfidence float64 // 0-100 scale
	PageConcurrency  int
}

// NormalizeConfig holds text-correction configuration
type NormalizeConfig struct {
	RemoteURL string // correction service base URL; empty -> local cleaner only
	Timeout   time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Queue: QueueConfig{
			RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			QueueName:         getEnv("QUEUE_NAME", "documents"),
			Concurrency:       getEnvAsInt("QUEUE_CONCURRENCY", 4),
			ProcessingTimeout: getEnvAsDuration("PROCESSING_TIMEOUT", 5*time.Minute),
		},
		OCR: OCRConfig{
			Pdftotext:        getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			Language:         getEnv("OCR_LANGUAGE", "vie"),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			PSM:              getEnvAsInt("TESSERACT_PSM", 6),
			OEM:              getEnvAsInt("TESSERACT_OEM", 3),
			RemoteOCRURL:     getEnv("REMOTE_OCR_URL", ""),
			EngineTimeout:    getEnvAsDuration("OCR_ENGINE_TIMEOUT", 30*time.Second),
			AcceptConfidence: getEnvAsFloat64("OCR_ACCEPT_CONFIDENCE", 60),
			PageConcurrency:  getEnvAsInt("OCR_PAGE_CONCURRENCY", 4),
		},
		Normalize: NormalizeConfig{
			RemoteURL: getEnv("TEXT_CORRECTION_URL", ""),
			Timeout:   getEnvAsDuration("TEXT_CORRECTION_TIMEOUT", 10*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Queue.RedisURL == "" {
		return NewAppError("CONFIG_ERROR", "REDIS_URL is required", ErrInvalidInput)
	}
	if c.OCR.AcceptConfidence < 0 || c.OCR.AcceptConfidence > 100 {
		return NewAppError("CONFIG_ERROR", "OCR_ACCEPT_CONFIDENCE must be in [0,100]", ErrInvalidInput)
	}
	return nil
}
