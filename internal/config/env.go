package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	SslCertPath  string
	AIAPIKey     string
	GenModel     string
	OCRModel     string
	VendorAPIKey string
	VendorURL    string
	VendorModel  string
	Port         string

	// Extraction tuning.
	ExtractWorkers   int           // parallel extraction chains across documents
	LeaseTTL         time.Duration // per-document extraction lease
	ExtractBudget    time.Duration // wall-clock budget for one attempt chain
	VendorAttempts   int           // attempts per vendor call, including the first
	VendorRatePerSec float64       // vendor/OCR request rate limit

	// Context assembly tuning.
	CacheTTL        time.Duration
	ContextBudget   int // max assembled context size, in runes
	AssembleFanOut  int // concurrent text fetches per turn
	AssembleTimeout time.Duration
	MaxUploadBytes  int64
	FileContextOn   bool // feature flag for document-context injection

	OCRLanguageHints []string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "docchat-docs"),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		OCRModel:     getEnv("OCR_MODEL", "gemini-1.5-flash"),
		VendorAPIKey: getEnv("VENDOR_OCR_API_KEY", ""),
		VendorURL:    getEnv("VENDOR_OCR_URL", ""),
		VendorModel:  getEnv("VENDOR_OCR_MODEL", ""),
		Port:         getEnv("PORT", "8080"),

		ExtractWorkers:   getEnvInt("EXTRACT_WORKERS", 4),
		LeaseTTL:         getEnvDuration("EXTRACT_LEASE_TTL", 5*time.Minute),
		ExtractBudget:    getEnvDuration("EXTRACT_BUDGET", 3*time.Minute),
		VendorAttempts:   getEnvInt("VENDOR_ATTEMPTS", 3),
		VendorRatePerSec: getEnvFloat("VENDOR_RATE_PER_SEC", 2),

		CacheTTL:        getEnvDuration("TEXT_CACHE_TTL", 15*time.Minute),
		ContextBudget:   getEnvInt("CONTEXT_BUDGET_CHARS", 24000),
		AssembleFanOut:  getEnvInt("ASSEMBLE_FANOUT", 4),
		AssembleTimeout: getEnvDuration("ASSEMBLE_TIMEOUT", 10*time.Second),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		FileContextOn:   getEnvBool("FILE_CONTEXT_ENABLED", true),

		OCRLanguageHints: getEnvList("OCR_LANGUAGE_HINTS"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

// getEnvList parses a comma-separated list, dropping empty entries.
func getEnvList(key string) []string {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
