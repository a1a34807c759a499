package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	EmbeddingURL     string
	EmbeddingToken   string
	CompletionURL    string
	CompletionToken  string
	DatabaseURL      string
	HTTPPort         string
	LogLevel         string
	CanvasURL        string
	CanvasAPIToken   string
	AuditDir         string
	CoursePolicyFile string
	UpstreamTimeout  time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		EmbeddingURL:     getEnv("EMBEDDING_URL", ""),
		EmbeddingToken:   getEnv("EMBEDDING_TOKEN", ""),
		CompletionURL:    getEnv("COMPLETION_URL", ""),
		CompletionToken:  getEnv("COMPLETION_TOKEN", ""),
		DatabaseURL:      getEnv("DATABASE_URL", "tutor.db"),
		HTTPPort:         getEnv("HTTP_PORT", "20601"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		CanvasURL:        getEnv("CANVAS_URL", ""),
		CanvasAPIToken:   getEnv("CANVAS_API_TOKEN", ""),
		AuditDir:         getEnv("AUDIT_DIR", "."),
		CoursePolicyFile: getEnv("COURSE_POLICY_FILE", ""),
		// The upstream endpoints impose no timeout of their own, so the
		// shared HTTP client must. LLM completions can run long.
		UpstreamTimeout: time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 120)) * time.Second,
	}

	if AppConfig.EmbeddingURL == "" {
		log.Fatal("EMBEDDING_URL environment variable is required")
	}

	if AppConfig.CompletionURL == "" {
		log.Fatal("COMPLETION_URL environment variable is required")
	}

	if AppConfig.CoursePolicyFile != "" {
		if err := LoadCoursePolicies(AppConfig.CoursePolicyFile); err != nil {
			log.Fatalf("Failed to load course policies from %s: %v", AppConfig.CoursePolicyFile, err)
		}
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
