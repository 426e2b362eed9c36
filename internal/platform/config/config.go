package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CleanupQueueName      string
	CleanupLockKey        string
	CleanupLockTTLSeconds int

	ClassifierBaseURL        string
	ClassifierAPIKey         string
	ClassifierModel          string
	ClassifierTimeoutSeconds int

	BlobDir  string
	IndexDir string

	MaxUploadBytes         int64
	AnalyzerTimeoutSeconds int
	SimilarityNeighbors    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		JWTKey:                []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "user"),
		DBPassword:            getEnv("DB_PASSWORD", "password"),
		DBName:                getEnv("DB_NAME", "proctorhub_db"),
		DBSslMode:             getEnv("DB_SSLMODE", "disable"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		CleanupQueueName:      getEnv("CLEANUP_QUEUE_NAME", "submission_cleanup_queue"),
		CleanupLockKey:        getEnv("CLEANUP_LOCK_KEY", "submission_cleanup_lock"),
		CleanupLockTTLSeconds: getEnvAsInt("CLEANUP_LOCK_TTL_SECONDS", 300),

		ClassifierBaseURL:        getEnv("CLASSIFIER_BASE_URL", "https://api.groq.com/openai/v1"),
		ClassifierAPIKey:         getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierModel:          getEnv("CLASSIFIER_MODEL", "llama-3.3-70b-versatile"),
		ClassifierTimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 30),

		BlobDir:  getEnv("BLOB_DIR", "data/blobs"),
		IndexDir: getEnv("INDEX_DIR", "data/index"),

		MaxUploadBytes:         int64(getEnvAsInt("MAX_UPLOAD_MB", 50)) << 20,
		AnalyzerTimeoutSeconds: getEnvAsInt("ANALYZER_TIMEOUT_SECONDS", 60),
		SimilarityNeighbors:    getEnvAsInt("SIMILARITY_NEIGHBORS", 5),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
