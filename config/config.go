// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup. It is built once by Load
// and passed explicitly; nothing mutates it afterwards.
type Config struct {
	Port string
	Env  string

	MongoURI          string
	DBName            string
	MongoTransactions bool

	JWTSecret  string
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string

	StorageDriver      string
	LocalStoragePath   string
	PublicBaseURL      string
	S3Region           string
	S3Bucket           string
	GCSBucket          string
	GCSCredentialsFile string

	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string
	FirebaseProjectID         string

	CORSAllowedOrigins []string
	AdminUserIDs       []string

	RequestTimeout    time.Duration
	ReconcileInterval time.Duration
	// ReconcileGrace is how long a written document is left alone by repair passes
	ReconcileGrace time.Duration
	LogLevel          string
}

// Storage drivers
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not loaded: %v", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment without validating it
func FromEnv() *Config {
	mongoURI := getEnv("MONGO_URI", "")
	if mongoURI == "" {
		mongoURI = getEnv("MONGODB_URI", "")
	}
	env := getEnv("ENV", "development")
	if mongoURI == "" && isDevelopment(env) {
		mongoURI = "mongodb://localhost:27017"
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               env,
		MongoURI:          mongoURI,
		DBName:            getEnv("DB_NAME", "nestfire"),
		MongoTransactions: getEnvAsBool("MONGO_TRANSACTIONS", false),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SMTPHost:  getEnv("SMTP_HOST", ""),
		SMTPPort:  getEnvAsInt("SMTP_PORT", 2525),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
		FromEmail: getEnv("FROM_EMAIL", "no-reply@nestfire.app"),

		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
		LocalStoragePath:   getEnv("LOCAL_STORAGE_PATH", "./uploads"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),

		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),
		FirebaseProjectID:         getEnv("FIREBASE_PROJECT_ID", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AdminUserIDs:       getEnvAsList("ADMIN_USER_IDS"),

		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 0),
		ReconcileGrace:    getEnvAsDuration("RECONCILE_GRACE", 2*getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every problem found in the configuration
func (c *Config) Validate() error {
	var problems []string
	if c.MongoURI == "" {
		problems = append(problems, "MONGO_URI or MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.Port == "" {
		problems = append(problems, "PORT must not be empty")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if c.ReconcileInterval < 0 {
		problems = append(problems, "RECONCILE_INTERVAL must not be negative")
	}
	if c.ReconcileGrace < 0 {
		problems = append(problems, "RECONCILE_GRACE must not be negative")
	}
	switch c.StorageDriver {
	case StorageLocal:
		if c.LocalStoragePath == "" {
			problems = append(problems, "LOCAL_STORAGE_PATH is required for the local driver")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			problems = append(problems, "S3_BUCKET is required for the s3 driver")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			problems = append(problems, "GCS_BUCKET is required for the gcs driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// MailEnabled reports whether SMTP settings are present
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// FirebaseEnabled reports whether push credentials are present
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseCredentialsFile != "" || c.FirebaseCredentialsBase64 != ""
}

func isDevelopment(env string) bool {
	return env == "development" || env == "dev"
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
