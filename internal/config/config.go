// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`
	CORSOrigins   []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Emails that are provisioned with the admin role on first sign-in.
	AdminEmails []string `mapstructure:"ADMIN_EMAILS"`

	// Media storage
	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StorageLocalPath     string `mapstructure:"STORAGE_LOCAL_PATH"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	CloudinaryCloudName  string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey     string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret  string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder     string `mapstructure:"CLOUDINARY_FOLDER"`
	UploadMaxBytes       int64  `mapstructure:"UPLOAD_MAX_BYTES"`
	ImageMaxDimension    int    `mapstructure:"IMAGE_MAX_DIMENSION"`

	// Elasticsearch Configuration. Empty disables search.
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// Realtime push
	RealtimeTicketSecret string        `mapstructure:"REALTIME_TICKET_SECRET"`
	RealtimeTicketTTL    time.Duration `mapstructure:"REALTIME_TICKET_TTL_SECONDS"`

	// Claim workflow
	ClaimProofCopyAdmins bool `mapstructure:"CLAIM_PROOF_COPY_ADMINS"`

	// Cron Jobs
	MessageReapJobSchedule string        `mapstructure:"MESSAGE_REAP_JOB_SCHEDULE"`
	MessageReapGrace       time.Duration `mapstructure:"MESSAGE_REAP_GRACE_HOURS"`
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// IsAdminEmail reports whether the email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.FirebaseServiceAccountKeyPath) == "" {
		return nil, fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
	}
	if _, err := os.Stat(cfg.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", cfg.FirebaseServiceAccountKeyPath)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "lostfound_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("ADMIN_EMAILS", "")

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "/uploads")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_FOLDER", "lostfound")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("IMAGE_MAX_DIMENSION", 1600)

	v.SetDefault("ELASTICSEARCH_URL", "")

	v.SetDefault("REALTIME_TICKET_SECRET", "")
	v.SetDefault("REALTIME_TICKET_TTL_SECONDS", 60)

	v.SetDefault("CLAIM_PROOF_COPY_ADMINS", true)

	v.SetDefault("MESSAGE_REAP_JOB_SCHEDULE", "@hourly")
	v.SetDefault("MESSAGE_REAP_GRACE_HOURS", 24)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured in whole units, not Go duration strings.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.RealtimeTicketTTL = time.Duration(v.GetInt("REALTIME_TICKET_TTL_SECONDS")) * time.Second
	cfg.MessageReapGrace = time.Duration(v.GetInt("MESSAGE_REAP_GRACE_HOURS")) * time.Hour

	cfg.AdminEmails = splitList(v.GetString("ADMIN_EMAILS"))
	cfg.CORSOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	switch cfg.DBDriver {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or mysql)", cfg.DBDriver)
	}
	switch cfg.StorageDriver {
	case "local":
	case "cloudinary":
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("STORAGE_DRIVER=cloudinary requires CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q (expected local or cloudinary)", cfg.StorageDriver)
	}
	return &cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
