package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Storage      StorageConfig      `json:"storage"`
	AI           AIConfig           `json:"ai"`
	Verification VerificationConfig `json:"verification"`
	Enforcement  EnforcementConfig  `json:"enforcement"`
	Security     SecurityConfig     `json:"security"`
	Logging      LoggingConfig      `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig covers the encrypted blob store.
type StorageConfig struct {
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// AIConfig covers the authenticity-scoring oracle.
type AIConfig struct {
	ProjectID string `json:"project_id"`
	Region    string `json:"region"`
	Model     string `json:"model"`
}

// VerificationConfig holds the pipeline tunables.
type VerificationConfig struct {
	// DuplicateThreshold fails the duplicate check once more than this many
	// distinct accounts hold the same content hash.
	DuplicateThreshold int      `json:"duplicate_threshold"`
	RestrictedEditors  []string `json:"restricted_editors"`
	// ServerTimeout bounds the verification round-trip; on timeout the
	// server-backed steps are skipped, never retried.
	ServerTimeout time.Duration `json:"server_timeout"`
	PreviewLimit  int           `json:"preview_limit"`
	// UploadRetentionDays bounds how long upload hash records feed the
	// duplicate count.
	UploadRetentionDays int `json:"upload_retention_days"`
}

// EnforcementConfig covers the suspension side effects.
type EnforcementConfig struct {
	BanDuration time.Duration `json:"ban_duration"`
	AdminEmail  string        `json:"admin_email"`
	SESRegion   string        `json:"ses_region"`
	SenderEmail string        `json:"sender_email"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
	// MasterKey is the hex-encoded vault master key per-file keys derive from.
	MasterKey string `json:"master_key"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "docvault",
			SSLMode: "disable",
		},
		Verification: VerificationConfig{
			DuplicateThreshold:  2,
			RestrictedEditors:   []string{"Adobe Photoshop", "GIMP", "Photopea", "Canva"},
			ServerTimeout:       15 * time.Second,
			PreviewLimit:        512 * 1024,
			UploadRetentionDays: 180,
		},
		Enforcement: EnforcementConfig{
			BanDuration: 365 * 24 * time.Hour,
		},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("STORAGE_REGION"); region != "" {
		config.Storage.Region = region
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if key := os.Getenv("VAULT_MASTER_KEY"); key != "" {
		config.Security.MasterKey = key
	}
	if project := os.Getenv("AI_PROJECT_ID"); project != "" {
		config.AI.ProjectID = project
	}
	if region := os.Getenv("AI_REGION"); region != "" {
		config.AI.Region = region
	}
	if threshold := os.Getenv("DUPLICATE_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			config.Verification.DuplicateThreshold = t
		}
	}
	if admin := os.Getenv("ADMIN_EMAIL"); admin != "" {
		config.Enforcement.AdminEmail = admin
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
