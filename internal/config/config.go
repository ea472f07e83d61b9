package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int               `json:"port"`
	JWTSecret     string            `json:"jwt_secret"`
	JWTTTLHours   int               `json:"jwt_ttl_hours"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	Database      DatabaseConfig    `json:"database"`
	FileStore     FileStoreConfig   `json:"file_store"`
	Recognition   RecognitionConfig `json:"recognition"`
	Versioning    VersioningConfig  `json:"versioning"`
	List          ListConfig        `json:"list"`
	Session       SessionConfig     `json:"session"`
	Audit         AuditConfig       `json:"audit"`
	RateLimit     RateLimitConfig   `json:"rate_limit"`
	CORSAllowlist []string          `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	// KeepScans stores every recognized image so documents can reference it.
	KeepScans      bool  `json:"keep_scans"`
	MaxUploadBytes int64 `json:"max_upload_bytes"`
}

type RecognitionConfig struct {
	Engine      string      `json:"engine"`
	Languages   []string    `json:"languages"`
	Math        string      `json:"math"`
	MathData    interface{} `json:"math_data"`
	TimeoutSecs int         `json:"timeout_secs"`
	// CacheSize entries of text results are kept per image hash; 0 disables.
	CacheSize    int `json:"cache_size"`
	CacheTTLSecs int `json:"cache_ttl_secs"`
}

type VersioningConfig struct {
	// Atomic runs snapshot and content update in a single transaction.
	Atomic          *bool `json:"atomic"`
	CascadeOnDelete *bool `json:"cascade_on_delete"`
}

func (c VersioningConfig) IsAtomic() bool {
	return c.Atomic == nil || *c.Atomic
}

func (c VersioningConfig) IsCascadeOnDelete() bool {
	return c.CascadeOnDelete == nil || *c.CascadeOnDelete
}

type ListConfig struct {
	DefaultPerPage int `json:"default_per_page"`
}

type SessionConfig struct {
	MaxSessions int `json:"max_sessions"`
	TTLMinutes  int `json:"ttl_minutes"`
}

type AuditConfig struct {
	Enable bool   `json:"enable"`
	Spec   string `json:"spec"`
}

type RateLimitConfig struct {
	RecognizeWindowMs int `json:"recognize_window_ms"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 72
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	c.FileStore.Type = strings.ToLower(strings.TrimSpace(c.FileStore.Type))
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.FileStore.Type != "local" && c.FileStore.Type != "s3" {
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if c.FileStore.MaxUploadBytes <= 0 {
		c.FileStore.MaxUploadBytes = 20 * 1024 * 1024
	}
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = "tesseract"
	}
	if len(c.Recognition.Languages) == 0 {
		c.Recognition.Languages = []string{"eng"}
	}
	if c.Recognition.TimeoutSecs <= 0 {
		c.Recognition.TimeoutSecs = 60
	}
	if c.Recognition.CacheSize > 0 && c.Recognition.CacheTTLSecs <= 0 {
		c.Recognition.CacheTTLSecs = 600
	}
	if c.List.DefaultPerPage <= 0 {
		c.List.DefaultPerPage = 10
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 1024
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = c.JWTTTLHours * 60
	}
	if c.Audit.Spec == "" {
		c.Audit.Spec = "*/30 * * * *"
	}
	return nil
}
