package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	GCS       GCSConfig       `json:"gcs"`
	Gotenberg GotenbergConfig `json:"gotenberg"`
	Redis     RedisConfig     `json:"redis"`
	Auth      AuthConfig      `json:"auth"`
	GeoIP     GeoIPConfig     `json:"geoip"`
	CORS      CORSConfig      `json:"cors"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
	BaseURL     string `json:"base_url"`
	LogLevel    string `json:"log_level"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"` // "postgres", "mysql" or "sqlite"
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Path     string `json:"path"` // sqlite file
}

type StorageConfig struct {
	Type      string        `json:"type"`       // "gcs" or "local"
	LocalPath string        `json:"local_path"` // e.g. "./storage"
	LocalURL  string        `json:"local_url"`  // e.g. "http://localhost:8080/files"
	SecretKey string        `json:"secret_key"` // signs local URLs
	URLExpiry time.Duration `json:"url_expiry"`
}

type GCSConfig struct {
	BucketName      string `json:"bucket_name"`
	ProjectID       string `json:"project_id"`
	CredentialsPath string `json:"credentials_path"`
}

type GotenbergConfig struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"`
}

type RedisConfig struct {
	Addr     string        `json:"addr"` // empty disables caching
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `json:"-"`
	TokenTTL  time.Duration `json:"token_ttl"`
	OTPTTL    time.Duration `json:"otp_ttl"`
}

type GeoIPConfig struct {
	Enabled    bool          `json:"enabled"`
	URL        string        `json:"url"` // "%s" is replaced by the IP
	FallbackIP string        `json:"fallback_ip"`
	Timeout    time.Duration `json:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite":
		return d.Path
	}
	// Cloud SQL Unix socket support
	if len(d.Host) > 0 && d.Host[0] == '/' {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host, d.User, d.Password, d.DBName)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.DBName)
}

// findProjectRoot walks up from the working directory looking for go.mod
func findProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadDotEnv() {
	envPaths := []string{}
	if projectRoot := findProjectRoot(); projectRoot != "" {
		envPaths = append(envPaths, filepath.Join(projectRoot, ".env"))
	}
	envPaths = append(envPaths, "../../.env", ".env")

	for _, envPath := range envPaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("loaded .env")
			return
		}
	}
	log.Debug().Msg("no .env file found, using system environment variables")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "keywe")
	v.SetDefault("DB_PATH", "keywe.db")

	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./storage")
	v.SetDefault("STORAGE_LOCAL_URL", "http://localhost:8080/files")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_URL_EXPIRY", "15m")

	v.SetDefault("GCS_BUCKET_NAME", "")
	v.SetDefault("GOOGLE_CLOUD_PROJECT", "")
	v.SetDefault("GCS_CREDENTIALS_PATH", "")

	v.SetDefault("GOTENBERG_URL", "http://localhost:3000")
	v.SetDefault("GOTENBERG_TIMEOUT", "30s")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TTL", "10m")

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("OTP_TTL", "10m")

	v.SetDefault("GEOIP_ENABLED", true)
	v.SetDefault("GEOIP_URL", "http://ip-api.com/json/%s")
	v.SetDefault("GEOIP_FALLBACK_IP", "103.48.198.141")
	v.SetDefault("GEOIP_TIMEOUT", "3s")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Load reads .env and the environment into a validated Config
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	config := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Environment: v.GetString("ENVIRONMENT"),
			BaseURL:     v.GetString("BASE_URL"),
			LogLevel:    v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			Path:     v.GetString("DB_PATH"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("STORAGE_TYPE"),
			LocalPath: v.GetString("STORAGE_LOCAL_PATH"),
			LocalURL:  v.GetString("STORAGE_LOCAL_URL"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			URLExpiry: v.GetDuration("STORAGE_URL_EXPIRY"),
		},
		GCS: GCSConfig{
			BucketName:      v.GetString("GCS_BUCKET_NAME"),
			ProjectID:       v.GetString("GOOGLE_CLOUD_PROJECT"),
			CredentialsPath: v.GetString("GCS_CREDENTIALS_PATH"),
		},
		Gotenberg: GotenbergConfig{
			URL:     v.GetString("GOTENBERG_URL"),
			Timeout: v.GetString("GOTENBERG_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("REDIS_TTL"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			TokenTTL:  v.GetDuration("TOKEN_TTL"),
			OTPTTL:    v.GetDuration("OTP_TTL"),
		},
		GeoIP: GeoIPConfig{
			Enabled:    v.GetBool("GEOIP_ENABLED"),
			URL:        v.GetString("GEOIP_URL"),
			FallbackIP: v.GetString("GEOIP_FALLBACK_IP"),
			Timeout:    v.GetDuration("GEOIP_TIMEOUT"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Storage.Type {
	case "local", "gcs":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Storage.Type == "gcs" && c.GCS.BucketName == "" {
		return fmt.Errorf("GCS_BUCKET_NAME is required when STORAGE_TYPE=gcs")
	}
	if c.Server.Environment == "production" && c.Auth.JWTSecret == "change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
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
