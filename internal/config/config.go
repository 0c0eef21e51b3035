package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	Push     PushConfig     `yaml:"push"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Sync     SyncConfig     `yaml:"sync"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

// PushConfig selects and configures push providers
type PushConfig struct {
	// IOSDriver is "sns" (platform endpoints) or "apns" (direct)
	IOSDriver      string        `yaml:"ios_driver"`
	Timeout        time.Duration `yaml:"timeout"`
	SNSAppleARN    string        `yaml:"sns_apple_app_arn"`
	SNSAndroidARN  string        `yaml:"sns_android_app_arn"`
	APNSKeyFile    string        `yaml:"apns_key_file"`
	APNSKeyID      string        `yaml:"apns_key_id"`
	APNSTeamID     string        `yaml:"apns_team_id"`
	APNSTopic      string        `yaml:"apns_topic"`
	APNSProduction bool          `yaml:"apns_production"`
	VAPIDPublic    string        `yaml:"vapid_public_key"`
	VAPIDPrivate   string        `yaml:"vapid_private_key"`
	VAPIDSubject   string        `yaml:"vapid_subject"`
}

// RedisConfig enables the distributed lock and the shared dispatch queue.
// Empty Addr keeps both in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string        `yaml:"secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SyncConfig tunes the device sync coordinator and the reconciliation sweep
type SyncConfig struct {
	LockTTL        time.Duration `yaml:"lock_ttl"`
	LockWait       time.Duration `yaml:"lock_wait"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepBatchSize int           `yaml:"sweep_batch_size"`
}

// DispatchConfig tunes the notification workers
type DispatchConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	QueueKey  string        `yaml:"queue_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AdminConfig lists the accounts allowed on operational endpoints. An
// empty list closes them.
type AdminConfig struct {
	UserIDs []string `yaml:"user_ids"`
}

// Load reads configuration from a YAML file, then applies .env and
// environment overrides and fills defaults
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML without touching the environment
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.JWT.RefreshSecret, "JWT_REFRESH_SECRET")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.Push.SNSAppleARN, "SNS_APPLE_APP_ARN")
	setString(&c.Push.SNSAndroidARN, "SNS_ANDROID_APP_ARN")
	setString(&c.Push.VAPIDPublic, "VAPID_PUBLIC_KEY")
	setString(&c.Push.VAPIDPrivate, "VAPID_PRIVATE_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		c.Admin.UserIDs = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Admin.UserIDs = append(c.Admin.UserIDs, id)
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Push.IOSDriver == "" {
		c.Push.IOSDriver = "sns"
	}
	if c.Push.Timeout == 0 {
		c.Push.Timeout = 5 * time.Second
	}
	if c.Push.VAPIDSubject == "" {
		c.Push.VAPIDSubject = "mailto:admin@example.com"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 24 * time.Hour
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 90 * 24 * time.Hour
	}
	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = c.JWT.Secret
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Sync.LockTTL == 0 {
		c.Sync.LockTTL = 30 * time.Second
	}
	if c.Sync.LockWait == 0 {
		c.Sync.LockWait = 10 * time.Second
	}
	if c.Sync.SweepInterval == 0 {
		c.Sync.SweepInterval = 10 * time.Minute
	}
	if c.Sync.SweepBatchSize == 0 {
		c.Sync.SweepBatchSize = 100
	}
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = 1024
	}
	if c.Dispatch.QueueKey == "" {
		c.Dispatch.QueueKey = "rsvp:changes"
	}
	if c.Dispatch.Timeout == 0 {
		c.Dispatch.Timeout = 30 * time.Second
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return errors.New("database url or host is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.Push.IOSDriver {
	case "sns", "apns":
	default:
		return fmt.Errorf("unknown push ios_driver %q", c.Push.IOSDriver)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
