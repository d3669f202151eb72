package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Events    EventsConfig    `yaml:"events"`
	Export    ExportConfig    `yaml:"export"`
	Access    AccessConfig    `yaml:"access"`
	Admin     AdminConfig     `yaml:"admin"`
	Activity  ActivityConfig  `yaml:"activity"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StorageConfig selects and configures the document store.
// Type is one of "dynamodb", "postgres" or "memory".
type StorageConfig struct {
	Type        string `yaml:"type"`
	DatabaseURL string `yaml:"database_url"`
	TablePrefix string `yaml:"table_prefix"`
	AWSRegion   string `yaml:"aws_region"`
	AWSProfile  string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	Endpoint    string `yaml:"endpoint"`    // DynamoDB Local / LocalStack
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// RedisConfig holds the Redis connection used by the rate limiter.
// An empty URL disables rate limiting.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// EmailConfig holds transactional email settings.
// Provider is "ses" or "log".
type EmailConfig struct {
	Provider       string `yaml:"provider"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
	SiteURL        string `yaml:"site_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured send timeout as a duration
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EventsConfig holds the SQS queue that receives lead lifecycle events.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	QueueURL string `yaml:"queue_url"`
	Region   string `yaml:"region"`
}

// ExportConfig holds S3 snapshot export settings.
type ExportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	S3Bucket string `yaml:"s3_bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
}

// GrantConfig is one allowlist entry. Empty Resources grants every type.
type GrantConfig struct {
	Email     string   `yaml:"email"`
	Resources []string `yaml:"resources"`
}

// AccessConfig holds the access-request workflow settings.
type AccessConfig struct {
	Allowlist       []GrantConfig `yaml:"allowlist"`
	DefaultApprover string        `yaml:"default_approver"`
	OperatorEmails  []string      `yaml:"operator_emails"`
}

// AdminConfig holds admin surface settings.
type AdminConfig struct {
	TokenSecret         string `yaml:"token_secret"`
	ActiveWindowHours   int    `yaml:"active_window_hours"`
	RecentActivityLimit int    `yaml:"recent_activity_limit"`
}

// ActiveWindow returns the lookback used for the active-visitor metric.
func (c AdminConfig) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveWindowHours) * time.Hour
}

// ActivityConfig bounds the retry loop around activity writes.
type ActivityConfig struct {
	RetryAttempts    int `yaml:"retry_attempts"`
	RetryDelayMillis int `yaml:"retry_delay_millis"`
}

// RetryDelay returns the base delay between attempts.
func (c ActivityConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMillis) * time.Millisecond
}

// RateLimitConfig holds the per-IP limit for public write endpoints.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	Requests      int  `yaml:"requests"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// Window returns the fixed window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "ap-southeast-2"
	}
	if cfg.Storage.TablePrefix == "" {
		cfg.Storage.TablePrefix = "launchpad_"
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "log"
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = cfg.Storage.AWSRegion
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Equihome"
	}
	if cfg.Email.TimeoutSeconds == 0 {
		cfg.Email.TimeoutSeconds = 10
	}
	if cfg.Events.Region == "" {
		cfg.Events.Region = cfg.Storage.AWSRegion
	}
	if cfg.Export.Region == "" {
		cfg.Export.Region = cfg.Storage.AWSRegion
	}
	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = "snapshots"
	}
	if cfg.Admin.ActiveWindowHours == 0 {
		cfg.Admin.ActiveWindowHours = 7 * 24
	}
	if cfg.Admin.RecentActivityLimit == 0 || cfg.Admin.RecentActivityLimit > 50 {
		cfg.Admin.RecentActivityLimit = 50
	}
	if cfg.Activity.RetryAttempts == 0 {
		cfg.Activity.RetryAttempts = 3
	}
	if cfg.Activity.RetryDelayMillis == 0 {
		cfg.Activity.RetryDelayMillis = 100
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
}

// LoadFromEnv loads configuration with environment variable overrides
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = Default()
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("DYNAMODB_TABLE_PREFIX"); v != "" {
		cfg.Storage.TablePrefix = v
	}
	if v := os.Getenv("DYNAMODB_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.RateLimit.Enabled = true
	}

	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Email.Provider = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Email.SiteURL = v
	}

	if v := os.Getenv("LEAD_EVENTS_QUEUE_URL"); v != "" {
		cfg.Events.QueueURL = v
		cfg.Events.Enabled = true
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
		cfg.Export.Enabled = true
	}

	if v := os.Getenv("ADMIN_TOKEN_SECRET"); v != "" {
		cfg.Admin.TokenSecret = v
	}
	if v := os.Getenv("DEFAULT_APPROVER"); v != "" {
		cfg.Access.DefaultApprover = v
	}
	if v := os.Getenv("OPERATOR_EMAILS"); v != "" {
		cfg.Access.OperatorEmails = splitList(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
