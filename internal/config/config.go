package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kai426/Dignus-sub001/domain"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	LogLevel        string `yaml:"log_level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type CandidateAuthConfig struct {
	CodeLength        int    `yaml:"code_length"`
	CodeTTL           string `yaml:"code_ttl"`
	MaxFailedAttempts int    `yaml:"max_failed_attempts"`
	LockoutDuration   string `yaml:"lockout_duration"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	Timeout  string `yaml:"timeout"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type StorageConfig struct {
	Driver    string `yaml:"driver"`
	LocalRoot string `yaml:"local_root"`
	BaseURL   string `yaml:"base_url"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AIConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	CallbackURL   string `yaml:"callback_url"`
	Timeout       string `yaml:"timeout"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type TestsConfig struct {
	QuestionCounts map[string]int    `yaml:"question_counts"`
	DurationLimits map[string]string `yaml:"duration_limits"`
	MaxVideoSizeMB int64             `yaml:"max_video_size_mb"`
}

type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	CandidateAuth CandidateAuthConfig `yaml:"candidate_auth"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	Storage       StorageConfig       `yaml:"storage"`
	AI            AIConfig            `yaml:"ai"`
	Tests         TestsConfig         `yaml:"tests"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Log           LogConfig           `yaml:"log"`
	Casbin        CasbinConfig        `yaml:"casbin"`
}

// Config is the resolved runtime configuration. Durations are parsed and
// secrets have been overridden from the environment.
type Config struct {
	Port    string
	GinMode string

	DSN             string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
	DBLogLevel      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	CodeLength      int
	CodeTTL         time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTimeout  time.Duration
	TwilioSID    string
	TwilioToken  string
	TwilioFrom   string

	StorageDriver    string
	StorageLocalRoot string
	StorageBaseURL   string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool

	AIBaseURL       string
	AIAPIKey        string
	AICallbackURL   string
	AITimeout       time.Duration
	AIWebhookSecret string

	QuestionCounts map[domain.TestType]int
	DurationLimits map[domain.TestType]time.Duration
	MaxVideoSize   int64

	RateLimitRequests int
	RateLimitWindow   time.Duration

	Log             LogConfig
	CasbinModelPath string
	ValidationRules []ValidationRule
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env when present, then the YAML file named by CONFIG_PATH
// (default config/config.yml) and the validation rules next to it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

// LoadFrom builds the configuration from the YAML file at path
func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var p durationParser
	cfg := &Config{
		Port:    env("PORT", strconv.Itoa(configFile.App.Port)),
		GinMode: env("GIN_MODE", configFile.App.GinMode),

		DSN:            env("DATABASE_DSN", configFile.Database.DSN),
		DBMaxOpenConns: configFile.Database.MaxOpenConns,
		DBMaxIdleConns: configFile.Database.MaxIdleConns,
		DBConnLifetime: p.parse("database.conn_max_lifetime", configFile.Database.ConnMaxLifetime, time.Hour),
		DBLogLevel:     configFile.Database.LogLevel,
		RedisAddr:      env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword:  env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:        configFile.Redis.DB,

		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		AccessTTL:       p.parse("jwt.access_ttl", configFile.JWT.AccessTTL, 15*time.Minute),
		RefreshTTL:      p.parse("jwt.refresh_ttl", configFile.JWT.RefreshTTL, 7*24*time.Hour),
		CodeLength:      configFile.CandidateAuth.CodeLength,
		CodeTTL:         p.parse("candidate_auth.code_ttl", configFile.CandidateAuth.CodeTTL, 15*time.Minute),
		MaxFailedLogins: configFile.CandidateAuth.MaxFailedAttempts,
		LockoutDuration: p.parse("candidate_auth.lockout_duration", configFile.CandidateAuth.LockoutDuration, 10*time.Minute),

		SMTPHost:     env("SMTP_HOST", configFile.SMTP.Host),
		SMTPPort:     env("SMTP_PORT", strconv.Itoa(configFile.SMTP.Port)),
		SMTPUsername: env("SMTP_USERNAME", configFile.SMTP.Username),
		SMTPPassword: env("SMTP_PASSWORD", configFile.SMTP.Password),
		SMTPFrom:     env("SMTP_FROM", configFile.SMTP.From),
		SMTPFromName: configFile.SMTP.FromName,
		SMTPTimeout:  p.parse("smtp.timeout", configFile.SMTP.Timeout, 10*time.Second),
		TwilioSID:    env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:  env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:   env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),

		StorageDriver:    env("STORAGE_DRIVER", configFile.Storage.Driver),
		StorageLocalRoot: configFile.Storage.LocalRoot,
		StorageBaseURL:   configFile.Storage.BaseURL,
		MinioEndpoint:    env("MINIO_ENDPOINT", configFile.Storage.Endpoint),
		MinioAccessKey:   env("MINIO_ACCESS_KEY", configFile.Storage.AccessKey),
		MinioSecretKey:   env("MINIO_SECRET_KEY", configFile.Storage.SecretKey),
		MinioBucket:      env("MINIO_BUCKET", configFile.Storage.Bucket),
		MinioUseSSL:      configFile.Storage.UseSSL,

		AIBaseURL:       env("AI_BASE_URL", configFile.AI.BaseURL),
		AIAPIKey:        env("AI_API_KEY", configFile.AI.APIKey),
		AICallbackURL:   env("AI_CALLBACK_URL", configFile.AI.CallbackURL),
		AITimeout:       p.parse("ai.timeout", configFile.AI.Timeout, 15*time.Second),
		AIWebhookSecret: env("AI_WEBHOOK_SECRET", configFile.AI.WebhookSecret),

		MaxVideoSize:      configFile.Tests.MaxVideoSizeMB << 20,
		RateLimitRequests: configFile.RateLimit.Requests,
		RateLimitWindow:   p.parse("rate_limit.window", configFile.RateLimit.Window, time.Minute),

		Log:             configFile.Log,
		CasbinModelPath: configFile.Casbin.ModelPath,
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = env("LOG_LEVEL", "info")
	}

	if cfg.QuestionCounts, err = parseQuestionCounts(configFile.Tests.QuestionCounts); err != nil {
		return nil, err
	}
	if cfg.DurationLimits, err = parseDurationLimits(configFile.Tests.DurationLimits); err != nil {
		return nil, err
	}

	rulesPath := filepath.Join(filepath.Dir(path), "validation_rules.yml")
	validationRules, err := loadValidationRules(rulesPath)
	if err != nil {
		// no rules file means no field validation
		validationRules = []ValidationRule{}
	}
	cfg.ValidationRules = validationRules

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return cfg, nil
}

// durationParser keeps the first parse failure so Load can report it once
type durationParser struct {
	err error
}

func (p *durationParser) parse(field, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s: %w", field, err)
		}
		return def
	}
	return d
}

// parseQuestionCounts falls back to domain.DefaultQuestionCounts when the file has none
func parseQuestionCounts(raw map[string]int) (map[domain.TestType]int, error) {
	if len(raw) == 0 {
		return domain.DefaultQuestionCounts(), nil
	}
	counts := make(map[domain.TestType]int, len(raw))
	for name, n := range raw {
		t := domain.TestType(name)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown test type %q in tests.question_counts", name)
		}
		if n <= 0 {
			return nil, fmt.Errorf("tests.question_counts.%s must be positive", name)
		}
		counts[t] = n
	}
	return counts, nil
}

func parseDurationLimits(raw map[string]string) (map[domain.TestType]time.Duration, error) {
	limits := make(map[domain.TestType]time.Duration, len(raw))
	for name, value := range raw {
		t := domain.TestType(name)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown test type %q in tests.duration_limits", name)
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid tests.duration_limits.%s: %w", name, err)
		}
		limits[t] = d
	}
	return limits, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func loadValidationRules(path string) ([]ValidationRule, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read validation rules file: %w", err)
	}

	var config struct {
		Rules []ValidationRule `yaml:"validationRules"`
	}
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse validation rules yaml: %w", err)
	}
	return config.Rules, nil
}
