package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultDeployment is the chat model used when no deployment is configured.
const DefaultDeployment = "gpt-3.5-turbo"

// Config captures the runtime configuration for the feedback service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Sentiment     SentimentConfig     `mapstructure:"sentiment"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimits    RateLimitConfig     `mapstructure:"rate_limits"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Health        HealthConfig        `mapstructure:"health"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SentimentConfig selects and configures the sentiment backend.
type SentimentConfig struct {
	Provider string        `mapstructure:"provider"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GenerationConfig selects and configures the chat backend used for replies.
type GenerationConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Endpoint   string        `mapstructure:"endpoint"`
	APIVersion string        `mapstructure:"api_version"`
	Deployment string        `mapstructure:"deployment"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Bedrock is only read when Provider is bedrock; Deployment holds the model id.
	Bedrock BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig carries AWS settings for the Bedrock generation backend.
// Empty credentials fall back to the default AWS chain.
type BedrockConfig struct {
	Region           string `mapstructure:"region"`
	Profile          string `mapstructure:"profile"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	SessionToken     string `mapstructure:"session_token"`
	AnthropicVersion string `mapstructure:"anthropic_version"`
}

// SpeechConfig selects and configures the text-to-speech backend.
type SpeechConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	SubscriptionKey string        `mapstructure:"subscription_key"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	Voice           string        `mapstructure:"voice"`
	Language        string        `mapstructure:"language"`
	OutputFormat    string        `mapstructure:"output_format"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// AudioConfig controls where synthesized audio is stored.
type AudioConfig struct {
	Storage       string           `mapstructure:"storage"`
	Prefix        string           `mapstructure:"prefix"`
	EncryptionKey string           `mapstructure:"encryption_key"`
	S3            AudioS3Config    `mapstructure:"s3"`
	Local         AudioLocalConfig `mapstructure:"local"`
}

type AudioS3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type AudioLocalConfig struct {
	Directory string `mapstructure:"directory"`
}

type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	ParallelRequests  int `mapstructure:"parallel_requests"`
}

type DatabaseConfig struct {
	URL           string `mapstructure:"url"`
	RunMigrations bool   `mapstructure:"run_migrations"`
	// MigrationsDir overrides the migrations compiled into the binary.
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MinConns        int32         `mapstructure:"min_conns"`
}

type ObservabilityConfig struct {
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// envAliases binds config keys to the prefixed variable plus the legacy
// unprefixed names the service has always accepted.
var envAliases = map[string][]string{
	"sentiment.endpoint":          {"FEEDBACK_SENTIMENT_ENDPOINT", "AZURE_ENDPOINT"},
	"sentiment.api_key":           {"FEEDBACK_SENTIMENT_API_KEY", "AZURE_API_KEY"},
	"generation.api_key":          {"FEEDBACK_GENERATION_API_KEY", "OPEN_AI_KEY", "AZURE_GPT_KEY"},
	"generation.endpoint":         {"FEEDBACK_GENERATION_ENDPOINT", "AZURE_GPT_ENDPOINT"},
	"generation.deployment":       {"FEEDBACK_GENERATION_DEPLOYMENT", "DEPLOYMENT_ID"},
	"generation.base_url":         {"FEEDBACK_GENERATION_BASE_URL"},
	"generation.bedrock.region":   {"FEEDBACK_GENERATION_BEDROCK_REGION", "AWS_REGION"},
	"speech.subscription_key":     {"FEEDBACK_SPEECH_SUBSCRIPTION_KEY", "AZURE_SPEECH_KEY"},
	"speech.region":               {"FEEDBACK_SPEECH_REGION", "AZURE_SPEECH_REGION"},
	"speech.endpoint":             {"FEEDBACK_SPEECH_ENDPOINT"},
	"redis.url":                   {"FEEDBACK_REDIS_URL"},
	"database.url":                {"FEEDBACK_DATABASE_URL"},
	"audio.encryption_key":        {"FEEDBACK_AUDIO_ENCRYPTION_KEY"},
	"audio.s3.bucket":             {"FEEDBACK_AUDIO_S3_BUCKET"},
	"audio.s3.endpoint":           {"FEEDBACK_AUDIO_S3_ENDPOINT"},
	"observability.otlp_endpoint": {"FEEDBACK_OBSERVABILITY_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("FEEDBACK_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("feedback")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("FEEDBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and normalizes optional ones.
func (c *Config) Validate() error {
	var missing []string

	c.Sentiment.Provider = normalizeName(c.Sentiment.Provider, "azure")
	switch c.Sentiment.Provider {
	case "azure":
		if strings.TrimSpace(c.Sentiment.Endpoint) == "" {
			missing = append(missing, "AZURE_ENDPOINT")
		}
		if strings.TrimSpace(c.Sentiment.APIKey) == "" {
			missing = append(missing, "AZURE_API_KEY")
		}
	case "vader":
	default:
		return fmt.Errorf("sentiment.provider must be azure or vader, got %q", c.Sentiment.Provider)
	}

	c.Generation.Provider = normalizeName(c.Generation.Provider, "openai")
	switch c.Generation.Provider {
	case "openai":
		if strings.TrimSpace(c.Generation.APIKey) == "" {
			missing = append(missing, "OPEN_AI_KEY")
		}
	case "azure_openai":
		if strings.TrimSpace(c.Generation.Endpoint) == "" {
			missing = append(missing, "AZURE_GPT_ENDPOINT")
		}
		if strings.TrimSpace(c.Generation.APIKey) == "" {
			missing = append(missing, "AZURE_GPT_KEY")
		}
	case "bedrock":
		if strings.TrimSpace(c.Generation.Bedrock.Region) == "" {
			missing = append(missing, "AWS_REGION")
		}
		if strings.TrimSpace(c.Generation.Deployment) == "" || c.Generation.Deployment == DefaultDeployment {
			return fmt.Errorf("generation.deployment must name a bedrock model id")
		}
	default:
		return fmt.Errorf("generation.provider must be openai, azure_openai or bedrock, got %q", c.Generation.Provider)
	}
	if strings.TrimSpace(c.Generation.Deployment) == "" {
		c.Generation.Deployment = DefaultDeployment
	}

	if c.Speech.Enabled {
		c.Speech.Provider = normalizeName(c.Speech.Provider, "azure")
		switch c.Speech.Provider {
		case "azure":
			if strings.TrimSpace(c.Speech.SubscriptionKey) == "" {
				missing = append(missing, "AZURE_SPEECH_KEY")
			}
			if strings.TrimSpace(c.Speech.Region) == "" && strings.TrimSpace(c.Speech.Endpoint) == "" {
				missing = append(missing, "AZURE_SPEECH_REGION")
			}
		case "openai", "azure_openai":
			// reuses the generation credentials
		default:
			return fmt.Errorf("speech.provider must be azure, openai or azure_openai, got %q", c.Speech.Provider)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Server.BodyLimitMB <= 0 {
		c.Server.BodyLimitMB = 1
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.RateLimits.RequestsPerMinute < 0 || c.RateLimits.ParallelRequests < 0 {
		return fmt.Errorf("rate_limits values must be >= 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}
	if c.Redis.IdempotencyTTL <= 0 {
		c.Redis.IdempotencyTTL = 30 * time.Minute
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0")
	}

	if err := c.Audio.validate(); err != nil {
		return err
	}
	c.Logging.Level = normalizeName(c.Logging.Level, "info")
	c.Logging.Format = normalizeName(c.Logging.Format, "text")
	return nil
}

// SpeechActive reports whether the synthesis stage should be wired at all.
func (c *Config) SpeechActive() bool {
	return c != nil && c.Speech.Enabled
}

func (a *AudioConfig) validate() error {
	a.Storage = normalizeName(a.Storage, "local")
	switch a.Storage {
	case "local":
		if strings.TrimSpace(a.Local.Directory) == "" {
			a.Local.Directory = "./data/audio"
		}
	case "s3":
		if strings.TrimSpace(a.S3.Bucket) == "" {
			return fmt.Errorf("audio.s3.bucket must be provided for s3 storage")
		}
	default:
		return fmt.Errorf("audio.storage must be local or s3, got %q", a.Storage)
	}
	a.Prefix = strings.Trim(a.Prefix, "/")
	if a.Prefix == "" {
		a.Prefix = "audio"
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 1)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.request_timeout", "90s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("sentiment.provider", "azure")
	v.SetDefault("sentiment.language", "en")
	v.SetDefault("sentiment.timeout", "10s")

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.api_version", "2024-07-01-preview")
	v.SetDefault("generation.deployment", DefaultDeployment)
	v.SetDefault("generation.max_tokens", 0)
	v.SetDefault("generation.timeout", "30s")
	v.SetDefault("generation.bedrock.anthropic_version", "bedrock-2023-05-31")
	for _, key := range []string{"region", "profile", "access_key_id", "secret_access_key", "session_token"} {
		v.SetDefault("generation.bedrock."+key, "")
	}

	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.provider", "azure")
	v.SetDefault("speech.voice", "en-US-JennyNeural")
	v.SetDefault("speech.language", "en-US")
	v.SetDefault("speech.output_format", "riff-24khz-16bit-mono-pcm")
	v.SetDefault("speech.model", "gpt-4o-mini-tts")
	v.SetDefault("speech.timeout", "30s")

	v.SetDefault("audio.storage", "local")
	v.SetDefault("audio.prefix", "audio")
	v.SetDefault("audio.local.directory", "./data/audio")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.idempotency_ttl", "30m")

	v.SetDefault("rate_limits.requests_per_minute", 60)
	v.SetDefault("rate_limits.parallel_requests", 4)

	v.SetDefault("database.run_migrations", true)
	v.SetDefault("database.migrations_dir", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")

	v.SetDefault("health.check_interval", "60s")
	v.SetDefault("health.timeout", "5s")
}

func normalizeName(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}

const redactedValue = "********"

// Redacted returns a copy with credentials masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedValue
	}
	c.Sentiment.APIKey = mask(c.Sentiment.APIKey)
	c.Generation.APIKey = mask(c.Generation.APIKey)
	c.Generation.Bedrock.SecretAccessKey = mask(c.Generation.Bedrock.SecretAccessKey)
	c.Generation.Bedrock.SessionToken = mask(c.Generation.Bedrock.SessionToken)
	c.Speech.SubscriptionKey = mask(c.Speech.SubscriptionKey)
	c.Audio.EncryptionKey = mask(c.Audio.EncryptionKey)
	c.Redis.URL = redactURL(c.Redis.URL)
	c.Database.URL = redactURL(c.Database.URL)
	return c
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redactedValue)
	}
	return u.String()
}
