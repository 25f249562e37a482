package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// Artifact store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	DataDir    string `env:"DATA_DIR" envDefault:"./data"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Telegram user client (ingestion and direct forward)
	TGAPIID            int           `env:"TG_API_ID"`
	TGAPIHash          string        `env:"TG_API_HASH"`
	TGPhone            string        `env:"TG_PHONE"`
	TG2FAPassword      string        `env:"TG_2FA_PASSWORD"`
	TGSessionPath      string        `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	ChannelIDs         []int64       `env:"CHANNEL_IDS" envSeparator:","`
	ReaderRequestDelay time.Duration `env:"READER_REQUEST_DELAY" envDefault:"500ms"`
	ReaderPageSize     int           `env:"READER_PAGE_SIZE" envDefault:"100"`
	ReaderMaxLookback  time.Duration `env:"READER_MAX_LOOKBACK" envDefault:"24h"`

	// Delivery
	BotToken         string        `env:"BOT_TOKEN"`
	TargetUserID     int64         `env:"TARGET_USER_ID"`
	DirectForward    bool          `env:"DIRECT_FORWARD" envDefault:"true"`
	MediaEnabled     bool          `env:"MEDIA_ENABLED" envDefault:"true"`
	SendDelay        time.Duration `env:"SEND_DELAY" envDefault:"1s"`
	MessageMaxLength int           `env:"MESSAGE_MAX_LENGTH" envDefault:"4000"`

	// Semantic judgment service
	LLMEnabled          bool          `env:"LLM_ENABLED" envDefault:"false"`
	LLMProvider         string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMBaseURL          string        `env:"LLM_BASE_URL" envDefault:"http://localhost:1234/v1"`
	LLMAPIKey           string        `env:"LLM_API_KEY" envDefault:"lm-studio"`
	LLMModel            string        `env:"LLM_MODEL" envDefault:"saiga_yandexgpt_8b_gguf"`
	LLMTemperature      float32       `env:"LLM_TEMPERATURE" envDefault:"0.4"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	AnthropicAPIKey     string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel      string        `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku-4-5"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Deduplication
	SimilarityThreshold     float64       `env:"DEDUP_SIMILARITY_THRESHOLD" envDefault:"0.9"`
	JudgeMaxBatchSize       int           `env:"JUDGE_MAX_BATCH_SIZE" envDefault:"30"`
	JudgeRequestDelay       time.Duration `env:"JUDGE_REQUEST_DELAY" envDefault:"500ms"`
	JudgeConcurrency        int           `env:"JUDGE_CONCURRENCY" envDefault:"1"`
	UniqueSystemPrompt      string        `env:"UNIQUE_SYSTEM_PROMPT"`
	InformativeSystemPrompt string        `env:"INFORMATIVE_SYSTEM_PROMPT"`
	InformativeCriteria     string        `env:"INFORMATIVE_CRITERIA"`

	// Storage
	ArtifactStore    string `env:"ARTIFACT_STORE" envDefault:"file"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	DBMaxConnections int32  `env:"DB_MAX_CONNECTIONS" envDefault:"5"`

	// Loop mode
	RunInterval time.Duration `env:"RUN_INTERVAL" envDefault:"1h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLMStudioAliases(cfg)

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.ArtifactStore = strings.ToLower(strings.TrimSpace(cfg.ArtifactStore))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return configErrorf("DEDUP_SIMILARITY_THRESHOLD must be in (0,1], got %v", c.SimilarityThreshold)
	}

	if c.JudgeMaxBatchSize <= 0 {
		return configErrorf("JUDGE_MAX_BATCH_SIZE must be positive, got %d", c.JudgeMaxBatchSize)
	}

	if c.JudgeConcurrency <= 0 {
		return configErrorf("JUDGE_CONCURRENCY must be positive, got %d", c.JudgeConcurrency)
	}

	if c.JudgeRequestDelay < 0 {
		return configErrorf("JUDGE_REQUEST_DELAY must not be negative")
	}

	if c.RunInterval <= 0 {
		return configErrorf("RUN_INTERVAL must be positive, got %v", c.RunInterval)
	}

	if err := c.validateLLM(); err != nil {
		return err
	}

	switch c.ArtifactStore {
	case StoreFile:
		if c.DataDir == "" {
			return configErrorf("DATA_DIR is required for the file artifact store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return configErrorf("POSTGRES_DSN is required when ARTIFACT_STORE=postgres")
		}
	default:
		return configErrorf("unknown ARTIFACT_STORE %q", c.ArtifactStore)
	}

	return nil
}

func (c *Config) validateLLM() error {
	if !c.LLMEnabled {
		return nil
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return configErrorf("LLM_TEMPERATURE must be in [0,2], got %v", c.LLMTemperature)
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.LLMBaseURL == "" || c.LLMModel == "" {
			return configErrorf("LLM_BASE_URL and LLM_MODEL are required when LLM_ENABLED=true")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return configErrorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	default:
		return configErrorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	return nil
}

// ValidateSession checks the settings required to open a user session.
func (c *Config) ValidateSession() error {
	if c.TGAPIID == 0 || c.TGAPIHash == "" {
		return configErrorf("TG_API_ID and TG_API_HASH are required")
	}

	return nil
}

// ValidateReader checks the settings required by the ingestion stage.
func (c *Config) ValidateReader() error {
	if err := c.ValidateSession(); err != nil {
		return err
	}

	if len(c.ChannelIDs) == 0 {
		return configErrorf("CHANNEL_IDS must list at least one channel")
	}

	return nil
}

// ValidateSender checks the settings required by the delivery stage.
func (c *Config) ValidateSender() error {
	if c.BotToken == "" || c.TargetUserID == 0 {
		return configErrorf("BOT_TOKEN and TARGET_USER_ID are required")
	}

	if c.DirectForward && (c.TGAPIID == 0 || c.TGAPIHash == "") {
		return configErrorf("TG_API_ID and TG_API_HASH are required when DIRECT_FORWARD=true")
	}

	return nil
}

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrConfiguration, fmt.Sprintf(format, args...))
}

// applyLMStudioAliases honors the LM Studio variable names when the generic ones are unset.
func applyLMStudioAliases(cfg *Config) {
	if !hasEnv("LLM_BASE_URL") {
		setStringFromEnv("LM_STUDIO_API_URL", &cfg.LLMBaseURL)
	}

	if !hasEnv("LLM_MODEL") {
		setStringFromEnv("LM_STUDIO_MODEL", &cfg.LLMModel)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}
