package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server       ServerConfig
	AI           AIConfig
	Auth         AuthConfig
	WS           WSConfig
	Storage      StorageConfig
	Intelligence IntelligenceConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	ws, err := loadWSConfig()
	if err != nil {
		return nil, err
	}

	intel, err := loadIntelligenceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:       server,
		AI:           ai,
		Auth:         auth,
		WS:           ws,
		Storage:      StorageConfig{DataDir: strings.TrimSpace(os.Getenv("DATA_DIR"))},
		Intelligence: intel,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the model provider.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// AuthConfig describes access-token verification.
type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET is required")
	}

	ttl := 15 * time.Minute
	if override, err := parseOptionalIntEnv("ACCESS_TOKEN_TTL_MINUTES"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AuthConfig{}, fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
		}
		ttl = time.Duration(*override) * time.Minute
	}

	return AuthConfig{JWTSecret: secret, AccessTokenTTL: ttl}, nil
}

// WSConfig describes the realtime connection lifecycle.
type WSConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

func loadWSConfig() (WSConfig, error) {
	interval := 30 * time.Second
	if override, err := parseOptionalIntEnv("WS_HEARTBEAT_INTERVAL_SECONDS"); err != nil {
		return WSConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return WSConfig{}, fmt.Errorf("WS_HEARTBEAT_INTERVAL_SECONDS must be positive")
		}
		interval = time.Duration(*override) * time.Second
	}

	timeout := 60 * time.Second
	if override, err := parseOptionalIntEnv("WS_HEARTBEAT_TIMEOUT_SECONDS"); err != nil {
		return WSConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return WSConfig{}, fmt.Errorf("WS_HEARTBEAT_TIMEOUT_SECONDS must be positive")
		}
		timeout = time.Duration(*override) * time.Second
	}

	return WSConfig{HeartbeatInterval: interval, HeartbeatTimeout: timeout}, nil
}

// StorageConfig describes optional durable storage. An empty DataDir keeps
// everything in memory.
type StorageConfig struct {
	DataDir string
}

// IntelligenceConfig tunes the memory/emotion passes.
type IntelligenceConfig struct {
	MemoryExtractEvery int
	MemoryRetrieveTop  int
	// HistoryLimit caps how many prior messages a turn replays to the
	// model. Zero replays the full history.
	HistoryLimit int
}

func loadIntelligenceConfig() (IntelligenceConfig, error) {
	every := 5
	if override, err := parseOptionalIntEnv("MEMORY_EXTRACT_EVERY"); err != nil {
		return IntelligenceConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return IntelligenceConfig{}, fmt.Errorf("MEMORY_EXTRACT_EVERY must be positive")
		}
		every = *override
	}

	top := 5
	if override, err := parseOptionalIntEnv("MEMORY_RETRIEVE_TOP"); err != nil {
		return IntelligenceConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return IntelligenceConfig{}, fmt.Errorf("MEMORY_RETRIEVE_TOP must be positive")
		}
		top = *override
	}

	historyLimit := 0
	if override, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return IntelligenceConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return IntelligenceConfig{}, fmt.Errorf("HISTORY_LIMIT must not be negative")
		}
		historyLimit = *override
	}

	return IntelligenceConfig{MemoryExtractEvery: every, MemoryRetrieveTop: top, HistoryLimit: historyLimit}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
