// Package config loads runtime configuration from an optional YAML file and
// DEALDRAFT_* environment variables. Environment values override file values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr             = "127.0.0.1:8080"
	defaultShutdownTimeout      = 5 * time.Second
	defaultLogFormat            = LogFormatText
	defaultLogLevel             = slog.LevelInfo
	defaultModelMode            = ModelModeMock
	defaultProviderBaseURL      = "https://api.openai.com/v1"
	defaultProviderChatModel    = "gpt-4o"
	defaultProviderRewriteModel = "gpt-4-turbo"
	defaultProviderTimeout      = 60 * time.Second
	defaultMaxTurnRounds        = 5
	defaultEventHistoryLimit    = 256
)

type ModelMode string

const (
	ModelModeMock     ModelMode = "mock"
	ModelModeProvider ModelMode = "provider"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config controls HTTP boot, model wiring, and session limits.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogFormat       LogFormat
	LogLevel        slog.Level

	ModelMode            ModelMode
	ProviderAPIKey       string
	ProviderChatModel    string
	ProviderRewriteModel string
	ProviderBaseURL      string
	ProviderTimeout      time.Duration

	AuthSecret        string
	MaxTurnRounds     int
	EventHistoryLimit int
}

// fileConfig is the YAML shape of an optional config file.
type fileConfig struct {
	HTTPAddr        string `yaml:"http_addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`

	ModelMode            string `yaml:"model_mode"`
	ProviderAPIKey       string `yaml:"provider_api_key"`
	ProviderChatModel    string `yaml:"provider_chat_model"`
	ProviderRewriteModel string `yaml:"provider_rewrite_model"`
	ProviderBaseURL      string `yaml:"provider_base_url"`
	ProviderTimeout      string `yaml:"provider_timeout"`

	AuthSecret        string `yaml:"auth_secret"`
	MaxTurnRounds     *int   `yaml:"max_turn_rounds"`
	EventHistoryLimit *int   `yaml:"event_history_limit"`
}

func Default() Config {
	return Config{
		HTTPAddr:             defaultHTTPAddr,
		ShutdownTimeout:      defaultShutdownTimeout,
		LogFormat:            defaultLogFormat,
		LogLevel:             defaultLogLevel,
		ModelMode:            defaultModelMode,
		ProviderChatModel:    defaultProviderChatModel,
		ProviderRewriteModel: defaultProviderRewriteModel,
		ProviderBaseURL:      defaultProviderBaseURL,
		ProviderTimeout:      defaultProviderTimeout,
		MaxTurnRounds:        defaultMaxTurnRounds,
		EventHistoryLimit:    defaultEventHistoryLimit,
	}
}

// Load builds the configuration: defaults, then the file named by
// DEALDRAFT_CONFIG_FILE (if set), then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("DEALDRAFT_CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.ShutdownTimeout != "" {
		parsed, err := parsePositiveDuration("shutdown_timeout", fc.ShutdownTimeout)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = parsed
	}
	if fc.LogFormat != "" {
		parsed, err := parseLogFormat(fc.LogFormat)
		if err != nil {
			return err
		}
		cfg.LogFormat = parsed
	}
	if fc.LogLevel != "" {
		parsed, err := parseLogLevel(fc.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = parsed
	}
	if fc.ModelMode != "" {
		cfg.ModelMode = ModelMode(strings.TrimSpace(fc.ModelMode))
	}
	if fc.ProviderAPIKey != "" {
		cfg.ProviderAPIKey = fc.ProviderAPIKey
	}
	if fc.ProviderChatModel != "" {
		cfg.ProviderChatModel = fc.ProviderChatModel
	}
	if fc.ProviderRewriteModel != "" {
		cfg.ProviderRewriteModel = fc.ProviderRewriteModel
	}
	if fc.ProviderBaseURL != "" {
		cfg.ProviderBaseURL = fc.ProviderBaseURL
	}
	if fc.ProviderTimeout != "" {
		parsed, err := parsePositiveDuration("provider_timeout", fc.ProviderTimeout)
		if err != nil {
			return err
		}
		cfg.ProviderTimeout = parsed
	}
	if fc.AuthSecret != "" {
		cfg.AuthSecret = fc.AuthSecret
	}
	if fc.MaxTurnRounds != nil {
		cfg.MaxTurnRounds = *fc.MaxTurnRounds
	}
	if fc.EventHistoryLimit != nil {
		cfg.EventHistoryLimit = *fc.EventHistoryLimit
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if addr := os.Getenv("DEALDRAFT_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if timeout := strings.TrimSpace(os.Getenv("DEALDRAFT_SHUTDOWN_TIMEOUT")); timeout != "" {
		parsed, err := parsePositiveDuration("DEALDRAFT_SHUTDOWN_TIMEOUT", timeout)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = parsed
	}
	if format := strings.TrimSpace(os.Getenv("DEALDRAFT_LOG_FORMAT")); format != "" {
		parsed, err := parseLogFormat(format)
		if err != nil {
			return err
		}
		cfg.LogFormat = parsed
	}
	if level := strings.TrimSpace(os.Getenv("DEALDRAFT_LOG_LEVEL")); level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return err
		}
		cfg.LogLevel = parsed
	}
	if mode := strings.TrimSpace(os.Getenv("DEALDRAFT_MODEL_MODE")); mode != "" {
		cfg.ModelMode = ModelMode(mode)
	}
	if key := strings.TrimSpace(os.Getenv("DEALDRAFT_PROVIDER_API_KEY")); key != "" {
		cfg.ProviderAPIKey = key
	}
	if model := strings.TrimSpace(os.Getenv("DEALDRAFT_PROVIDER_CHAT_MODEL")); model != "" {
		cfg.ProviderChatModel = model
	}
	if model := strings.TrimSpace(os.Getenv("DEALDRAFT_PROVIDER_REWRITE_MODEL")); model != "" {
		cfg.ProviderRewriteModel = model
	}
	if baseURL := strings.TrimSpace(os.Getenv("DEALDRAFT_PROVIDER_BASE_URL")); baseURL != "" {
		cfg.ProviderBaseURL = baseURL
	}
	if timeout := strings.TrimSpace(os.Getenv("DEALDRAFT_PROVIDER_TIMEOUT")); timeout != "" {
		parsed, err := parsePositiveDuration("DEALDRAFT_PROVIDER_TIMEOUT", timeout)
		if err != nil {
			return err
		}
		cfg.ProviderTimeout = parsed
	}
	if secret := strings.TrimSpace(os.Getenv("DEALDRAFT_AUTH_SECRET")); secret != "" {
		cfg.AuthSecret = secret
	}
	if rounds := strings.TrimSpace(os.Getenv("DEALDRAFT_MAX_TURN_ROUNDS")); rounds != "" {
		parsed, err := strconv.Atoi(rounds)
		if err != nil {
			return fmt.Errorf("parse DEALDRAFT_MAX_TURN_ROUNDS: %w", err)
		}
		cfg.MaxTurnRounds = parsed
	}
	if limit := strings.TrimSpace(os.Getenv("DEALDRAFT_EVENT_HISTORY_LIMIT")); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("parse DEALDRAFT_EVENT_HISTORY_LIMIT: %w", err)
		}
		cfg.EventHistoryLimit = parsed
	}
	return nil
}

func (c Config) Validate() error {
	switch c.ModelMode {
	case ModelModeMock:
	case ModelModeProvider:
		if strings.TrimSpace(c.ProviderAPIKey) == "" {
			return errors.New("validate config: provider mode requires DEALDRAFT_PROVIDER_API_KEY")
		}
		if strings.TrimSpace(c.ProviderChatModel) == "" {
			return errors.New("validate config: provider mode requires DEALDRAFT_PROVIDER_CHAT_MODEL")
		}
		if strings.TrimSpace(c.ProviderBaseURL) == "" {
			return errors.New("validate config: provider mode requires DEALDRAFT_PROVIDER_BASE_URL")
		}
		if c.ProviderTimeout <= 0 {
			return errors.New("validate config: provider mode requires DEALDRAFT_PROVIDER_TIMEOUT > 0")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported DEALDRAFT_MODEL_MODE %q (allowed: %q, %q)",
			c.ModelMode,
			ModelModeMock,
			ModelModeProvider,
		)
	}

	if c.MaxTurnRounds <= 0 {
		return errors.New("validate config: DEALDRAFT_MAX_TURN_ROUNDS must be > 0")
	}
	if c.EventHistoryLimit <= 0 {
		return errors.New("validate config: DEALDRAFT_EVENT_HISTORY_LIMIT must be > 0")
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf(
			"validate config: unsupported DEALDRAFT_LOG_FORMAT %q (allowed: %q, %q)",
			c.LogFormat,
			LogFormatText,
			LogFormatJSON,
		)
	}

	switch c.LogLevel {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
	default:
		return fmt.Errorf(
			"validate config: unsupported DEALDRAFT_LOG_LEVEL %q",
			c.LogLevel.String(),
		)
	}

	return nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("parse %s: value must be > 0", name)
	}
	return parsed, nil
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"parse log level: unsupported value %q (allowed: %q, %q, %q, %q)",
			input,
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse log format: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}
