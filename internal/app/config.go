package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/oauth2"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/generation/anthropicclaude"
	"github.com/florianilch/claudine-gateway/internal/generation/gemini"
	"github.com/florianilch/claudine-gateway/internal/models"
	"github.com/florianilch/claudine-gateway/internal/tokensource"
)

// EnvPrefix prefixes every configuration environment variable. A double
// underscore separates nesting levels: CLAUDINE_SERVER__PORT sets server.port.
const EnvPrefix = "CLAUDINE_"

// Upstream providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// TokenStorageType selects where the upstream credential is kept.
type TokenStorageType string

const (
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Config is the complete process configuration.
type Config struct {
	LogLevel  string          `koanf:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFormat string          `koanf:"log_format" validate:"oneof=text json"`
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Auth      AuthConfig      `koanf:"auth"`
	Models    ModelsConfig    `koanf:"models"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig configures the HTTP listener. WriteTimeout bounds whole
// responses, streams included; zero disables it.
type ServerConfig struct {
	Host              string        `koanf:"host" validate:"required"`
	Port              int           `koanf:"port" validate:"gte=0,lte=65535"`
	MaxRequestBytes   int64         `koanf:"max_request_bytes" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpstreamConfig selects and configures the generation engine.
type UpstreamConfig struct {
	Provider  string          `koanf:"provider" validate:"oneof=gemini anthropic"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
}

// GeminiConfig configures the gemini provider.
type GeminiConfig struct {
	Backend  string `koanf:"backend" validate:"oneof=gemini_api vertex_ai"`
	Project  string `koanf:"project" validate:"required_if=Backend vertex_ai"`
	Location string `koanf:"location" validate:"required_if=Backend vertex_ai"`
	BaseURL  string `koanf:"base_url" validate:"omitempty,url"`
}

// AnthropicConfig configures the anthropic provider.
type AnthropicConfig struct {
	BaseURL    string `koanf:"base_url" validate:"omitempty,url"`
	AuthScheme string `koanf:"auth_scheme" validate:"oneof=api_key bearer"`
}

// AuthConfig configures the upstream credential store.
type AuthConfig struct {
	Storage        TokenStorageType `koanf:"storage" validate:"oneof=env file keyring"`
	EnvVar         string           `koanf:"env_var" validate:"required_if=Storage env"`
	FilePath       string           `koanf:"file_path" validate:"required_if=Storage file"`
	KeyringService string           `koanf:"keyring_service" validate:"required_if=Storage keyring"`
	KeyringUser    string           `koanf:"keyring_user" validate:"required_if=Storage keyring"`
}

// ModelsConfig configures the model catalog. Without entries the built-in
// table for the upstream provider is used.
type ModelsConfig struct {
	Default string       `koanf:"default"`
	Entries []ModelEntry `koanf:"entries" validate:"dive"`
}

// ModelEntry is one configured catalog entry.
type ModelEntry struct {
	ID            string `koanf:"id" validate:"required"`
	BackendID     string `koanf:"backend_id"`
	DisplayName   string `koanf:"display_name"`
	ContextWindow int    `koanf:"context_window" validate:"gte=0"`
	OwnedBy       string `koanf:"owned_by"`
	Created       int64  `koanf:"created"`
}

// TelemetryConfig configures the OpenTelemetry log pipeline.
type TelemetryConfig struct {
	LogsExporter string `koanf:"logs_exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
	MinSeverity  string `koanf:"min_severity" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() map[string]any {
	credentialPath := "claudine/credential"
	if dir, err := os.UserConfigDir(); err == nil {
		credentialPath = filepath.Join(dir, "claudine", "credential")
	}

	return map[string]any{
		"log_level":                      "info",
		"log_format":                     "text",
		"server.host":                    "127.0.0.1",
		"server.port":                    4000,
		"server.max_request_bytes":       32 << 20,
		"server.read_header_timeout":     "10s",
		"server.write_timeout":           "0s",
		"server.shutdown_timeout":        "5s",
		"upstream.provider":              ProviderGemini,
		"upstream.gemini.backend":        string(gemini.BackendGeminiAPI),
		"upstream.anthropic.auth_scheme": string(anthropicclaude.AuthSchemeAPIKey),
		"auth.storage":                   string(TokenStorageTypeKeyring),
		"auth.env_var":                   "UPSTREAM_API_KEY",
		"auth.file_path":                 credentialPath,
		"auth.keyring_service":           "claudine",
		"auth.keyring_user":              "upstream",
		"telemetry.logs_exporter":        "none",
		"telemetry.min_severity":         "info",
	}
}

// LoadConfig layers defaults, the optional TOML file at path, environment
// variables with EnvPrefix and overrides (explicitly set CLI flags), each
// taking precedence over the previous, and validates the result.
func LoadConfig(path string, overrides map[string]any, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CLAUDINE_SERVER__PORT to server.port.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
		return name
	})
}

// Validate checks the configuration and reports every invalid key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	errs := make([]error, 0, len(validationErrs))
	for _, fe := range validationErrs {
		// Namespace is "Config.server.port"; drop the root type.
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		errs = append(errs, fmt.Errorf("invalid config %s: %q fails %q", key, fmt.Sprint(fe.Value()), fe.ActualTag()))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewTokenStore creates the configured credential store.
func (c AuthConfig) NewTokenStore() (tokensource.Store, error) {
	switch c.Storage {
	case TokenStorageTypeEnv:
		return tokensource.NewEnvStore(c.EnvVar), nil
	case TokenStorageTypeFile:
		return tokensource.NewFileStore(c.FilePath), nil
	case TokenStorageTypeKeyring:
		return tokensource.NewKeyringStore(c.KeyringService, c.KeyringUser), nil
	default:
		return nil, fmt.Errorf("unsupported token storage %q", c.Storage)
	}
}

// NewSource creates the configured generation engine. ts supplies the
// upstream credential where the provider needs one.
func (c UpstreamConfig) NewSource(ctx context.Context, ts oauth2.TokenSource, base http.RoundTripper) (generation.Source, error) {
	switch c.Provider {
	case ProviderGemini:
		cfg := gemini.Config{
			Backend:  gemini.Backend(c.Gemini.Backend),
			Project:  c.Gemini.Project,
			Location: c.Gemini.Location,
			BaseURL:  c.Gemini.BaseURL,
		}
		if cfg.Backend == gemini.BackendGeminiAPI {
			cfg.APIKey = ts
		}
		if base != nil {
			cfg.HTTPClient = &http.Client{Transport: base}
		}
		src, err := gemini.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil

	case ProviderAnthropic:
		transport, err := anthropicclaude.NewAuthTransport(anthropicclaude.AuthScheme(c.Anthropic.AuthScheme), ts, base)
		if err != nil {
			return nil, err
		}
		var opts []anthropicclaude.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicclaude.WithBaseURL(c.Anthropic.BaseURL))
		}
		src, err := anthropicclaude.New(transport, opts...)
		if err != nil {
			return nil, err
		}
		return src, nil

	default:
		return nil, fmt.Errorf("unsupported upstream provider %q", c.Provider)
	}
}

// NewCatalog builds the model catalog for the given provider.
func (c ModelsConfig) NewCatalog(provider string) (*models.Catalog, error) {
	if len(c.Entries) == 0 {
		defaultID := c.Default
		if defaultID == "" {
			defaultID = models.DefaultID
		}
		return models.NewCatalog(models.Defaults(provider), defaultID)
	}

	entries := make([]models.Model, 0, len(c.Entries))
	for _, e := range c.Entries {
		entries = append(entries, models.Model{
			ID:            e.ID,
			BackendID:     e.BackendID,
			DisplayName:   e.DisplayName,
			ContextWindow: e.ContextWindow,
			OwnedBy:       e.OwnedBy,
			Created:       e.Created,
		})
	}

	defaultID := c.Default
	if defaultID == "" {
		defaultID = entries[0].ID
	}
	return models.NewCatalog(entries, defaultID)
}
