package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/govright/platform-services/internal/facebook"
	"github.com/govright/platform-services/internal/nodetree"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Documents DocumentsConfig   `yaml:"documents"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Locale    LocaleConfig      `yaml:"locale"`
	Tree      nodetree.Settings `yaml:"tree"`
	Corpus    CorpusConfig      `yaml:"corpus"`
	Facebook  FacebookConfig    `yaml:"facebook"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.App, &c.Documents, &c.SQLite, &c.Auth, &c.Locale, &c.Corpus, &c.Facebook,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return validation.ValidateStruct(&c.Tree,
		validation.Field(&c.Tree.MaxTitleLength, validation.Min(0)),
	)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" env:"APP_LOG_LEVEL"`
	LogFormat string     `yaml:"log_format" env:"APP_LOG_FORMAT"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"APP_HTTP_PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DocumentsConfig holds the path to the document packages directory.
type DocumentsConfig struct {
	Path string `yaml:"path" env:"DOCUMENTS_PATH"`
}

// Validate validates the documents configuration.
func (c *DocumentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"AUTH_MODE"`
	Token string `yaml:"token" env:"AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// LocaleConfig selects the translation catalog and the locales.
type LocaleConfig struct {
	CatalogPath string   `yaml:"catalog_path" env:"LOCALE_CATALOG_PATH"`
	Default     string   `yaml:"default" env:"LOCALE_DEFAULT"`
	Current     string   `yaml:"current" env:"LOCALE_CURRENT"`
	Available   []string `yaml:"available" env:"LOCALE_AVAILABLE" envSeparator:","`
}

// Validate validates the locale configuration.
func (c *LocaleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Default, validation.Required),
	)
}

// CorpusConfig points at the corpus REST API.
type CorpusConfig struct {
	BaseURL string `yaml:"base_url" env:"CORPUS_BASE_URL"`
	AuthURL string `yaml:"auth_url" env:"CORPUS_AUTH_URL"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
	)
}

// FacebookConfig selects the Graph API endpoint.
type FacebookConfig struct {
	GraphURL string `yaml:"graph_url" env:"FACEBOOK_GRAPH_URL"`
	Version  string `yaml:"version" env:"FACEBOOK_VERSION"`
}

// Validate validates the Facebook configuration.
func (c *FacebookConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GraphURL, validation.Required),
		validation.Field(&c.Version, validation.Required),
	)
}

// EmbeddingConfig optionally names the host page whose application root
// carries the embedding parameters.
type EmbeddingConfig struct {
	Page string `yaml:"page" env:"EMBEDDING_PAGE"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Documents: DocumentsConfig{
			Path: "./documents",
		},
		SQLite: SQLiteConfig{
			Path: "./grservices.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Locale: LocaleConfig{
			CatalogPath: "./locales",
			Default:     "en",
			Current:     "en",
		},
		Tree: nodetree.DefaultSettings(),
		Corpus: CorpusConfig{
			BaseURL: "http://corpus.govright.org/api/",
		},
		Facebook: FacebookConfig{
			GraphURL: facebook.DefaultGraphURL,
			Version:  facebook.DefaultVersion,
		},
	}
}
