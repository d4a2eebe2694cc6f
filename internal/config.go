package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Embedder EmbedderConfig    `yaml:"embedder"`
	Graph    GraphConfig       `yaml:"graph"`
	Retry    RetryConfig       `yaml:"retry"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Embedder.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
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

// StoreConfig holds the remote document-store connection.
//
// Mode controls the backing implementation:
//   - "http" (default): remote versioned blob store at BaseURL.
//   - "memory": in-process store, suitable for local experimentation only.
type StoreConfig struct {
	Mode      string        `yaml:"mode"`
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	TimeoutMS time.Duration `yaml:"timeout_ms"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = "http"
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In("http", "memory")),
	); err != nil {
		return err
	}
	if c.Mode == "http" && c.BaseURL == "" {
		return fmt.Errorf("store: mode is %q but base_url is empty", c.Mode)
	}
	return nil
}

// Timeout returns the request timeout.
func (c *StoreConfig) Timeout() time.Duration {
	return c.TimeoutMS * time.Millisecond
}

// EmbedderConfig holds the embedding-provider connection.
type EmbedderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	TimeoutMS time.Duration `yaml:"timeout_ms"`
}

// Validate validates the embedder configuration.
func (c *EmbedderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
	)
}

// Timeout returns the request timeout.
func (c *EmbedderConfig) Timeout() time.Duration {
	return c.TimeoutMS * time.Millisecond
}

// GraphConfig holds every graph-analysis threshold. All thresholds are
// explicit so tests can inject them; nothing reads the environment.
type GraphConfig struct {
	SimilarityThreshold   float64 `yaml:"similarity_threshold"`
	OutlierThreshold      float64 `yaml:"outlier_threshold"`
	DecayScoreThreshold   float64 `yaml:"decay_score_threshold"`
	TensionThreshold      float64 `yaml:"tension_threshold"`
	CloseClusterThreshold float64 `yaml:"close_cluster_threshold"`
	ClusterKMin           int     `yaml:"cluster_k_min"`
	ClusterKMax           int     `yaml:"cluster_k_max"`
	ClusterMaxIterations  int     `yaml:"cluster_max_iterations"`
}

// Validate validates the graph thresholds.
func (c *GraphConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SimilarityThreshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&c.OutlierThreshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&c.DecayScoreThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TensionThreshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&c.CloseClusterThreshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&c.ClusterKMin, validation.Required, validation.Min(1)),
		validation.Field(&c.ClusterKMax, validation.Required, validation.Min(1)),
		validation.Field(&c.ClusterMaxIterations, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.ClusterKMin > c.ClusterKMax {
		return fmt.Errorf("graph: cluster_k_min %d exceeds cluster_k_max %d", c.ClusterKMin, c.ClusterKMax)
	}
	return nil
}

// RetryConfig bounds the optimistic-concurrency retry loop.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BackoffMinMS time.Duration `yaml:"backoff_min_ms"`
	BackoffMaxMS time.Duration `yaml:"backoff_max_ms"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(20)),
	)
}

// AuthConfig holds API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Mode:      "http",
			BaseURL:   "http://localhost:9200/blobs",
			TimeoutMS: 30_000,
		},
		Embedder: EmbedderConfig{
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			TimeoutMS: 60_000,
		},
		Graph: GraphConfig{
			SimilarityThreshold:   0.82,
			OutlierThreshold:      0.7,
			DecayScoreThreshold:   0.3,
			TensionThreshold:      0.35,
			CloseClusterThreshold: 0.85,
			ClusterKMin:           2,
			ClusterKMax:           12,
			ClusterMaxIterations:  50,
		},
		Retry: RetryConfig{
			MaxAttempts:  5,
			BackoffMinMS: 50,
			BackoffMaxMS: 150,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
