// Package config provides configuration structures and loading logic for the
// gateway.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// PDP operating modes.
const (
	PDPModeRemote   = "remote"
	PDPModeEmbedded = "embedded"
)

// Config holds the global configuration for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	PDP       PDPConfig       `yaml:"pdp"`
	Model     ModelConfig     `yaml:"model"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Users     UsersConfig     `yaml:"users"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PDPConfig holds configuration for the policy decision point.
type PDPConfig struct {
	Mode     string        `yaml:"mode"`
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	// PolicyDir optionally overrides the built-in policy modules when the
	// embedded engine is used. Every .rego file in the directory is loaded.
	PolicyDir string `yaml:"policy_dir"`
}

// ModelConfig selects the language model backing the agent.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// KnowledgeConfig optionally replaces the seeded document set.
type KnowledgeConfig struct {
	Documents []DocumentConfig `yaml:"documents"`
}

// DocumentConfig is one knowledge-base document as declared in the file.
type DocumentConfig struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	Classification string `yaml:"classification"`
	Content        string `yaml:"content"`
}

// UsersConfig optionally replaces the seeded user directory served over HTTP.
type UsersConfig []UserConfig

// UserConfig is one directory entry as declared in the file.
type UserConfig struct {
	ID         string            `yaml:"id"`
	Role       string            `yaml:"role"`
	OptedIn    bool              `yaml:"ai_advice_opted_in"`
	Clearance  string            `yaml:"clearance_level"`
	Attributes map[string]string `yaml:"attributes"`
}

// Load reads configuration from a file and applies environment variable
// overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		PDP: PDPConfig{
			Mode:     PDPModeRemote,
			Endpoint: "http://localhost:7766",
			Timeout:  3 * time.Second,
		},
		Model: ModelConfig{
			Provider: "scripted",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("FINGATE_LISTEN_ADDR"); val != "" {
		cfg.Server.ListenAddress = val
	}

	if val := os.Getenv("FINGATE_PDP_MODE"); val != "" {
		cfg.PDP.Mode = val
	}
	if val := os.Getenv("FINGATE_PDP_URL"); val != "" {
		cfg.PDP.Endpoint = val
	}
	if val := os.Getenv("FINGATE_PDP_TOKEN"); val != "" {
		cfg.PDP.Token = val
	}
	if val := os.Getenv("FINGATE_POLICY_DIR"); val != "" {
		cfg.PDP.PolicyDir = val
	}

	if val := os.Getenv("FINGATE_MODEL"); val != "" {
		cfg.Model.Provider = val
	}
	if val := os.Getenv("FINGATE_MODEL_NAME"); val != "" {
		cfg.Model.Name = val
	}
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		cfg.Model.APIKey = val
	}

	if val := os.Getenv("FINGATE_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("FINGATE_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}

	if val := os.Getenv("FINGATE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("FINGATE_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}
}

// Validate performs comprehensive validation of the entire configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.PDP.Validate(); err != nil {
		return fmt.Errorf("pdp configuration: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	if err := c.Knowledge.Validate(); err != nil {
		return fmt.Errorf("knowledge configuration: %w", err)
	}
	if err := c.Users.Validate(); err != nil {
		return fmt.Errorf("users configuration: %w", err)
	}
	return nil
}

// Validate performs validation of server configuration.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// Validate performs validation of decision point configuration.
func (c *PDPConfig) Validate() error {
	mode := strings.TrimSpace(strings.ToLower(c.Mode))
	if mode == "" {
		mode = PDPModeRemote
	}
	switch mode {
	case PDPModeRemote, PDPModeEmbedded:
		c.Mode = mode
	default:
		return fmt.Errorf("invalid pdp mode %q, supported modes: %s, %s", c.Mode, PDPModeRemote, PDPModeEmbedded)
	}

	if c.Mode == PDPModeRemote && strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("remote pdp requires an endpoint")
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return nil
}

// Validate performs validation of model configuration.
func (c *ModelConfig) Validate() error {
	provider := strings.TrimSpace(strings.ToLower(c.Provider))
	if provider == "" {
		provider = "scripted"
	}
	switch provider {
	case "scripted", "anthropic":
		c.Provider = provider
		return nil
	default:
		return fmt.Errorf("invalid model provider %q, supported providers: scripted, anthropic", c.Provider)
	}
}

// Validate performs validation of logging configuration.
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// Validate checks declared knowledge documents.
func (c *KnowledgeConfig) Validate() error {
	seen := make(map[string]bool, len(c.Documents))
	for i, doc := range c.Documents {
		if strings.TrimSpace(doc.ID) == "" {
			return fmt.Errorf("document %d has no id", i)
		}
		if seen[doc.ID] {
			return fmt.Errorf("duplicate document id %q", doc.ID)
		}
		seen[doc.ID] = true

		switch domain.DocClassification(doc.Classification) {
		case domain.ClassificationPublic, domain.ClassificationConfidential:
		default:
			return fmt.Errorf("document %q has invalid classification %q", doc.ID, doc.Classification)
		}
	}
	return nil
}

// Validate checks declared directory users.
func (c UsersConfig) Validate() error {
	seen := make(map[string]bool, len(c))
	for i := range c {
		user := &c[i]
		if strings.TrimSpace(user.ID) == "" {
			return fmt.Errorf("user %d has no id", i)
		}
		if seen[user.ID] {
			return fmt.Errorf("duplicate user id %q", user.ID)
		}
		seen[user.ID] = true

		if user.Clearance == "" {
			user.Clearance = string(domain.ClearanceStandard)
		}
		switch domain.ClearanceLevel(user.Clearance) {
		case domain.ClearanceStandard, domain.ClearanceElevated:
		default:
			return fmt.Errorf("user %q has invalid clearance level %q", user.ID, user.Clearance)
		}
	}
	return nil
}

// DomainUsers converts declared directory users to the domain type.
func (c UsersConfig) DomainUsers() []domain.UserContext {
	if len(c) == 0 {
		return nil
	}
	users := make([]domain.UserContext, 0, len(c))
	for _, user := range c {
		users = append(users, domain.NewUserContext(user.ID, user.Role, user.OptedIn,
			domain.ClearanceLevel(user.Clearance), user.Attributes))
	}
	return users
}

// DomainDocuments converts declared knowledge documents to the domain type.
func (c *KnowledgeConfig) DomainDocuments() []domain.FinancialDocument {
	if len(c.Documents) == 0 {
		return nil
	}
	docs := make([]domain.FinancialDocument, 0, len(c.Documents))
	for _, doc := range c.Documents {
		docs = append(docs, domain.FinancialDocument{
			ID:             doc.ID,
			Type:           doc.Type,
			Classification: domain.DocClassification(doc.Classification),
			Content:        doc.Content,
		})
	}
	return docs
}
