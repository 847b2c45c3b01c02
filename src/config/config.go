// Package config provides configuration management for the insight agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"insight-agent/src/insight"
)

// Config holds the application configuration. It is built once at startup and
// passed to every component that needs a credential or a tunable.
type Config struct {
	// Discord ingestion.
	DiscordBotToken   string
	DiscordChannelIDs []string
	DiscordSinceDays  int

	// Generative model.
	AnthropicAPIKey string
	AnthropicModel  string
	SuggestionModel string

	// Embeddings (OpenAI-compatible).
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	// Knowledge base.
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string

	// Ticketing.
	LinearAPIKey    string
	LinearProjectID string
	LinearTeamID    string

	// Persistence. PostgresDSN wins over SQLitePath when both are set.
	PostgresDSN string
	SQLitePath  string

	// Agentic mode is enabled when brokers are configured.
	RedpandaBrokers []string

	WebhookAddr string
	Debug       bool

	// Engine tunables.
	Engine insight.Config
}

const envConfigFile = "INSIGHT_CONFIG"

// defaults mirrors insight.DefaultConfig plus the collaborator settings.
func setDefaults(v *viper.Viper) {
	engine := insight.DefaultConfig()

	v.SetDefault("discord_since_days", 7)
	v.SetDefault("anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("embedding_base_url", "https://api.openai.com")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_port", 6334)
	v.SetDefault("qdrant_collection", "docs")
	v.SetDefault("sqlite_path", ".insight/insights.db")
	v.SetDefault("webhook_addr", ":8080")
	v.SetDefault("log_debug", false)

	v.SetDefault("insight_eps", engine.Eps)
	v.SetDefault("insight_min_samples", engine.MinSamples)
	v.SetDefault("insight_min_quotes", engine.MinQuotes)
	v.SetDefault("insight_escalate_quotes", engine.EscalateQuotes)
	v.SetDefault("insight_friction_keywords", strings.Join(engine.FrictionKeywords, ","))
	v.SetDefault("insight_max_batch_conversations", engine.MaxBatchConversations)
	v.SetDefault("insight_prompt_token_budget", engine.PromptTokenBudget)
	v.SetDefault("insight_generate_timeout_secs", int(engine.GenerateTimeout/time.Second))
	v.SetDefault("insight_embed_timeout_secs", int(engine.EmbedTimeout/time.Second))
}

// Load reads configuration from the environment and, when path is non-empty,
// from a YAML file whose keys are the lower-cased environment variable names.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		DiscordBotToken:   v.GetString("discord_bot_token"),
		DiscordChannelIDs: getList(v, "discord_channel_ids"),
		DiscordSinceDays:  v.GetInt("discord_since_days"),

		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		AnthropicModel:  v.GetString("anthropic_model"),
		SuggestionModel: v.GetString("suggestion_model"),

		EmbeddingBaseURL: v.GetString("embedding_base_url"),
		EmbeddingAPIKey:  v.GetString("embedding_api_key"),
		EmbeddingModel:   v.GetString("embedding_model"),

		QdrantHost:       v.GetString("qdrant_host"),
		QdrantPort:       v.GetInt("qdrant_port"),
		QdrantAPIKey:     v.GetString("qdrant_api_key"),
		QdrantUseTLS:     v.GetBool("qdrant_use_tls"),
		QdrantCollection: v.GetString("qdrant_collection"),

		LinearAPIKey:    v.GetString("linear_api_key"),
		LinearProjectID: v.GetString("linear_project_id"),
		LinearTeamID:    v.GetString("linear_team_id"),

		PostgresDSN: v.GetString("postgres_dsn"),
		SQLitePath:  v.GetString("sqlite_path"),

		RedpandaBrokers: getList(v, "redpanda_brokers"),
		WebhookAddr:     v.GetString("webhook_addr"),
		Debug:           v.GetBool("log_debug"),
	}

	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = v.GetString("openai_api_key")
	}
	if cfg.SuggestionModel == "" {
		cfg.SuggestionModel = cfg.AnthropicModel
	}

	cfg.Engine = insight.Config{
		Eps:                   v.GetFloat64("insight_eps"),
		MinSamples:            v.GetInt("insight_min_samples"),
		MinQuotes:             v.GetInt("insight_min_quotes"),
		EscalateQuotes:        v.GetInt("insight_escalate_quotes"),
		FrictionKeywords:      getList(v, "insight_friction_keywords"),
		MaxBatchConversations: v.GetInt("insight_max_batch_conversations"),
		PromptTokenBudget:     v.GetInt("insight_prompt_token_budget"),
		GenerateTimeout:       time.Duration(v.GetInt("insight_generate_timeout_secs")) * time.Second,
		EmbedTimeout:          time.Duration(v.GetInt("insight_embed_timeout_secs")) * time.Second,
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables, plus the file
// named by INSIGHT_CONFIG when set.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(envConfigFile))
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ValidateIngest checks what Discord ingestion needs.
func (c *Config) ValidateIngest() error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN environment variable is required")
	}
	if c.DiscordSinceDays <= 0 {
		return fmt.Errorf("DISCORD_SINCE_DAYS must be positive (got %d)", c.DiscordSinceDays)
	}
	return nil
}

// ValidateEngine checks what the extraction engine needs.
func (c *Config) ValidateEngine() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}
	if c.EmbeddingAPIKey == "" && c.EmbeddingBaseURL == "https://api.openai.com" {
		return fmt.Errorf("EMBEDDING_API_KEY (or OPENAI_API_KEY) environment variable is required")
	}
	return nil
}

// ValidateEscalation checks what filing tickets needs.
func (c *Config) ValidateEscalation() error {
	if c.LinearAPIKey == "" {
		return fmt.Errorf("LINEAR_API_KEY environment variable is required")
	}
	if c.LinearTeamID == "" {
		return fmt.Errorf("LINEAR_TEAM_ID environment variable is required")
	}
	if c.LinearProjectID == "" {
		return fmt.Errorf("LINEAR_PROJECT_ID environment variable is required")
	}
	return nil
}

// Agentic reports whether a broker is configured.
func (c *Config) Agentic() bool {
	return len(c.RedpandaBrokers) > 0
}

// Secret is one credential as reported by SecretsReport.
type Secret struct {
	Name    string
	Present bool
	Masked  string
}

// SecretsReport lists every credential, masked to its first 8 characters.
func (c *Config) SecretsReport() []Secret {
	entries := []struct {
		name  string
		value string
	}{
		{"DISCORD_BOT_TOKEN", c.DiscordBotToken},
		{"ANTHROPIC_API_KEY", c.AnthropicAPIKey},
		{"EMBEDDING_API_KEY", c.EmbeddingAPIKey},
		{"QDRANT_API_KEY", c.QdrantAPIKey},
		{"LINEAR_API_KEY", c.LinearAPIKey},
		{"LINEAR_PROJECT_ID", c.LinearProjectID},
		{"LINEAR_TEAM_ID", c.LinearTeamID},
		{"POSTGRES_DSN", c.PostgresDSN},
	}

	report := make([]Secret, len(entries))
	for i, e := range entries {
		report[i] = Secret{Name: e.name, Present: e.value != "", Masked: Mask(e.value)}
	}
	return report
}

// Mask keeps the first 8 characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:8] + "..."
}

// getList reads a list key given either as a comma-separated string (env
// vars) or as a YAML/JSON list in the config file.
func getList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return splitList(strings.Join(v.GetStringSlice(key), ","))
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
