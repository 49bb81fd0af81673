package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, EmbeddingProviderJina, cfg.EmbeddingProvider)
	assert.Equal(t, "jina-embeddings-v2-base-en", cfg.EmbeddingModel)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/openai", cfg.ChatHost)
	assert.Equal(t, "gemini-1.5-flash", cfg.ChatModel)
	assert.Equal(t, 2048, cfg.MaxOutputTokens)
	assert.Empty(t, cfg.ChatAPIKey)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, EmbeddingProviderJina, cfg.EmbeddingProvider)
		assert.Equal(t, 2048, cfg.MaxOutputTokens)
	})

	t.Run("with openai embeddings", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingProvider("openai"),
			WithEmbeddingHost("http://embed:8080/v1"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithEmbeddingAPIKey("ek"),
		)

		assert.Equal(t, "openai", cfg.EmbeddingProvider)
		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "ek", cfg.EmbeddingAPIKey)
	})

	t.Run("with custom chat model", func(t *testing.T) {
		cfg := NewConfig(
			WithChatHost("http://chat:9090/v1"),
			WithChatModel("gpt-4o-mini"),
			WithChatAPIKey("ck"),
			WithMaxOutputTokens(512),
		)

		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
		assert.Equal(t, "ck", cfg.ChatAPIKey)
		assert.Equal(t, 512, cfg.MaxOutputTokens)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{name: "already has /v1", host: "http://localhost:11434/v1", expected: "http://localhost:11434/v1"},
		{name: "missing /v1", host: "http://localhost:11434", expected: "http://localhost:11434/v1"},
		{name: "has trailing slash", host: "http://localhost:11434/", expected: "http://localhost:11434/v1"},
		{name: "has trailing slash and v1", host: "http://localhost:11434/v1/", expected: "http://localhost:11434/v1"},
		{name: "custom path kept", host: "https://generativelanguage.googleapis.com/v1beta/openai/", expected: "https://generativelanguage.googleapis.com/v1beta/openai"},
		{name: "empty host", host: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.host,
				ChatHost:      tt.host,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.ChatHost)
		})
	}

	t.Run("provider is lowercased", func(t *testing.T) {
		cfg := &Config{EmbeddingProvider: " Jina "}
		cfg.Normalize()
		assert.Equal(t, "jina", cfg.EmbeddingProvider)
	})
}

func validConfig() *Config {
	return &Config{
		EmbeddingProvider: "openai",
		EmbeddingHost:     "http://localhost:11434",
		EmbeddingModel:    "nomic-embed-text",
		ChatHost:          "http://localhost:11434",
		ChatModel:         "qwen2.5:3b",
		MaxOutputTokens:   2048,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := validConfig()

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("missing credentials are allowed", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.EmbeddingProvider = "cohere" }, field: "EmbeddingProvider"},
		{name: "openai without host", mutate: func(c *Config) { c.EmbeddingHost = "" }, field: "EmbeddingHost"},
		{name: "missing embedding model", mutate: func(c *Config) { c.EmbeddingModel = "" }, field: "EmbeddingModel"},
		{name: "missing chat host", mutate: func(c *Config) { c.ChatHost = "" }, field: "ChatHost"},
		{name: "missing chat model", mutate: func(c *Config) { c.ChatModel = "" }, field: "ChatModel"},
		{name: "zero max tokens", mutate: func(c *Config) { c.MaxOutputTokens = 0 }, field: "MaxOutputTokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("jina needs no host", func(t *testing.T) {
		cfg := validConfig()
		cfg.EmbeddingProvider = "jina"
		cfg.EmbeddingHost = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestMessageRoleString(t *testing.T) {
	assert.Equal(t, "system", MessageSystem.String())
	assert.Equal(t, "user", MessageUser.String())
	assert.Equal(t, "assistant", MessageAssistant.String())
	assert.Equal(t, "unknown", MessageRole(0).String())
}
