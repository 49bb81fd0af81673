// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"net/url"
	"strings"
)

// Embedding providers understood by Config.EmbeddingProvider.
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderJina   = "jina"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingProvider selects the embedding backend: "jina" or "openai".
	// Default: "jina"
	EmbeddingProvider string

	// EmbeddingHost is the base URL for an OpenAI-compatible embedding API.
	// Ignored by the jina provider.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "jina-embeddings-v2-base-en", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingAPIKey authenticates against the embedding service.
	// An empty key is allowed; requests then fail at call time.
	EmbeddingAPIKey string

	// ChatHost is the base URL for the OpenAI-compatible chat completion API.
	// Example: "https://generativelanguage.googleapis.com/v1beta/openai"
	ChatHost string

	// ChatModel is the model identifier used to answer questions.
	// Example: "gemini-1.5-flash", "gpt-4o-mini"
	ChatModel string

	// ChatAPIKey authenticates against the chat service.
	// An empty key is allowed; requests then fail at call time.
	ChatAPIKey string

	// MaxOutputTokens caps the length of a generated answer.
	// Default: 2048
	MaxOutputTokens int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingProvider sets the embedding backend.
func WithEmbeddingProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingProvider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingAPIKey sets the embedding service credential.
func WithEmbeddingAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithChatAPIKey sets the chat service credential.
func WithChatAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.ChatAPIKey = key
	}
}

// WithMaxOutputTokens sets the answer length limit.
func WithMaxOutputTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxOutputTokens = n
	}
}

// DefaultConfig returns a Config using Jina embeddings and Gemini through
// its OpenAI-compatible endpoint.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingProvider: EmbeddingProviderJina,
		EmbeddingModel:    "jina-embeddings-v2-base-en",
		ChatHost:          "https://generativelanguage.googleapis.com/v1beta/openai",
		ChatModel:         "gemini-1.5-flash",
		MaxOutputTokens:   2048,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//   cfg := NewConfig(
//       WithEmbeddingProvider("openai"),
//       WithEmbeddingHost("http://localhost:11434"),
//       WithEmbeddingModel("nomic-embed-text"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Provider names are lowercased. Hosts given without a path get the /v1
// suffix required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
// Hosts that already carry a path are kept as they are.
func (c *Config) Normalize() {
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		return host
	}
	u, err := url.Parse(host)
	if err != nil || u.Path != "" {
		return host
	}
	return host + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// Credentials are not checked here.
func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	switch c.EmbeddingProvider {
	case EmbeddingProviderJina:
	case EmbeddingProviderOpenAI:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required for the openai embedding provider")
		}
	default:
		return errors.New("ai config: EmbeddingProvider must be \"jina\" or \"openai\"")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("ai config: MaxOutputTokens must be positive")
	}
	return nil
}
