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


// Package ai provides abstractions for AI services used in newsdesk.
//
// This package defines interfaces for the two model-backed operations the
// system depends on: text embeddings for indexing and retrieval, and
// streaming chat completion for answering questions. Business logic depends
// on these abstractions rather than on concrete providers.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Streams an answer for a prompt as ordered text deltas
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embeddings and chat (Gemini, Ollama, vLLM, OpenAI)
//   - ai/jina: Jina embeddings
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, jina.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, mock.NewMockChatModel) return CONCRETE types so tests
// can script behavior and inspect recorded calls.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	model := mock.NewMockChatModel("Hello", " world")  // returns *mock.MockChatModel
//	prompts := model.Prompts()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithChatAPIKey(os.Getenv("GEMINI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	err = provider.ChatModel().StreamChat(ctx, messages, func(ctx context.Context, delta string) error {
//	    fmt.Print(delta)
//	    return nil
//	})
package ai
