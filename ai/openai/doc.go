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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// Gemini's compatibility endpoint, Ollama, LocalAI, or vLLM).
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithChatAPIKey(os.Getenv("GEMINI_API_KEY")),
//	)
//
//	embedder, err := jina.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := openai.NewProvider(config, openai.WithEmbedder(embedder))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	err = provider.ChatModel().StreamChat(ctx, messages, onDelta)
package openai
