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


// Package storage provides the storage abstraction layer for newsdesk.
//
// This package defines repository interfaces that decouple the ingestion
// pipeline and the chat service from the storage implementation:
//
//   - MarkerRepository: processed markers written after an article is indexed
//   - JobRepository: the durable state behind the job queue
//   - SessionRepository: append-only chat histories with expiry
//   - ChunkRepository: a local vector index used when no external store is configured
//
// The storage/badger package implements all of them on a single BadgerDB
// instance. Values are encoded with MUS (see serialization.go).
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
