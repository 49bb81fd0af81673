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


package core

import "errors"

// Domain errors. Components wrap these with context so callers can
// classify failures with errors.Is.
var (
	// ErrInvalidSource indicates an unknown feed source name.
	ErrInvalidSource = errors.New("invalid source")

	// ErrFeedFetch indicates a network or parse failure on a feed.
	ErrFeedFetch = errors.New("feed fetch failed")

	// ErrExtraction indicates a rendering, chunking or index write failure inside a job.
	ErrExtraction = errors.New("extraction failed")

	// ErrGeneration indicates a retrieval or language model failure during a chat turn.
	ErrGeneration = errors.New("generation failed")

	// ErrStorageUnavailable indicates the backing store cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidTurn indicates a Turn failed validation.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")
)
