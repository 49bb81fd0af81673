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

import (
	"fmt"
	"net/url"
)

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - ID, Title, Snippet and Source must not be empty
//   - URL must be an absolute http(s) URL
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}
	if article.ID == "" {
		return fmt.Errorf("%w: id: %w", ErrInvalidArticle, ErrEmptyContent)
	}
	if article.Title == "" {
		return fmt.Errorf("%w: title: %w", ErrInvalidArticle, ErrEmptyContent)
	}
	if article.Snippet == "" {
		return fmt.Errorf("%w: snippet: %w", ErrInvalidArticle, ErrEmptyContent)
	}
	if article.Source == "" {
		return fmt.Errorf("%w: source: %w", ErrInvalidArticle, ErrEmptyContent)
	}
	u, err := url.Parse(article.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an absolute http(s) url", ErrInvalidArticle, article.URL)
	}
	return nil
}

// ValidateJob validates a Job before it enters the queue.
// The job id must match the article id it carries.
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if job.ID == "" {
		return fmt.Errorf("%w: id: %w", ErrInvalidJob, ErrEmptyContent)
	}
	if job.ID != job.Article.ID {
		return fmt.Errorf("%w: id %q does not match article id %q", ErrInvalidJob, job.ID, job.Article.ID)
	}
	if err := ValidateArticle(&job.Article); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	return nil
}

// ValidateTurn validates a conversation turn.
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidTurn, ErrInvalidRole, turn.Role)
	}
	if turn.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}
	return nil
}
