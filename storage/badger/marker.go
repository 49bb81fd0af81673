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


package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/storage"
)

var markerValue = []byte("true")

// MarkerRepository implements storage.MarkerRepository for BadgerDB.
type MarkerRepository struct {
	backend *Backend
}

var _ storage.MarkerRepository = (*MarkerRepository)(nil)

// NewMarkerRepository creates a new MarkerRepository.
func NewMarkerRepository(backend *Backend) *MarkerRepository {
	return &MarkerRepository{
		backend: backend,
	}
}

// IsProcessed reports whether a marker exists for the article.
func (r *MarkerRepository) IsProcessed(ctx context.Context, source, articleID string) (bool, error) {
	var found bool
	err := r.backend.View(func(tx *badger.Txn) error {
		_, err := tx.Get(makeMarkerKey(source, articleID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// MarkProcessed writes the marker for the article if it is not set yet.
func (r *MarkerRepository) MarkProcessed(ctx context.Context, source, articleID string) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		key := makeMarkerKey(source, articleID)
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(key, markerValue)
	})
}
