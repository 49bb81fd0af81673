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
	"errors"
	"time"
)

// Stores bundles every repository backed by one BadgerDB instance.
type Stores struct {
	Backend  *Backend
	Markers  *MarkerRepository
	Jobs     *JobRepository
	Sessions *SessionRepository
	Chunks   *ChunkRepository
}

// OpenStores opens the database at path (or in memory) and creates all repositories.
func OpenStores(path string, inMemory bool, sessionTTL time.Duration) (*Stores, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	jobs, err := NewJobRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Stores{
		Backend:  backend,
		Markers:  NewMarkerRepository(backend),
		Jobs:     jobs,
		Sessions: NewSessionRepository(backend, sessionTTL),
		Chunks:   NewChunkRepository(backend),
	}, nil
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must Close the returned Stores when done.
func NewMemoryStores() (*Stores, error) {
	return OpenStores("", true, 0)
}

// Close releases the job sequence and closes the database.
func (s *Stores) Close() error {
	return errors.Join(s.Jobs.Close(), s.Backend.Close())
}
