package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB
// using a brute-force scan over all stored vectors.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// AddChunks stores chunks with their embeddings in a single transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*storage.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		for _, sc := range chunks {
			if err := tx.Set(makeChunkKey(sc.Chunk.Key()), storage.MarshalStoredChunk(sc)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindSimilar finds chunks similar to the given vector.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var sc *storage.StoredChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				sc, err = storage.UnmarshalStoredChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(sc.Vector) == 0 {
				continue
			}

			// Cosine similarity (dot product for normalized vectors)
			results = append(results, &core.SearchResult{
				Chunk: sc.Chunk,
				Score: dotProduct(vector, sc.Vector),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending; stable so ties keep store order
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
