package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Each job has a primary record under job:<id>. Queued jobs additionally
// have one entry in the ready index, ordered by NotBefore and then by
// enqueue sequence, so claims are FIFO among jobs that are due.
type JobRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	seq, err := backend.GetSequence(jobSeq)
	if err != nil {
		return nil, err
	}
	return &JobRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the ready-index sequence.
func (r *JobRepository) Close() error {
	return r.seq.Release()
}

// Enqueue stores a new queued job unless a record with its ID exists.
func (r *JobRepository) Enqueue(ctx context.Context, job *core.Job) (bool, error) {
	var added bool
	err := r.backend.Update(func(tx *badger.Txn) error {
		added = false
		key := makeJobKey(job.ID)
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		record := *job
		record.State = core.JobStateQueued
		record.Attempts = 0
		record.LastError = ""
		record.EnqueuedAt = now
		record.UpdatedAt = now
		if record.NotBefore.IsZero() {
			record.NotBefore = now
		}

		if err := r.putReady(tx, &record); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

// Claim moves the earliest due job to the active state.
func (r *JobRepository) Claim(ctx context.Context, now time.Time) (*core.Job, error) {
	var claimed *core.Job
	err := r.backend.Update(func(tx *badger.Txn) error {
		claimed = nil
		var stale [][]byte
		var readyKey []byte
		var record *core.Job

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobReadyPrefix)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			notBefore, ok := parseJobReadyTime(item.Key())
			if !ok {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			if notBefore.After(now) {
				break
			}

			id, err := item.ValueCopy(nil)
			if err != nil {
				iter.Close()
				return err
			}
			job, err := r.readJob(tx, string(id))
			if err != nil {
				iter.Close()
				return err
			}
			// Index entries that outlived their record or state are dropped.
			if job == nil || job.State != core.JobStateQueued {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			readyKey = item.KeyCopy(nil)
			record = job
			break
		}
		iter.Close()

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if record == nil {
			return nil
		}

		if err := tx.Delete(readyKey); err != nil {
			return err
		}
		record.State = core.JobStateActive
		record.Attempts++
		record.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeJobKey(record.ID), storage.MarshalJob(record)); err != nil {
			return err
		}
		claimed = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// NextReadyAt returns the NotBefore time at the head of the ready index.
func (r *JobRepository) NextReadyAt(ctx context.Context) (time.Time, bool, error) {
	var next time.Time
	var found bool
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobReadyPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if t, ok := parseJobReadyTime(iter.Item().Key()); ok {
				next, found = t, true
				return nil
			}
		}
		return nil
	})
	return next, found, err
}

// Complete marks an active job completed.
func (r *JobRepository) Complete(ctx context.Context, id string, retention time.Duration) error {
	return r.transition(id, func(job *core.Job) {
		job.State = core.JobStateCompleted
		job.LastError = ""
	}, retention)
}

// Retry requeues an active job after a failed attempt.
func (r *JobRepository) Retry(ctx context.Context, id string, reason string, retryAt time.Time) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		job, err := r.readActive(tx, id)
		if err != nil {
			return err
		}
		job.State = core.JobStateQueued
		job.LastError = reason
		job.NotBefore = retryAt.UTC()
		job.UpdatedAt = time.Now().UTC()
		return r.putReady(tx, job)
	})
}

// Bury moves an active job to the dead state.
func (r *JobRepository) Bury(ctx context.Context, id string, reason string, retention time.Duration) error {
	return r.transition(id, func(job *core.Job) {
		job.State = core.JobStateDead
		job.LastError = reason
	}, retention)
}

// RequeueActive moves every active job back to queued.
func (r *JobRepository) RequeueActive(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.backend.Update(func(tx *badger.Txn) error {
		count = 0
		var active []*core.Job

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.Job
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}
			if job.State == core.JobStateActive {
				active = append(active, job)
			}
		}
		iter.Close()

		for _, job := range active {
			job.State = core.JobStateQueued
			job.NotBefore = now.UTC()
			job.UpdatedAt = now.UTC()
			if err := r.putReady(tx, job); err != nil {
				return err
			}
		}
		count = len(active)
		return nil
	})
	return count, err
}

// GetJob retrieves a job record by ID.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.Job, error) {
	var job *core.Job
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		job, err = r.readJob(tx, id)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return job, err
}

// Counts returns the number of jobs per state.
func (r *JobRepository) Counts(ctx context.Context) (storage.JobCounts, error) {
	var counts storage.JobCounts
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.Job
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			})
			if err != nil {
				return err
			}
			switch job.State {
			case core.JobStateQueued:
				counts.Queued++
			case core.JobStateActive:
				counts.Active++
			case core.JobStateCompleted:
				counts.Completed++
			case core.JobStateDead:
				counts.Dead++
			}
		}
		return nil
	})
	return counts, err
}

// transition applies a terminal state change to an active job and sets the record's TTL.
func (r *JobRepository) transition(id string, apply func(job *core.Job), retention time.Duration) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		job, err := r.readActive(tx, id)
		if err != nil {
			return err
		}
		apply(job)
		job.UpdatedAt = time.Now().UTC()
		entry := badger.NewEntry(makeJobKey(id), storage.MarshalJob(job))
		if retention > 0 {
			entry = entry.WithTTL(retention)
		}
		return tx.SetEntry(entry)
	})
}

// putReady stores a queued job record and its ready index entry.
func (r *JobRepository) putReady(tx *badger.Txn, job *core.Job) error {
	seq, err := r.seq.Next()
	if err != nil {
		return err
	}
	if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
		return err
	}
	return tx.Set(makeJobReadyKey(job.NotBefore, seq), []byte(job.ID))
}

// readActive reads a job record and checks that it is active.
func (r *JobRepository) readActive(tx *badger.Txn, id string) (*core.Job, error) {
	job, err := r.readJob(tx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, storage.ErrNotFound
	}
	if job.State != core.JobStateActive {
		return nil, fmt.Errorf("%w: job %s is %s", storage.ErrInvalidState, id, job.State)
	}
	return job, nil
}

// readJob reads a job record from the database.
// Returns nil, nil if the record doesn't exist.
func (r *JobRepository) readJob(tx *badger.Txn, id string) (*core.Job, error) {
	item, err := tx.Get(makeJobKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var job *core.Job
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalJob(val)
		return err
	})
	return job, err
}
