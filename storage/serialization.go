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


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/newsdesk/core"
)

// encoder appends MUS-encoded fields to a pre-sized buffer.
type encoder struct {
	buf []byte
	n   int
}

func (e *encoder) str(v string) {
	e.n += ord.String.Marshal(v, e.buf[e.n:])
}

func (e *encoder) num(v int) {
	e.n += varint.Int.Marshal(v, e.buf[e.n:])
}

func (e *encoder) stamp(v time.Time) {
	e.n += varint.Int64.Marshal(timeToMicro(v), e.buf[e.n:])
}

func (e *encoder) f32(v float32) {
	e.n += varint.Uint32.Marshal(math.Float32bits(v), e.buf[e.n:])
}

// decoder reads MUS-encoded fields in order. The first error sticks and
// short-circuits every following read.
type decoder struct {
	data []byte
	n    int
	err  error
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.data[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) num() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.data[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) stamp() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.data[d.n:])
	d.n += n
	d.err = err
	return microToTime(v)
}

func (d *decoder) f32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint32.Unmarshal(d.data[d.n:])
	d.n += n
	d.err = err
	return math.Float32frombits(v)
}

func (d *decoder) result() error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return nil
}

// Zero times are stored as 0 so they round-trip as time.Time{}.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func articleSize(a *core.Article) int {
	return ord.String.Size(a.ID) +
		ord.String.Size(a.Title) +
		ord.String.Size(a.Snippet) +
		ord.String.Size(a.URL) +
		timeSize(a.PublishedAt) +
		ord.String.Size(a.Source)
}

func (e *encoder) article(a *core.Article) {
	e.str(a.ID)
	e.str(a.Title)
	e.str(a.Snippet)
	e.str(a.URL)
	e.stamp(a.PublishedAt)
	e.str(a.Source)
}

func (d *decoder) article() core.Article {
	var a core.Article
	a.ID = d.str()
	a.Title = d.str()
	a.Snippet = d.str()
	a.URL = d.str()
	a.PublishedAt = d.stamp()
	a.Source = d.str()
	return a
}

// MarshalJob serializes a Job to bytes.
func MarshalJob(job *core.Job) []byte {
	size := ord.String.Size(job.ID) +
		articleSize(&job.Article) +
		varint.Int.Size(int(job.State)) +
		varint.Int.Size(job.Attempts) +
		ord.String.Size(job.LastError) +
		timeSize(job.NotBefore) +
		timeSize(job.EnqueuedAt) +
		timeSize(job.UpdatedAt)
	e := &encoder{buf: make([]byte, size)}
	e.str(job.ID)
	e.article(&job.Article)
	e.num(int(job.State))
	e.num(job.Attempts)
	e.str(job.LastError)
	e.stamp(job.NotBefore)
	e.stamp(job.EnqueuedAt)
	e.stamp(job.UpdatedAt)
	return e.buf[:e.n]
}

// UnmarshalJob deserializes a Job from bytes.
func UnmarshalJob(data []byte) (*core.Job, error) {
	d := &decoder{data: data}
	job := &core.Job{}
	job.ID = d.str()
	job.Article = d.article()
	job.State = core.JobState(d.num())
	job.Attempts = d.num()
	job.LastError = d.str()
	job.NotBefore = d.stamp()
	job.EnqueuedAt = d.stamp()
	job.UpdatedAt = d.stamp()
	if err := d.result(); err != nil {
		return nil, err
	}
	return job, nil
}

// MarshalTurns serializes an ordered list of turns to bytes.
func MarshalTurns(turns []core.Turn) []byte {
	size := varint.Int.Size(len(turns))
	for i := range turns {
		size += varint.Int.Size(int(turns[i].Role)) +
			ord.String.Size(turns[i].Content) +
			timeSize(turns[i].Timestamp)
	}
	e := &encoder{buf: make([]byte, size)}
	e.num(len(turns))
	for i := range turns {
		e.num(int(turns[i].Role))
		e.str(turns[i].Content)
		e.stamp(turns[i].Timestamp)
	}
	return e.buf[:e.n]
}

// UnmarshalTurns deserializes a list of turns from bytes.
func UnmarshalTurns(data []byte) ([]core.Turn, error) {
	d := &decoder{data: data}
	count := d.num()
	if d.err == nil && (count < 0 || count > len(data)) {
		return nil, fmt.Errorf("%w: turn count %d", ErrTruncatedData, count)
	}
	turns := make([]core.Turn, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		var t core.Turn
		t.Role = core.Role(d.num())
		t.Content = d.str()
		t.Timestamp = d.stamp()
		turns = append(turns, t)
	}
	if err := d.result(); err != nil {
		return nil, err
	}
	return turns, nil
}

// StoredChunk is a chunk together with its embedding, as kept by local indexes.
type StoredChunk struct {
	Chunk  core.Chunk
	Vector []float32
}

// MarshalStoredChunk serializes a StoredChunk to bytes.
func MarshalStoredChunk(sc *StoredChunk) []byte {
	m := &sc.Chunk.Metadata
	size := ord.String.Size(sc.Chunk.Text) +
		varint.Int.Size(sc.Chunk.Index) +
		ord.String.Size(m.Source) +
		ord.String.Size(m.ArticleID) +
		ord.String.Size(m.Title) +
		ord.String.Size(m.URL) +
		varint.Int.Size(len(sc.Vector))
	for _, v := range sc.Vector {
		size += varint.Uint32.Size(math.Float32bits(v))
	}
	e := &encoder{buf: make([]byte, size)}
	e.str(sc.Chunk.Text)
	e.num(sc.Chunk.Index)
	e.str(m.Source)
	e.str(m.ArticleID)
	e.str(m.Title)
	e.str(m.URL)
	e.num(len(sc.Vector))
	for _, v := range sc.Vector {
		e.f32(v)
	}
	return e.buf[:e.n]
}

// UnmarshalStoredChunk deserializes a StoredChunk from bytes.
func UnmarshalStoredChunk(data []byte) (*StoredChunk, error) {
	d := &decoder{data: data}
	sc := &StoredChunk{}
	sc.Chunk.Text = d.str()
	sc.Chunk.Index = d.num()
	sc.Chunk.Metadata.Source = d.str()
	sc.Chunk.Metadata.ArticleID = d.str()
	sc.Chunk.Metadata.Title = d.str()
	sc.Chunk.Metadata.URL = d.str()
	dim := d.num()
	if d.err == nil && (dim < 0 || dim > len(data)) {
		return nil, fmt.Errorf("%w: vector length %d", ErrTruncatedData, dim)
	}
	if d.err == nil && dim > 0 {
		sc.Vector = make([]float32, dim)
		for i := 0; i < dim && d.err == nil; i++ {
			sc.Vector[i] = d.f32()
		}
	}
	if err := d.result(); err != nil {
		return nil, err
	}
	return sc, nil
}
