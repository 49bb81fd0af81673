package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a compact identifier for locally stored entities such as chunks.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Article is a single feed item accepted for ingestion.
// Articles are immutable once created.
type Article struct {
	ID          string    // Stable id derived from guid, id or link
	Title       string
	Snippet     string    // Plain-text content snippet from the feed
	URL         string
	PublishedAt time.Time
	Source      string    // Lowercased source key
}

// ArticleID picks the stable id of a feed item. The first non-empty
// value of guid, id and link wins.
func ArticleID(guid, id, link string) string {
	for _, candidate := range []string{guid, id, link} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}

// JobState is the lifecycle state of a queued job.
type JobState int

const (
	// JobStateQueued means the job waits for a worker (possibly after a retry delay).
	JobStateQueued JobState = iota + 1
	// JobStateActive means a worker has claimed the job.
	JobStateActive
	// JobStateCompleted is terminal: the handler succeeded.
	JobStateCompleted
	// JobStateDead is terminal: retries were exhausted.
	JobStateDead
)

var jobStateNames = map[JobState]string{
	JobStateQueued:    "queued",
	JobStateActive:    "active",
	JobStateCompleted: "completed",
	JobStateDead:      "dead",
}

func (s JobState) String() string {
	if name, ok := jobStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further processing happens for the job.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateDead
}

// Job is a unit of ingestion work. Its ID is the article id, which lets the
// queue keep at most one job per article in flight.
type Job struct {
	ID         string
	Article    Article
	State      JobState
	Attempts   int       // Number of handler runs started so far
	LastError  string    // Failure reason of the most recent attempt
	NotBefore  time.Time // Earliest time the job may be claimed
	EnqueuedAt time.Time
	UpdatedAt  time.Time
}

// NewJob creates a queued job for an article.
func NewJob(article Article) *Job {
	return &Job{
		ID:      article.ID,
		Article: article,
		State:   JobStateQueued,
	}
}

// ChunkMetadata is the structured metadata stored alongside every chunk.
type ChunkMetadata struct {
	Source    string
	ArticleID string
	Title     string
	URL       string
}

// Chunk is one overlapping text window of an extracted article.
type Chunk struct {
	Text     string
	Index    int // Position of the window within the article
	Metadata ChunkMetadata
}

// Key returns the deterministic local id of the chunk.
func (c *Chunk) Key() ID {
	return IDFromContent(c.Metadata.Source + "\x00" + c.Metadata.ArticleID + "\x00" + strconv.Itoa(c.Index))
}

// SearchResult is a chunk returned by similarity search with its score.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser is the human asking questions.
	RoleUser Role = iota + 1
	// RoleAssistant is the language model.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is a single message in a chat session.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Session is the ordered conversation history behind a session id.
type Session struct {
	ID    string
	Turns []Turn
}
