package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/newsdesk/core"
)

// Key prefixes for different data types
const (
	markerPrefix   = "processed"
	jobPrefix      = "job:"
	jobReadyPrefix = "jobready:"
	jobSeq         = "jobseq"
	sessionPrefix  = "session:"
	chunkPrefix    = "chunk:"
)

// makeMarkerKey generates the processed marker key for an article.
// Format: processed:source:id
func makeMarkerKey(source, articleID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", markerPrefix, source, articleID))
}

// makeJobKey generates a key for a job record by ID.
func makeJobKey(id string) []byte {
	return []byte(jobPrefix + id)
}

// makeJobReadyKey generates a composite key for the ready index.
// Format: prefix:notBefore:seq
func makeJobReadyKey(notBefore time.Time, seq uint64) []byte {
	prefixBytes := []byte(jobReadyPrefix)
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes for timestamp + 8 bytes for seq
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(notBefore.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// parseJobReadyTime extracts the NotBefore timestamp from a ready index key.
func parseJobReadyTime(key []byte) (time.Time, bool) {
	offset := len(jobReadyPrefix)
	if len(key) < offset+16 {
		return time.Time{}, false
	}
	micros := int64(binary.BigEndian.Uint64(key[offset:]))
	return time.UnixMicro(micros).UTC(), true
}

// makeSessionKey generates a key for a session history.
func makeSessionKey(sessionID string) []byte {
	return []byte(sessionPrefix + sessionID)
}

// makeChunkKey generates a key for a locally indexed chunk.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", chunkPrefix, id))
}
