// Package sse frames a streamed chat answer as server-sent events.
//
// Every event is a single "data:" line carrying a JSON object whose "type"
// is one of session, chunk, complete or error:
//
//	data: {"type":"session","sessionId":"..."}
//	data: {"type":"chunk","chunkNumber":1,"content":"Hel","partial":"Hel"}
//	data: {"type":"chunk","chunkNumber":2,"content":"lo","partial":"Hello"}
//	data: {"type":"complete","totalChunks":2,"fullResponse":"Hello"}
//
// Chunk numbers start at 1 and have no gaps, and partial is the
// concatenation of all contents so far.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultPacing is the delay inserted after every chunk event.
const DefaultPacing = 50 * time.Millisecond

// Event types.
const (
	TypeSession  = "session"
	TypeChunk    = "chunk"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Stream is a pull-based source of text deltas.
// Recv returns io.EOF after the last delta.
type Stream interface {
	SessionID() string
	Recv(ctx context.Context) (string, error)
}

type sessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type chunkEvent struct {
	Type        string `json:"type"`
	ChunkNumber int    `json:"chunkNumber"`
	Content     string `json:"content"`
	Partial     string `json:"partial"`
}

type completeEvent struct {
	Type         string `json:"type"`
	TotalChunks  int    `json:"totalChunks"`
	FullResponse string `json:"fullResponse"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Emitter writes streams to HTTP responses.
type Emitter struct {
	// Pacing is slept after every chunk event. Zero disables it.
	Pacing time.Duration
	Logger *slog.Logger
}

// NewEmitter returns an emitter with DefaultPacing.
func NewEmitter() *Emitter {
	return &Emitter{Pacing: DefaultPacing, Logger: slog.Default()}
}

// SetHeaders writes the event-stream response headers.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Emit sends the session event, one chunk event per delta and a final
// complete event. A stream failure is reported as an error event and
// returned. When ctx ends (the client went away) Emit stops pulling and
// returns without writing anything further.
func (e *Emitter) Emit(ctx context.Context, w http.ResponseWriter, stream Stream) error {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sse", "session", stream.SessionID())

	SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	fw := &frameWriter{w: w, rc: http.NewResponseController(w)}

	if err := fw.write(sessionEvent{Type: TypeSession, SessionID: stream.SessionID()}); err != nil {
		return err
	}

	var partial strings.Builder
	count := 0
	for {
		delta, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("client went away", "chunks", count)
				return ctx.Err()
			}
			logger.Warn("stream failed", "chunks", count, "err", err)
			if werr := fw.write(errorEvent{Type: TypeError, Message: err.Error()}); werr != nil {
				return errors.Join(err, werr)
			}
			return err
		}

		count++
		partial.WriteString(delta)
		if err := fw.write(chunkEvent{
			Type:        TypeChunk,
			ChunkNumber: count,
			Content:     delta,
			Partial:     partial.String(),
		}); err != nil {
			return err
		}
		if err := e.pace(ctx); err != nil {
			return err
		}
	}

	return fw.write(completeEvent{
		Type:         TypeComplete,
		TotalChunks:  count,
		FullResponse: partial.String(),
	})
}

func (e *Emitter) pace(ctx context.Context) error {
	if e.Pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(e.Pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type frameWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *frameWriter) write(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Event is a decoded frame. Only the fields of its Type are set.
type Event struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId,omitempty"`
	ChunkNumber  int    `json:"chunkNumber,omitempty"`
	Content      string `json:"content,omitempty"`
	Partial      string `json:"partial,omitempty"`
	TotalChunks  int    `json:"totalChunks,omitempty"`
	FullResponse string `json:"fullResponse,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ReadEvents decodes every data frame from r until EOF.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		payload, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		var event Event
		if err := json.Unmarshal(bytes.TrimSpace(payload), &event); err != nil {
			return events, fmt.Errorf("decoding event %q: %w", line, err)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
