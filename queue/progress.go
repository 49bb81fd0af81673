package queue

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/newsdesk/core"
)

// Progress is a Listener that prints a one-line summary of finished jobs
// to a terminal. Retried attempts are not counted; only completions and
// jobs moved to the dead state are.
type Progress struct {
	writer    io.Writer
	total     int
	completed int
	dead      int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

var _ Listener = (*Progress)(nil)

// NewProgress creates a tracker writing to writer (typically os.Stderr).
func NewProgress(writer io.Writer) *Progress {
	return &Progress{writer: writer}
}

// Start resets the counters and sets the number of expected jobs.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.completed = 0
	p.dead = 0
	p.startTime = time.Now()
	p.started = true
	p.report()
}

// OnCompleted counts a successful job.
func (p *Progress) OnCompleted(_ *core.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.completed++
	p.report()
}

// OnFailed counts a job that exhausted its retries.
func (p *Progress) OnFailed(_ *core.Job, _ error, dead bool) {
	if !dead {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.dead++
	p.report()
}

// Done reports whether every expected job has finished.
func (p *Progress) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && p.completed+p.dead >= p.total
}

// Finish prints the final line followed by a newline.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// report prints the current progress. Must be called with lock held.
func (p *Progress) report() {
	finished := p.completed + p.dead
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(finished) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rExtracted: %d/%d (%.1f%%), %d dead, %s elapsed",
		p.completed, p.total, percentage, p.dead, time.Since(p.startTime).Round(time.Second))
}
