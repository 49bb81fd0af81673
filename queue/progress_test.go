package queue

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_CountsFinishedJobs(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.OnCompleted(nil)
	assert.Empty(t, buf.String(), "events before Start are ignored")

	p.Start(3)
	p.OnCompleted(nil)
	p.OnFailed(nil, errors.New("timeout"), false)
	assert.False(t, p.Done())
	p.OnFailed(nil, errors.New("timeout"), true)
	p.OnCompleted(nil)
	assert.True(t, p.Done())

	p.Finish()
	output := buf.String()
	assert.Contains(t, output, "Extracted: 2/3 (100.0%), 1 dead")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgress_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Start(0)
	assert.True(t, p.Done())
	assert.Contains(t, buf.String(), "0/0 (100.0%)")
}
