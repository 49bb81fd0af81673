package mock

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/poiesic/newsdesk/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 0.001)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockChatModel_StreamsAndRecords(t *testing.T) {
	m := NewMockChatModel("a", "b", "c")
	prompt := []ai.Message{{Role: ai.MessageUser, Content: "q"}}

	var sb strings.Builder
	err := m.StreamChat(context.Background(), prompt, func(ctx context.Context, delta string) error {
		sb.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", sb.String())
	assert.Equal(t, prompt, m.LastPrompt())
	assert.Equal(t, 1, m.CallCount())
}

func TestMockChatModel_ErrorAfterDeltas(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockChatModel("x")
	m.Err = boom

	var got []string
	err := m.StreamChat(context.Background(), nil, func(ctx context.Context, delta string) error {
		got = append(got, delta)
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"x"}, got)
}
