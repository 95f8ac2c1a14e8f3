package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

func TestSplitEmptyInputYieldsNoChunks(t *testing.T) {
	chunks, err := Split("src", "", 500, 50)
	require.NoError(t, err)
	require.Empty(t, chunks)

	chunks, err = Split("src", "   \n\n  ", 500, 50)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestSplitShortTextYieldsSingleChunk(t *testing.T) {
	text := "A brief note about nothing in particular."
	chunks, err := Split("src", text, 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Text)
	require.Equal(t, 0, chunks[0].OffsetStart)
	require.Equal(t, len(text), chunks[0].OffsetEnd)
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80)
	first, err := Split("src", text, 400, 40)
	require.NoError(t, err)
	second, err := Split("src", text, 400, 40)
	require.NoError(t, err)
	require.Equal(t, first, second)
	for i := range first {
		require.Equal(t, first[i].ChunkID, second[i].ChunkID)
	}
}

func TestSplitRespectsMaxLenAndOverlap(t *testing.T) {
	text := strings.Repeat("x", 3000)
	chunks, err := Split("ai-wiki", text, 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 7)
	for i, c := range chunks {
		require.LessOrEqual(t, c.OffsetEnd-c.OffsetStart, 500)
		if i > 0 {
			prev := chunks[i-1]
			require.Equal(t, prev.OffsetEnd-50, c.OffsetStart)
			require.Equal(t, prev.Text[len(prev.Text)-50:], c.Text[:50])
		}
	}
	require.Equal(t, 3000, chunks[len(chunks)-1].OffsetEnd)
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	sentence := "Alpha beta gamma delta epsilon zeta. "
	text := strings.TrimSpace(strings.Repeat(sentence, 20))
	chunks, err := Split("src", text, 100, 10)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		// every cut except the last lands right after a sentence end
		require.Regexp(t, `[.!?]\s?$`, c.Text)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("word ", 15) // ~75 chars, no sentence ends
	text := para + "\n\n" + para + "\n\n" + para
	chunks, err := Split("src", text, 100, 10)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	require.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
}

func TestSplitHardCutsOversizedUnit(t *testing.T) {
	text := strings.Repeat("y", 1200) // one giant "sentence"
	chunks, err := Split("src", text, 500, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, 500, chunks[0].OffsetEnd)
	require.Equal(t, 1000, chunks[1].OffsetEnd)
	require.Equal(t, 1200, chunks[2].OffsetEnd)
}

func TestSplitAppendKeepsLeadingChunkIDs(t *testing.T) {
	base := strings.Repeat("Stable sentence number one here. ", 40)
	appended := base + "\n\nA brand new trailing paragraph with fresh facts."

	before, err := Split("src", base, 300, 30)
	require.NoError(t, err)
	after, err := Split("src", appended, 300, 30)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(after), len(before))

	// All chunks except the tail keep both their id and their text.
	for i := 0; i < len(before)-1; i++ {
		require.Equal(t, before[i].ChunkID, after[i].ChunkID)
		require.Equal(t, before[i].Text, after[i].Text)
	}
}

func TestSplitValidatesArguments(t *testing.T) {
	_, err := Split("src", "text", 0, 0)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = Split("src", "text", 100, 100)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = Split("src", "text", 100, -1)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestChunkIDStableAndDistinct(t *testing.T) {
	require.Equal(t, ChunkID("a", 0), ChunkID("a", 0))
	require.NotEqual(t, ChunkID("a", 0), ChunkID("a", 450))
	require.NotEqual(t, ChunkID("a", 0), ChunkID("b", 0))
}
