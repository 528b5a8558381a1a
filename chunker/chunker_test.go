package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortSentences(t *testing.T) {
	chunks := Split("A. B. C.", 3)

	require.Len(t, chunks, 3)
	assert.Equal(t, "A.", chunks[0].Text)
	assert.Equal(t, "B.", chunks[1].Text)
	assert.Equal(t, "C.", chunks[2].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 2, chunks[0].End)
	assert.Equal(t, 3, chunks[1].Start)
	assert.Equal(t, 6, chunks[2].Start)
}

func TestSplit_GreedyAccumulation(t *testing.T) {
	text := "One sentence here. Two sentence here. Three sentence here."
	chunks := Split(text, 40)

	// First two sentences fit together (37 chars), the third does not.
	require.Len(t, chunks, 2)
	assert.Equal(t, "One sentence here. Two sentence here.", chunks[0].Text)
	assert.Equal(t, "Three sentence here.", chunks[1].Text)
}

func TestSplit_OversizedSentence(t *testing.T) {
	runOn := strings.Repeat("x", 1000)
	chunks := Split(runOn, 500)

	require.Len(t, chunks, 1)
	assert.Equal(t, runOn, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 1000, chunks[0].End)
}

func TestSplit_OversizedSentenceAmongNormal(t *testing.T) {
	long := strings.Repeat("y", 80) + "."
	text := "Short one. " + long + " Short two."
	chunks := Split(text, 20)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Greater(t, len(chunks[1].Text), 20)
	assert.Equal(t, "Short two.", chunks[2].Text)
}

func TestSplit_TrailingTextJoinsFinalChunk(t *testing.T) {
	chunks := Split("Complete sentence. and then it trails off", 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Complete sentence. and then it trails off", chunks[0].Text)
}

func TestSplit_TrailingTextAfterFlush(t *testing.T) {
	chunks := Split("First part here. Second part here. tail", 20)

	require.Len(t, chunks, 2)
	assert.Equal(t, "First part here.", chunks[0].Text)
	assert.Equal(t, "Second part here. tail", chunks[1].Text)
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 100))
	assert.Nil(t, Split("   \n\t ", 100))
}

func TestSplit_QuestionAndExclamation(t *testing.T) {
	chunks := Split("Really? Yes! Okay.", 8)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Really?", chunks[0].Text)
	assert.Equal(t, "Yes!", chunks[1].Text)
	assert.Equal(t, "Okay.", chunks[2].Text)
}

func TestSplit_PunctuationInsideWordIsNotABoundary(t *testing.T) {
	chunks := Split("Visit example.com today. Then rest.", 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Visit example.com today. Then rest.", chunks[0].Text)
}

func TestSplit_OffsetsIndexOriginalString(t *testing.T) {
	text := "  Leading space. Middle bit!   Trailing thing?  "
	chunks := Split(text, 15)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, c.Text, text[c.Start:c.End])
	}
}

func TestSplit_NoContentLostOrDuplicated(t *testing.T) {
	texts := []string{
		"A. B. C.",
		"One two three. Four five six! Seven? eight nine",
		"No terminator at all in this text",
		strings.Repeat("word ", 200) + "end.",
		"  spaced.   out.   sentences.  ",
	}
	for _, text := range texts {
		for _, max := range []int{1, 5, 25, 1000} {
			chunks := Split(text, max)
			var joined strings.Builder
			for _, c := range chunks {
				joined.WriteString(c.Text)
				joined.WriteString(" ")
			}
			assert.Equal(t,
				strings.Join(strings.Fields(text), " "),
				strings.Join(strings.Fields(joined.String()), " "),
				"text %q max %d", text, max)
		}
	}
}

func TestSplit_MonotonicOffsets(t *testing.T) {
	chunks := Split("Alpha beta. Gamma delta. Epsilon zeta. Eta theta.", 14)

	require.NotEmpty(t, chunks)
	prevEnd := 0
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.Start, prevEnd)
		assert.Greater(t, c.End, c.Start)
		prevEnd = c.End
	}
}

func TestSplit_MaxSizeRespectedForMultiSentenceChunks(t *testing.T) {
	text := strings.Repeat("Tiny one. ", 50)
	for _, max := range []int{10, 30, 75} {
		for _, c := range Split(text, max) {
			assert.LessOrEqual(t, len(c.Text), max)
		}
	}
}

func TestSplit_DefaultMaxSize(t *testing.T) {
	text := strings.Repeat("A sentence of modest length right here. ", 30)
	chunks := Split(text, 0)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), DefaultMaxChunkSize)
	}
}
