// Package chunker splits arbitrary text into sentence-respecting segments
// sized for single-shot speech synthesis.
package chunker

// Chunk is a bounded, offset-tracked substring of the source text.
// Start and End are byte offsets into the original string, so
// source[chunk.Start:chunk.End] == chunk.Text always holds.
type Chunk struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// DefaultMaxChunkSize is used when a caller passes a non-positive max size.
const DefaultMaxChunkSize = 500

// Split breaks text into ordered chunks by greedily accumulating whole
// sentences until the next sentence would push the chunk past maxSize.
// A single sentence longer than maxSize becomes its own oversized chunk.
// Text with no sentence boundary at all is returned as one chunk, and any
// unterminated trailing text is appended to the final chunk.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}

	trimStart, trimEnd := trimOffsets(text, 0, len(text))
	if trimStart >= trimEnd {
		return nil
	}

	spans, tail := sentenceSpans(text)
	if len(spans) == 0 {
		// No sentence boundary anywhere: the whole text is one chunk.
		return []Chunk{{Text: text[trimStart:trimEnd], Start: trimStart, End: trimEnd}}
	}

	var chunks []Chunk
	curStart, curEnd := spans[0][0], spans[0][1]
	for _, span := range spans[1:] {
		if span[1]-curStart > maxSize {
			chunks = append(chunks, Chunk{Text: text[curStart:curEnd], Start: curStart, End: curEnd})
			curStart, curEnd = span[0], span[1]
			continue
		}
		curEnd = span[1]
	}
	chunks = append(chunks, Chunk{Text: text[curStart:curEnd], Start: curStart, End: curEnd})

	// Trailing text after the last matched sentence joins the final chunk.
	if tail >= 0 {
		_, tailEnd := trimOffsets(text, tail, len(text))
		if tailEnd > tail {
			last := &chunks[len(chunks)-1]
			last.End = tailEnd
			last.Text = text[last.Start:last.End]
		}
	}

	return chunks
}

// sentenceSpans returns the [start, end) offsets of every terminated sentence
// in text, plus the offset where unterminated trailing text begins (-1 when
// the last sentence ends the string). A sentence terminates at '.', '!' or
// '?' followed by whitespace or end-of-string.
func sentenceSpans(text string) ([][2]int, int) {
	var spans [][2]int
	n := len(text)
	i := 0
	for i < n {
		for i < n && isSpace(text[i]) {
			i++
		}
		if i >= n {
			return spans, -1
		}
		start := i
		end := -1
		for j := i; j < n; j++ {
			switch text[j] {
			case '.', '!', '?':
				if j+1 >= n || isSpace(text[j+1]) {
					end = j + 1
				}
			}
			if end != -1 {
				break
			}
		}
		if end == -1 {
			return spans, start
		}
		spans = append(spans, [2]int{start, end})
		i = end
	}
	return spans, -1
}

// trimOffsets narrows [start, end) to exclude leading and trailing whitespace.
func trimOffsets(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
