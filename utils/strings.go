package utils

// ChunkString splits a string into chunks of a maximum size, safely handling runes.
func ChunkString(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}
	if chunkSize <= 0 {
		return []string{s}
	}

	var chunks []string
	runes := []rune(s)
	for len(runes) > chunkSize {
		chunks = append(chunks, string(runes[:chunkSize]))
		runes = runes[chunkSize:]
	}
	chunks = append(chunks, string(runes))
	return chunks
}

// TruncateString shortens s to at most max runes without splitting a rune,
// so the result is always valid UTF-8.
func TruncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
