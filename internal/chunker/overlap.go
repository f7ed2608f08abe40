package chunker

// addOverlap prepends the decoded tail of each chunk's tokens to the chunk
// that follows it, preserving context across split boundaries. Chunks at
// atomic indices pass through untouched: tables and code fences must stay
// byte-identical to the source and may already be at or over budget. No
// overlap is added when the previous chunk has overlapTokens tokens or
// fewer.
func (e *Engine) addOverlap(chunks []string, overlapTokens int, atomic map[int]bool) []string {
	if overlapTokens <= 0 || len(chunks) <= 1 {
		return chunks
	}

	result := make([]string, 0, len(chunks))
	result = append(result, chunks[0])

	for i := 1; i < len(chunks); i++ {
		if atomic[i] {
			result = append(result, chunks[i])
			continue
		}

		prev := e.tok.Encode(chunks[i-1])
		if len(prev) > overlapTokens {
			tail := e.tok.Decode(prev[len(prev)-overlapTokens:])
			result = append(result, tail+chunks[i])
		} else {
			result = append(result, chunks[i])
		}
	}

	return result
}
