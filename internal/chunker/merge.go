package chunker

// mergeSmallChunks folds chunks below minTokens into a neighbor when the
// combined size stays within maxTokens. A trailing chunk may remain under
// minTokens when merging it anywhere would blow the budget; that is
// expected, not an error.
func (e *Engine) mergeSmallChunks(chunks []string, minTokens, maxTokens int) []string {
	if len(chunks) == 0 || minTokens <= 0 {
		return chunks
	}

	var result []string
	current := ""

	for _, text := range chunks {
		if current == "" {
			current = text
			continue
		}

		if e.tok.Count(current) < minTokens {
			merged := current + "\n\n" + text
			if e.tok.Count(merged) <= maxTokens {
				current = merged
				continue
			}
			// Cannot merge forward without exceeding the budget.
			result = append(result, current)
			current = text
		} else {
			result = append(result, current)
			current = text
		}
	}

	if current != "" {
		// A small final chunk merges backward into the previous one if room allows.
		if len(result) > 0 && e.tok.Count(current) < minTokens {
			merged := result[len(result)-1] + "\n\n" + current
			if e.tok.Count(merged) <= maxTokens {
				result[len(result)-1] = merged
			} else {
				result = append(result, current)
			}
		} else {
			result = append(result, current)
		}
	}

	return result
}
