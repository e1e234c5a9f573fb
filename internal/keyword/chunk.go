package keyword

// chunk slices text into overlapping rune windows. A text shorter than
// one window is a single chunk; tail windows below minChunk are
// dropped.
func chunk(text string, window, stride, minChunk int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= window {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		if end-start < minChunk {
			break
		}

		chunks = append(chunks, string(runes[start:end]))

		if end == len(runes) {
			break
		}
	}

	return chunks
}
