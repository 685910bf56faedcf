package chunker

import "strings"

// EstimateTokens gives a rough token count from the word count. Chunk sizes
// only need to be approximate.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// About 1.33 tokens per word; French legal prose runs a little higher.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
