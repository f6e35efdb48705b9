package refine

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// chunkByTokens splits text into chunks of at most maxTokens tokens, cutting
// on sentence boundaries so no entity mention is split mid-sentence. A
// single sentence over the budget becomes its own oversized chunk rather
// than being truncated.
func chunkByTokens(text, encoder string, maxTokens int) ([]string, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(enc.Encode(text, nil, nil)) <= maxTokens {
		return []string{text}, nil
	}

	sentences := splitIntoSentences(text)
	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil)) + 1
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

// splitIntoSentences breaks text on sentence-ending punctuation and blank
// lines. Trailing quotes and brackets stay attached to their sentence.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}

		for i := 0; i < len(trimmed); i++ {
			current.WriteByte(trimmed[i])
			if trimmed[i] != '.' && trimmed[i] != '!' && trimmed[i] != '?' {
				continue
			}

			j := i + 1
			for j < len(trimmed) && strings.ContainsRune(".!?\"')]}", rune(trimmed[j])) {
				current.WriteByte(trimmed[j])
				j++
			}
			flush()
			i = j - 1
		}
	}
	flush()

	return sentences
}
