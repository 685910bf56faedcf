package chunker

import (
	"strings"

	"github.com/dgallion1/legistruct/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum size of a preamble or intro chunk. Articles are always emitted.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    800,
		ChunkOverlap: 100,
		MinChunk:     20,
	}
}

// ChunkTree walks a DocumentStructure and produces structure-aware chunks:
// the preamble, every title and chapter intro, and every article, in
// document order. Each article chunk starts with the article heading.
func ChunkTree(doc *doctree.DocumentStructure, cfg Config) []doctree.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}

	c := &collector{cfg: cfg}
	c.emit(doc.Preamble, nil, "", 0, false)
	for _, t := range doc.Titles {
		var bc []string
		if !t.Synthetic {
			bc = append(bc, t.Display())
		}
		c.emit(t.Intro, bc, "", firstPage(t), false)
		for _, ch := range t.Chapters {
			cbc := bc
			if !ch.Synthetic {
				cbc = append(copyBreadcrumb(bc), ch.Display())
			}
			page := 0
			if len(ch.Articles) > 0 {
				page = ch.Articles[0].Page
			}
			c.emit(ch.Intro, cbc, "", page, false)
			for _, a := range ch.Articles {
				abc := append(copyBreadcrumb(cbc), "Article "+a.ID)
				text := a.Heading
				if a.Body != "" {
					text += "\n\n" + a.Body
				}
				c.emit(text, abc, a.ID, a.Page, true)
			}
		}
	}
	return c.chunks
}

type collector struct {
	cfg    Config
	chunks []doctree.Chunk
}

// emit splits text and appends its chunks. Parts below MinChunk are dropped
// unless keep is set.
func (c *collector) emit(text string, bc []string, articleID string, page int, keep bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	parts := []string{text}
	if EstimateTokens(text) > c.cfg.ChunkSize {
		parts = splitText(text, c.cfg.ChunkSize, c.cfg.ChunkOverlap)
	}
	for _, part := range parts {
		if !keep && EstimateTokens(part) < c.cfg.MinChunk {
			continue
		}
		c.chunks = append(c.chunks, doctree.Chunk{
			Text:       part,
			Index:      len(c.chunks),
			ArticleID:  articleID,
			Breadcrumb: copyBreadcrumb(bc),
			PageStart:  page,
			PageEnd:    page,
		})
	}
}

func firstPage(t *doctree.TitleNode) int {
	for _, c := range t.Chapters {
		if len(c.Articles) > 0 {
			return c.Articles[0].Page
		}
	}
	return 0
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	// Split by paragraphs first.
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// If a single paragraph exceeds the target, split it further.
		if paraTokens > targetTokens {
			// Flush current buffer.
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			// Split the large paragraph by sentences.
			subParts := splitBySentences(para, targetTokens, overlapTokens)
			result = append(result, subParts...)
			continue
		}

		// Would adding this paragraph exceed the target?
		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			// Start next chunk with overlap from end of current.
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
