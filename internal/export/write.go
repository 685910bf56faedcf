package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/storage"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// ArticleFileName returns "article_<id>.txt" with every character outside
// [A-Za-z0-9_.] replaced by "_".
func ArticleFileName(id string) string {
	return "article_" + unsafeFileChars.ReplaceAllString(id, "_") + ".txt"
}

// WriteArticleFiles stores one text file per exported article id under
// prefix and returns the paths written. Duplicate ids follow policy, as in
// Flat.
func WriteArticleFiles(ctx context.Context, a storage.Adapter, prefix string, doc *doctree.DocumentStructure, policy DuplicatePolicy) ([]string, error) {
	articles := Flat(doc, policy).Articles
	paths := make([]string, 0, articles.Len())
	seen := make(map[string]bool, articles.Len())
	for _, id := range articles.Keys() {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		name := ArticleFileName(id)
		for n := 2; seen[name]; n++ {
			name = strings.TrimSuffix(ArticleFileName(id), ".txt") + fmt.Sprintf("_%d.txt", n)
		}
		seen[name] = true

		body, _ := articles.Get(id)
		p := path.Join(prefix, name)
		if err := a.Put(ctx, p, strings.NewReader(body+"\n")); err != nil {
			return paths, fmt.Errorf("write article %s: %w", id, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteJSON stores v as indented JSON.
func WriteJSON(ctx context.Context, a storage.Adapter, p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p, err)
	}
	data = append(data, '\n')
	if err := a.Put(ctx, p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// WriteChunks stores chunks as JSON lines.
func WriteChunks(ctx context.Context, a storage.Adapter, p string, chunks []doctree.Chunk) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return fmt.Errorf("encode chunk %d: %w", i, err)
		}
	}
	if err := a.Put(ctx, p, &buf); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
