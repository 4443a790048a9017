package retriever

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one raw knowledge-base source file.
type Document struct {
	DocID      string
	Title      string
	SourcePath string
	Format     string
	Text       string
}

// Chunk is an embeddable slice of a document, carrying enough metadata for
// source attribution at answer time.
type Chunk struct {
	ChunkID  string
	Text     string
	Metadata map[string]any
}

type ChunkConfig struct {
	Size     int `envconfig:"SIZE" split_words:"true" default:"800"`
	Overlap  int `envconfig:"OVERLAP" split_words:"true" default:"120"`
	MinChars int `envconfig:"MIN_CHARS" split_words:"true" default:"40"`
}

// LoadDocuments reads every .txt/.md file under rawDir, non-recursively
// deterministic by filename.
func LoadDocuments(rawDir string) ([]Document, error) {
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir %s: %w", rawDir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		path := filepath.Join(rawDir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}
		title := strings.TrimSuffix(entry.Name(), ext)
		docs = append(docs, Document{
			DocID:      title,
			Title:      title,
			SourcePath: path,
			Format:     strings.TrimPrefix(ext, "."),
			Text:       string(raw),
		})
	}
	return docs, nil
}

// ChunkDocuments splits documents into overlapping rune windows. Chunks
// shorter than MinChars are dropped.
func ChunkDocuments(docs []Document, cfg ChunkConfig) []Chunk {
	size := cfg.Size
	if size <= 0 {
		size = 800
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []Chunk
	for _, doc := range docs {
		runes := []rune(doc.Text)
		step := size - overlap
		for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			text := strings.TrimSpace(string(runes[start:end]))
			if len([]rune(text)) < cfg.MinChars {
				continue
			}
			chunks = append(chunks, Chunk{
				ChunkID: fmt.Sprintf("%s-%04d", doc.DocID, index),
				Text:    text,
				Metadata: map[string]any{
					"doc_id":     doc.DocID,
					"doc_title":  doc.Title,
					"doc_source": doc.SourcePath,
					"doc_format": doc.Format,
				},
			})
			if end == len(runes) {
				break
			}
		}
	}
	return chunks
}
