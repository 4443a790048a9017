package retriever

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	websearchx "github.com/loanbotlabs/loanbot-gateway/websearch"
	"github.com/rs/zerolog/log"
)

// Answerer optionally rewrites the templated answer using the retrieved
// evidence. Absent (nil), the template stands.
type Answerer interface {
	Synthesize(ctx context.Context, query string, docs []contractx.DocumentHit) (string, error)
}

type Config struct {
	TopK int `envconfig:"TOP_K" split_words:"true" default:"5"`
}

// Pipeline is the production Retrieval backend: hash-embed the query, search
// the vector store, rerank, blend in web results, compose an answer with
// sources.
type Pipeline struct {
	store    VectorStore
	web      websearchx.Provider
	answerer Answerer
	topK     int
}

var _ contractx.Retrieval = (*Pipeline)(nil)

type PipelineOption func(*Pipeline)

func WithWebProvider(provider websearchx.Provider) PipelineOption {
	return func(p *Pipeline) { p.web = provider }
}

func WithAnswerer(answerer Answerer) PipelineOption {
	return func(p *Pipeline) { p.answerer = answerer }
}

func NewPipeline(store VectorStore, cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	p := &Pipeline{store: store, topK: topK}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

func (p *Pipeline) Run(ctx context.Context, category, query, userID string) (contractx.CapabilityResult, error) {
	hits, err := p.store.Search(ctx, HashVector(query), p.topK)
	if err != nil {
		return contractx.CapabilityResult{}, err
	}
	hits = Rerank(hits, p.topK)

	webResults := p.searchWeb(ctx, query)

	answer := composeAnswer(hits, webResults)
	if p.answerer != nil && len(hits) > 0 {
		if refined, err := p.answerer.Synthesize(ctx, query, hits); err != nil {
			log.Warn().Err(err).Msg("answer synthesis failed, keeping templated answer")
		} else if strings.TrimSpace(refined) != "" {
			answer = refined
		}
	}

	return contractx.CapabilityResult{
		Intent:   contractx.IntentInformational,
		Category: category,
		Mock:     false,
		Informational: &contractx.InformationalResult{
			Answer:     answer,
			Query:      query,
			Sources:    collectSources(hits, webResults),
			Documents:  hits,
			WebResults: webResults,
		},
	}, nil
}

// searchWeb degrades gracefully: a web failure reduces the answer to
// knowledge-base evidence, it never fails the request.
func (p *Pipeline) searchWeb(ctx context.Context, query string) []contractx.WebResult {
	if p.web == nil {
		return nil
	}
	results, err := p.web.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("web search failed")
		return nil
	}
	return results
}

func collectSources(docs []contractx.DocumentHit, webResults []contractx.WebResult) []string {
	sources := make([]string, 0, len(docs)+len(webResults))
	for _, doc := range docs {
		if src, ok := doc.Metadata["doc_source"].(string); ok && src != "" {
			sources = append(sources, src)
		}
	}
	for _, result := range webResults {
		if result.URL != "" {
			sources = append(sources, result.URL)
		}
	}
	return sources
}

func composeAnswer(docs []contractx.DocumentHit, webResults []contractx.WebResult) string {
	if len(docs) > 0 {
		title, _ := docs[0].Metadata["doc_title"].(string)
		if title == "" {
			title, _ = docs[0].Metadata["doc_id"].(string)
		}
		if title != "" {
			return fmt.Sprintf("'%s' 등 %d건의 내부 자료를 찾았습니다.", title, len(docs))
		}
		return fmt.Sprintf("관련 내부 자료 %d건을 찾았습니다.", len(docs))
	}

	if len(webResults) > 0 {
		first := webResults[0].Title
		if first == "" {
			first = webResults[0].URL
		}
		if first != "" {
			return fmt.Sprintf("외부 검색 결과 '%s' 등 %d건을 발견했습니다.", first, len(webResults))
		}
		return fmt.Sprintf("외부 검색 결과 %d건을 발견했습니다.", len(webResults))
	}

	return "관련 자료를 찾지 못했습니다. 질문을 더 구체화해 주세요."
}

// Ingest loads raw documents, chunks and embeds them, and upserts the result
// into the vector store.
func (p *Pipeline) Ingest(ctx context.Context, rawDir string, cfg ChunkConfig) (int, error) {
	docs, err := LoadDocuments(rawDir)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		log.Warn().Str("dir", rawDir).Msg("no raw documents found")
		return 0, nil
	}

	chunks := ChunkDocuments(docs, cfg)
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("chunked raw documents")

	return p.store.Upsert(ctx, chunks)
}
