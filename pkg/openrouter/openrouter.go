// Package openrouter wraps the OpenAI SDK pointed at OpenRouter. The gateway
// uses it only for optional answer synthesis in the retrieval pipeline; the
// routing core itself never calls a model.
package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxTokens   int64         `envconfig:"MAX_TOKENS" split_words:"true" default:"600"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`
}

// Enabled reports whether synthesis is configured at all. Without an API key
// the retrieval pipeline keeps its templated answers.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// NewClient creates an OpenAI SDK client configured for OpenRouter.
func NewClient(cfg Config) (*openaisdk.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("openrouter: api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &client, nil
}

const synthesisSystemPrompt = "당신은 대출 상담 챗봇입니다. 제공된 자료만 근거로 한국어로 간결하게 답하세요. 자료에 없는 내용은 추측하지 마세요."

// Synthesizer rewrites the retrieval pipeline's templated answer from the
// retrieved evidence. It satisfies retriever.Answerer.
type Synthesizer struct {
	client *openaisdk.Client
	cfg    Config
}

func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{client: client, cfg: cfg}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, query string, docs []contractx.DocumentHit) (string, error) {
	var evidence strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&evidence, "[%d] %s\n", i+1, strings.TrimSpace(doc.Text))
	}

	completion, err := s.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(s.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(synthesisSystemPrompt),
			openaisdk.UserMessage(fmt.Sprintf("질문: %s\n\n자료:\n%s", query, evidence.String())),
		},
		MaxTokens:   openaisdk.Int(s.cfg.MaxTokens),
		Temperature: openaisdk.Float(s.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openrouter: completion returned no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
