package contract

import "context"

// Retrieval answers informational intents from the knowledge base and,
// optionally, web search. Zero sources is a valid outcome, not an error.
type Retrieval interface {
	Run(ctx context.Context, category, query, userID string) (CapabilityResult, error)
}

// Compute answers calculational intents. Implementations must validate params
// against the category's required field set before computing and fail with
// ErrMissingParameter on partial input.
type Compute interface {
	Run(ctx context.Context, category string, params map[string]any, userID string) (CapabilityResult, error)
}

// Classifier maps a raw request to an intent. Implementations must be pure:
// identical input yields an identical intent across calls.
type Classifier interface {
	Classify(req ChatRequest) (Intent, error)
}

// ChatLogStore persists exchanged turns for later inspection. Failures here
// must never fail the originating request.
type ChatLogStore interface {
	Save(ctx context.Context, rec ChatLog) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]ChatLog, error)
}

type ChatLog struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	TraceID     string `json:"trace_id"`
	Intent      string `json:"intent"`
}
