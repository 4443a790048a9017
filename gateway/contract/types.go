package contract

import "time"

type Intent string

const (
	IntentInformational Intent = "informational"
	IntentCalculational Intent = "calculational"
)

// ParseIntent accepts only the closed intent set. The empty string is valid
// input for ChatRequest (meaning "derive it"), so callers must check for it
// before parsing.
func ParseIntent(raw string) (Intent, bool) {
	switch Intent(raw) {
	case IntentInformational:
		return IntentInformational, true
	case IntentCalculational:
		return IntentCalculational, true
	default:
		return "", false
	}
}

// ChatRequest is the inbound contract consumed from the transport layer.
// Intent and Category are optional; when both are present they must agree
// per the classifier's category table.
type ChatRequest struct {
	Message  string         `json:"message"`
	Intent   string         `json:"intent,omitempty"`
	Category string         `json:"category,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
}

// DocumentHit is one knowledge-base candidate surviving the rerank step.
type DocumentHit struct {
	ID              string         `json:"id"`
	Text            string         `json:"text"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Score           float64        `json:"score"`
	ScoreNormalized float64        `json:"score_normalized"`
}

type WebResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Snip  string `json:"snippet,omitempty"`
}

type InformationalResult struct {
	Answer     string        `json:"answer"`
	Query      string        `json:"query"`
	Sources    []string      `json:"sources"`
	Documents  []DocumentHit `json:"documents,omitempty"`
	WebResults []WebResult   `json:"web_results,omitempty"`
}

type CalculationalResult struct {
	Values      map[string]any `json:"values"`
	Explanation string         `json:"explanation,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// CapabilityResult is the tagged union returned by a backend. Exactly one of
// Informational/Calculational is set, matching Intent. Mock reports whether a
// stub produced it; the composer propagates the flag and never overrides it.
type CapabilityResult struct {
	Intent        Intent               `json:"intent"`
	Category      string               `json:"category,omitempty"`
	Mock          bool                 `json:"mock"`
	Informational *InformationalResult `json:"informational,omitempty"`
	Calculational *CalculationalResult `json:"calculational,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResultEnvelope struct {
	Intent   Intent         `json:"intent"`
	Category string         `json:"category,omitempty"`
	Payload  map[string]any `json:"payload"`
}

type ResponseMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	Mock        bool      `json:"mock"`
}

// ChatResponse is the uniform envelope returned to every caller. It is never
// mutated after composition.
type ChatResponse struct {
	Result   ResultEnvelope `json:"result"`
	Messages []ChatMessage  `json:"messages"`
	TraceID  string         `json:"trace_id"`
	Meta     ResponseMeta   `json:"meta"`
}
