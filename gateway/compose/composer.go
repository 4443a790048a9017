// Package compose normalizes a capability result into the uniform response
// envelope. The assistant message is a deterministic template per intent; no
// model is re-invoked here.
package compose

import (
	"fmt"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

const (
	informationalSummary = "정보형 답변을 생성했습니다."
	calculationalSummary = "계산형 답변을 생성했습니다."
)

type Composer struct {
	now func() time.Time
}

func New() *Composer {
	return &Composer{now: time.Now}
}

// WithClock overrides the composition clock. Test hook.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	if now != nil {
		c.now = now
	}
	return c
}

// Compose builds the response envelope. The capability payload passes through
// unchanged in content, re-keyed under the intent tag; the mock flag comes
// from the backend result, never from here.
func (c *Composer) Compose(intent contractx.Intent, result contractx.CapabilityResult, traceID string) (contractx.ChatResponse, error) {
	payload, summary, err := payloadFor(intent, result)
	if err != nil {
		return contractx.ChatResponse{}, err
	}

	return contractx.ChatResponse{
		Result: contractx.ResultEnvelope{
			Intent:   intent,
			Category: result.Category,
			Payload:  payload,
		},
		Messages: []contractx.ChatMessage{
			{Role: "assistant", Content: summary},
		},
		TraceID: traceID,
		Meta: contractx.ResponseMeta{
			GeneratedAt: c.now().UTC(),
			Mock:        result.Mock,
		},
	}, nil
}

func payloadFor(intent contractx.Intent, result contractx.CapabilityResult) (map[string]any, string, error) {
	switch intent {
	case contractx.IntentInformational:
		info := result.Informational
		if info == nil {
			return nil, "", fmt.Errorf("capability result has no informational payload")
		}
		sources := info.Sources
		if sources == nil {
			// Outbound contract: sources is always an array, never absent.
			sources = []string{}
		}
		payload := map[string]any{
			"answer":  info.Answer,
			"query":   info.Query,
			"sources": sources,
		}
		if len(info.Documents) > 0 {
			payload["documents"] = info.Documents
		}
		if len(info.WebResults) > 0 {
			payload["web_results"] = info.WebResults
		}
		return payload, informationalSummary, nil

	case contractx.IntentCalculational:
		calc := result.Calculational
		if calc == nil {
			return nil, "", fmt.Errorf("capability result has no calculational payload")
		}
		payload := make(map[string]any, len(calc.Values)+2)
		for k, v := range calc.Values {
			payload[k] = v
		}
		if calc.Explanation != "" {
			payload["explanation"] = calc.Explanation
		}
		if calc.Params != nil {
			payload["params"] = calc.Params
		}
		return payload, calculationalSummary, nil

	default:
		return nil, "", fmt.Errorf("no composition rule for intent %q", intent)
	}
}
