package compute

import (
	"context"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// Mock is the stub Compute backend used before the engine is wired in (and in
// tests). It returns a canned loan-limit estimate and flags itself as a mock.
type Mock struct{}

var _ contractx.Compute = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Run(ctx context.Context, category string, params map[string]any, userID string) (contractx.CapabilityResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.CapabilityResult{}, err
	}
	if params == nil {
		params = map[string]any{}
	}
	if category == "" {
		category = "general"
	}
	return contractx.CapabilityResult{
		Intent:   contractx.IntentCalculational,
		Category: category,
		Mock:     true,
		Calculational: &contractx.CalculationalResult{
			Values: map[string]any{
				"result":   32_500_000,
				"currency": "KRW",
			},
			Explanation: "월 상환 가능액과 금리를 기준으로 산출한 예상 대출 한도입니다.",
			Params:      params,
		},
	}, nil
}
