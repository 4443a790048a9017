package retriever

import (
	"context"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// Mock is the stub Retrieval backend: a canned answer with fixed sources,
// flagged as mock so the provenance survives into the response envelope.
type Mock struct{}

var _ contractx.Retrieval = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Run(ctx context.Context, category, query, userID string) (contractx.CapabilityResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.CapabilityResult{}, err
	}
	if category == "" {
		category = "general"
	}
	return contractx.CapabilityResult{
		Intent:   contractx.IntentInformational,
		Category: category,
		Mock:     true,
		Informational: &contractx.InformationalResult{
			Answer: "대출 한도는 소득과 신용등급에 따라 달라집니다.",
			Query:  query,
			Sources: []string{
				"https://example.com/loan-guidelines",
				"https://example.com/credit-score",
			},
		},
	}, nil
}
