package classify

import (
	"errors"
	"testing"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

func TestClassifyExplicitIntent(t *testing.T) {
	t.Parallel()

	c := New(Config{})

	intent, err := c.Classify(contractx.ChatRequest{
		Message: "전세자금대출 한도",
		Intent:  "informational",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if intent != contractx.IntentInformational {
		t.Fatalf("expected informational, got %s", intent)
	}
}

func TestClassifyExplicitIntentUnrecognized(t *testing.T) {
	t.Parallel()

	c := New(Config{})

	_, err := c.Classify(contractx.ChatRequest{
		Message: "hello",
		Intent:  "transactional",
	})
	if !errors.Is(err, contractx.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestClassifyIntentCategoryMismatch(t *testing.T) {
	t.Parallel()

	c := New(Config{})

	_, err := c.Classify(contractx.ChatRequest{
		Message:  "월 상환액 계산해줘",
		Intent:   "informational",
		Category: "monthly_payment",
	})
	if !errors.Is(err, contractx.ErrIntentCategoryMismatch) {
		t.Fatalf("expected ErrIntentCategoryMismatch, got %v", err)
	}
}

func TestClassifyExplicitIntentUnknownCategoryPasses(t *testing.T) {
	t.Parallel()

	c := New(Config{})

	intent, err := c.Classify(contractx.ChatRequest{
		Message:  "hello",
		Intent:   "calculational",
		Category: "brand_new_category",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if intent != contractx.IntentCalculational {
		t.Fatalf("expected calculational, got %s", intent)
	}
}

func TestClassifyByCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     contractx.Intent
	}{
		{"loan_limit", contractx.IntentInformational},
		{"interest_rate", contractx.IntentInformational},
		{"eligibility", contractx.IntentInformational},
		{"general", contractx.IntentInformational},
		{"monthly_payment", contractx.IntentCalculational},
		{"repayment_schedule", contractx.IntentCalculational},
		{"ltv", contractx.IntentCalculational},
		{"dti", contractx.IntentCalculational},
		{"dsr", contractx.IntentCalculational},
		{"payment_sensitivity", contractx.IntentCalculational},
	}

	c := New(Config{})
	for _, tt := range tests {
		intent, err := c.Classify(contractx.ChatRequest{
			Message:  "질문입니다",
			Category: tt.category,
		})
		if err != nil {
			t.Fatalf("Classify(%s) error = %v", tt.category, err)
		}
		if intent != tt.want {
			t.Fatalf("Classify(%s) = %s, want %s", tt.category, intent, tt.want)
		}
	}
}

func TestClassifyByMessageHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    contractx.Intent
	}{
		{"5억 대출 받으면 월 상환액 얼마야?", contractx.IntentCalculational},
		{"LTV 계산해줘", contractx.IntentCalculational},
		{"전세자금대출 한도가 궁금해요", contractx.IntentInformational},
		{"금리 조건 알려줘", contractx.IntentInformational},
	}

	c := New(Config{})
	for _, tt := range tests {
		intent, err := c.Classify(contractx.ChatRequest{Message: tt.message})
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tt.message, err)
		}
		if intent != tt.want {
			t.Fatalf("Classify(%q) = %s, want %s", tt.message, intent, tt.want)
		}
	}
}

// Calculational keywords win when both lexicons match: asking "how much" about
// a loan is a calculation request.
func TestClassifyCalculationalPrecedence(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	intent, err := c.Classify(contractx.ChatRequest{Message: "대출 월 납입 금액이 얼마인가요"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if intent != contractx.IntentCalculational {
		t.Fatalf("expected calculational, got %s", intent)
	}
}

func TestClassifyUnclassifiable(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	_, err := c.Classify(contractx.ChatRequest{Message: "오늘 날씨 좋네요"})
	if !errors.Is(err, contractx.ErrUnclassifiableIntent) {
		t.Fatalf("expected ErrUnclassifiableIntent, got %v", err)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	req := contractx.ChatRequest{Message: "전세자금대출 한도"}

	first, err := c.Classify(req)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := c.Classify(req)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if again != first {
			t.Fatalf("classification changed between calls: %s vs %s", first, again)
		}
	}
}
