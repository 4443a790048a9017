package compute

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

func TestValidateParams(t *testing.T) {
	t.Parallel()

	err := ValidateParams("monthly_payment", map[string]any{"loan_amount": 1.0})
	if !errors.Is(err, contractx.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	// Missing fields are reported sorted, for stable messages.
	if !strings.Contains(err.Error(), "[rate term_months]") {
		t.Fatalf("unexpected error message: %v", err)
	}

	if err := ValidateParams("ltv", map[string]any{
		"collateral_value": 1.0,
		"loan_amount":      1.0,
	}); err != nil {
		t.Fatalf("ValidateParams() error = %v", err)
	}

	if err := ValidateParams("weather", map[string]any{}); !errors.Is(err, contractx.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown category, got %v", err)
	}
}

func TestEngineMonthlyPayment(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	res, err := engine.Run(context.Background(), "monthly_payment", map[string]any{
		"loan_amount": 300_000_000.0,
		"rate":        4.0,
		"term_months": 360.0,
	}, "user-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Intent != contractx.IntentCalculational {
		t.Fatalf("unexpected intent: %s", res.Intent)
	}
	if res.Mock {
		t.Fatal("engine results must not be flagged as mock")
	}
	if res.Calculational == nil {
		t.Fatal("expected calculational payload")
	}

	payment, ok := res.Calculational.Values["monthly_payment"].(float64)
	if !ok {
		t.Fatalf("monthly_payment missing or wrong type: %v", res.Calculational.Values)
	}
	if payment < 1_400_000 || payment > 1_460_000 {
		t.Fatalf("payment out of expected range: %v", payment)
	}
	if res.Calculational.Values["currency"] != "KRW" {
		t.Fatalf("unexpected currency: %v", res.Calculational.Values["currency"])
	}
	if res.Calculational.Explanation == "" {
		t.Fatal("expected a non-empty explanation")
	}
}

func TestEngineLTV(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	res, err := engine.Run(context.Background(), "ltv", map[string]any{
		"collateral_value": 500_000_000.0,
		"loan_amount":      300_000_000.0,
	}, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.Calculational.Values["ltv"]; got != 0.6 {
		t.Fatalf("unexpected ltv: %v", got)
	}
}

func TestEngineRepaymentSchedule(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	res, err := engine.Run(context.Background(), "repayment_schedule", map[string]any{
		"principal":     100_000_000.0,
		"interest_rate": 0.05,
		"months":        12.0,
	}, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.Calculational.Values["periods"]; got != 12 {
		t.Fatalf("unexpected period count: %v", got)
	}
	schedule, ok := res.Calculational.Values["schedule"].([]ScheduleEntry)
	if !ok {
		t.Fatalf("schedule missing or wrong type: %T", res.Calculational.Values["schedule"])
	}
	if schedule[len(schedule)-1].Balance != 0 {
		t.Fatalf("final balance must be zero, got %v", schedule[len(schedule)-1].Balance)
	}
}

func TestEnginePaymentSensitivity(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	res, err := engine.Run(context.Background(), "payment_sensitivity", map[string]any{
		"principal":      100_000_000.0,
		"interest_rates": []any{0.03, 0.04, 0.05},
		"months":         360.0,
	}, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	rows, ok := res.Calculational.Values["sensitivity"].([]SensitivityRow)
	if !ok {
		t.Fatalf("sensitivity missing or wrong type: %T", res.Calculational.Values["sensitivity"])
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestEngineMissingParams(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	_, err := engine.Run(context.Background(), "dti", map[string]any{
		"annual_income": 60_000_000.0,
	}, "")
	if !errors.Is(err, contractx.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
}

func TestEngineInvalidDomainInputIsClientError(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	_, err := engine.Run(context.Background(), "ltv", map[string]any{
		"collateral_value": 0.0,
		"loan_amount":      100.0,
	}, "")
	if !errors.Is(err, contractx.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestEngineNonNumericParam(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	_, err := engine.Run(context.Background(), "ltv", map[string]any{
		"collateral_value": "a lot",
		"loan_amount":      100.0,
	}, "")
	if !errors.Is(err, contractx.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine()
	_, err := engine.Run(ctx, "ltv", map[string]any{
		"collateral_value": 1.0,
		"loan_amount":      1.0,
	}, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockCompute(t *testing.T) {
	t.Parallel()

	res, err := NewMock().Run(context.Background(), "", nil, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Mock {
		t.Fatal("mock backend must flag its result")
	}
	if res.Category != "general" {
		t.Fatalf("unexpected category: %s", res.Category)
	}
	if got := res.Calculational.Values["result"]; got != 32_500_000 {
		t.Fatalf("unexpected canned result: %v", got)
	}
	if got := res.Calculational.Values["currency"]; got != "KRW" {
		t.Fatalf("unexpected currency: %v", got)
	}
}
