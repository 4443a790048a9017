package compute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// RequiredParams is the per-category required field set. The dispatcher uses
// it to reject incomplete calculational requests before a backend call is
// issued; the engine re-checks it defensively.
func RequiredParams() map[string][]string {
	return map[string][]string{
		"monthly_payment":     {"loan_amount", "rate", "term_months"},
		"repayment_schedule":  {"principal", "interest_rate", "months"},
		"ltv":                 {"collateral_value", "loan_amount"},
		"dti":                 {"annual_income", "total_debt_payment"},
		"dsr":                 {"annual_income", "annual_debt_service"},
		"payment_sensitivity": {"principal", "interest_rates", "months"},
	}
}

// ValidateParams checks that every required field for the category is
// present. Missing fields are reported in a stable order.
func ValidateParams(category string, params map[string]any) error {
	required, ok := RequiredParams()[category]
	if !ok {
		return fmt.Errorf("%w: unsupported calculation category %q", contractx.ErrInvalidRequest, category)
	}
	var missing []string
	for _, field := range required {
		if _, present := params[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: category %q requires %v", contractx.ErrMissingParameter, category, missing)
	}
	return nil
}

// Engine is the production Compute backend.
type Engine struct{}

var _ contractx.Compute = (*Engine)(nil)

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Run(ctx context.Context, category string, params map[string]any, userID string) (contractx.CapabilityResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.CapabilityResult{}, err
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := ValidateParams(category, params); err != nil {
		return contractx.CapabilityResult{}, err
	}

	values, explanation, err := e.calculate(category, params)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return contractx.CapabilityResult{}, fmt.Errorf("%w: %v", contractx.ErrInvalidRequest, err)
		}
		return contractx.CapabilityResult{}, err
	}

	return contractx.CapabilityResult{
		Intent:   contractx.IntentCalculational,
		Category: category,
		Mock:     false,
		Calculational: &contractx.CalculationalResult{
			Values:      values,
			Explanation: explanation,
			Params:      params,
		},
	}, nil
}

func (e *Engine) calculate(category string, params map[string]any) (map[string]any, string, error) {
	switch category {
	case "monthly_payment":
		principal, err := floatParam(params, "loan_amount")
		if err != nil {
			return nil, "", err
		}
		// rate arrives as an annual percentage, e.g. 5.5.
		rate, err := floatParam(params, "rate")
		if err != nil {
			return nil, "", err
		}
		months, err := intParam(params, "term_months")
		if err != nil {
			return nil, "", err
		}
		payment, err := MonthlyPayment(principal, rate/100, months)
		if err != nil {
			return nil, "", err
		}
		total := payment * float64(months)
		return map[string]any{
			"monthly_payment": payment,
			"total_payment":   total,
			"total_interest":  total - principal,
			"currency":        "KRW",
		}, "대출 원금과 금리를 기준으로 산출한 월 상환 금액입니다.", nil

	case "repayment_schedule":
		principal, err := floatParam(params, "principal")
		if err != nil {
			return nil, "", err
		}
		rate, err := floatParam(params, "interest_rate")
		if err != nil {
			return nil, "", err
		}
		months, err := intParam(params, "months")
		if err != nil {
			return nil, "", err
		}
		schedule, err := AmortizationSchedule(principal, rate, months)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{
			"schedule": schedule,
			"periods":  len(schedule),
			"currency": "KRW",
		}, "원리금균등 기준의 상환 스케줄입니다.", nil

	case "ltv":
		collateral, err := floatParam(params, "collateral_value")
		if err != nil {
			return nil, "", err
		}
		loan, err := floatParam(params, "loan_amount")
		if err != nil {
			return nil, "", err
		}
		ratio, err := LTV(collateral, loan)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{"ltv": ratio}, "담보 가치 대비 대출 비율(LTV)입니다.", nil

	case "dti":
		income, err := floatParam(params, "annual_income")
		if err != nil {
			return nil, "", err
		}
		debt, err := floatParam(params, "total_debt_payment")
		if err != nil {
			return nil, "", err
		}
		ratio, err := DTI(income, debt)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{"dti": ratio}, "연소득 대비 총부채상환비율(DTI)입니다.", nil

	case "dsr":
		income, err := floatParam(params, "annual_income")
		if err != nil {
			return nil, "", err
		}
		service, err := floatParam(params, "annual_debt_service")
		if err != nil {
			return nil, "", err
		}
		ratio, err := DSR(income, service)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{"dsr": ratio}, "연소득 대비 원리금상환비율(DSR)입니다.", nil

	case "payment_sensitivity":
		principal, err := floatParam(params, "principal")
		if err != nil {
			return nil, "", err
		}
		rates, err := floatSliceParam(params, "interest_rates")
		if err != nil {
			return nil, "", err
		}
		months, err := intParam(params, "months")
		if err != nil {
			return nil, "", err
		}
		rows, err := PaymentSensitivity(principal, rates, months)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{
			"sensitivity": rows,
			"currency":    "KRW",
		}, "금리 구간별 월 상환액 민감도 분석입니다.", nil

	default:
		return nil, "", fmt.Errorf("%w: unsupported calculation category %q", contractx.ErrInvalidRequest, category)
	}
}

func floatParam(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", contractx.ErrMissingParameter, key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric", ErrInvalidInput, key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s must be numeric, got %T", ErrInvalidInput, key, raw)
	}
}

func intParam(params map[string]any, key string) (int, error) {
	f, err := floatParam(params, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func floatSliceParam(params map[string]any, key string) ([]float64, error) {
	raw, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrMissingParameter, key)
	}
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain numbers", ErrInvalidInput, key)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a number array, got %T", ErrInvalidInput, key, raw)
	}
}
