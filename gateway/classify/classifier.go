// Package classify maps a raw chat request to one of the two supported
// intents. Classification is a pure function of the request plus static
// configuration: a category table and keyword lexicons.
package classify

import (
	"fmt"
	"strings"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// Config holds the static classification tables. Zero values fall back to the
// defaults below.
type Config struct {
	// CategoryIntents maps each known category to exactly one intent.
	CategoryIntents map[string]contractx.Intent
	// CalculationalKeywords / InformationalKeywords drive the message
	// heuristics used only when neither intent nor category is supplied.
	CalculationalKeywords []string
	InformationalKeywords []string
}

// DefaultCategoryIntents is the fixed category→intent table. loan_limit is an
// informational topic (the limit question is answered from guideline
// documents); the calculational categories correspond to compute engine
// operations.
func DefaultCategoryIntents() map[string]contractx.Intent {
	return map[string]contractx.Intent{
		"loan_limit":          contractx.IntentInformational,
		"interest_rate":       contractx.IntentInformational,
		"eligibility":         contractx.IntentInformational,
		"general":             contractx.IntentInformational,
		"monthly_payment":     contractx.IntentCalculational,
		"repayment_schedule":  contractx.IntentCalculational,
		"ltv":                 contractx.IntentCalculational,
		"dti":                 contractx.IntentCalculational,
		"dsr":                 contractx.IntentCalculational,
		"payment_sensitivity": contractx.IntentCalculational,
	}
}

func defaultCalculationalKeywords() []string {
	return []string{"얼마", "계산", "상환액", "월 납입", "LTV", "DTI", "DSR", "calculate", "repayment"}
}

func defaultInformationalKeywords() []string {
	return []string{"한도", "금리", "조건", "가능", "자격", "서류", "대출", "what", "how", "limit", "rate"}
}

type Classifier struct {
	table     map[string]contractx.Intent
	calcWords []string
	infoWords []string
}

var _ contractx.Classifier = (*Classifier)(nil)

func New(cfg Config) *Classifier {
	table := cfg.CategoryIntents
	if len(table) == 0 {
		table = DefaultCategoryIntents()
	}
	calcWords := cfg.CalculationalKeywords
	if len(calcWords) == 0 {
		calcWords = defaultCalculationalKeywords()
	}
	infoWords := cfg.InformationalKeywords
	if len(infoWords) == 0 {
		infoWords = defaultInformationalKeywords()
	}
	return &Classifier{
		table:     table,
		calcWords: calcWords,
		infoWords: infoWords,
	}
}

// Classify resolves the request intent. Precedence: explicit intent (checked
// against the category table), then category lookup, then message heuristics.
func (c *Classifier) Classify(req contractx.ChatRequest) (contractx.Intent, error) {
	category := strings.TrimSpace(req.Category)

	if raw := strings.TrimSpace(req.Intent); raw != "" {
		intent, ok := contractx.ParseIntent(raw)
		if !ok {
			return "", fmt.Errorf("%w: unrecognized intent %q", contractx.ErrInvalidRequest, raw)
		}
		if category != "" {
			expected, known := c.table[category]
			if known && expected != intent {
				return "", fmt.Errorf("%w: category %q belongs to intent %q",
					contractx.ErrIntentCategoryMismatch, category, expected)
			}
		}
		return intent, nil
	}

	if category != "" {
		if intent, ok := c.table[category]; ok {
			return intent, nil
		}
	}

	return c.classifyMessage(req.Message)
}

func (c *Classifier) classifyMessage(message string) (contractx.Intent, error) {
	text := strings.ToLower(message)
	for _, kw := range c.calcWords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return contractx.IntentCalculational, nil
		}
	}
	for _, kw := range c.infoWords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return contractx.IntentInformational, nil
		}
	}
	return "", fmt.Errorf("%w: no classification rule matched", contractx.ErrUnclassifiableIntent)
}
