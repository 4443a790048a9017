package compute

import (
	"fmt"
	"strings"
)

// Policy captures per-region, per-product lending rules.
type Policy struct {
	LTVLimit float64 `json:"ltv_limit"`
	DTILimit float64 `json:"dti_limit"`
	DSRLimit float64 `json:"dsr_limit"`
	MaxTerm  int     `json:"max_term_months"`
	Currency string  `json:"currency"`
}

const defaultProduct = "default"

var policyTable = map[string]map[string]Policy{
	"KR": {
		"mortgage": {
			LTVLimit: 0.7,
			DTILimit: 0.4,
			DSRLimit: 0.4,
			MaxTerm:  480,
			Currency: "KRW",
		},
		"jeonse": {
			LTVLimit: 0.8,
			DTILimit: 0.4,
			DSRLimit: 0.4,
			MaxTerm:  120,
			Currency: "KRW",
		},
		defaultProduct: {
			LTVLimit: 0.7,
			DTILimit: 0.4,
			DSRLimit: 0.4,
			MaxTerm:  360,
			Currency: "KRW",
		},
	},
}

// GetPolicy resolves the lending policy for a region/product pair. Unknown
// products fall back to the region default; unknown regions are rejected.
// The returned value is a copy, safe for callers to mutate.
func GetPolicy(region, productType string) (Policy, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	productType = strings.ToLower(strings.TrimSpace(productType))
	if region == "" {
		return Policy{}, fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	if productType == "" {
		return Policy{}, fmt.Errorf("%w: product type is required", ErrInvalidInput)
	}

	products, ok := policyTable[region]
	if !ok {
		return Policy{}, fmt.Errorf("%w: unsupported region %q", ErrInvalidInput, region)
	}
	if policy, ok := products[productType]; ok {
		return policy, nil
	}
	return products[defaultProduct], nil
}
