// Package compute implements the deterministic financial calculations behind
// the calculational intent: ratio checks (LTV/DTI/DSR), amortization
// schedules and payment sensitivity analysis.
package compute

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidInput = errors.New("invalid calculation input")

// LTV returns the loan-to-value ratio.
func LTV(collateralValue, loanAmount float64) (float64, error) {
	if collateralValue <= 0 {
		return 0, fmt.Errorf("%w: collateral_value must be > 0", ErrInvalidInput)
	}
	if loanAmount < 0 {
		return 0, fmt.Errorf("%w: loan_amount must be >= 0", ErrInvalidInput)
	}
	return loanAmount / collateralValue, nil
}

// DTI returns the debt-to-income ratio.
func DTI(annualIncome, totalDebtPayment float64) (float64, error) {
	if annualIncome <= 0 {
		return 0, fmt.Errorf("%w: annual_income must be > 0", ErrInvalidInput)
	}
	if totalDebtPayment < 0 {
		return 0, fmt.Errorf("%w: total_debt_payment must be >= 0", ErrInvalidInput)
	}
	return totalDebtPayment / annualIncome, nil
}

// DSR returns the debt-service ratio.
func DSR(annualIncome, annualDebtService float64) (float64, error) {
	if annualIncome <= 0 {
		return 0, fmt.Errorf("%w: annual_income must be > 0", ErrInvalidInput)
	}
	if annualDebtService < 0 {
		return 0, fmt.Errorf("%w: annual_debt_service must be >= 0", ErrInvalidInput)
	}
	return annualDebtService / annualIncome, nil
}

// MonthlyPayment returns the level payment for a fully amortizing loan.
// interestRate is the annual rate as a decimal (0.04 == 4%).
func MonthlyPayment(principal, interestRate float64, months int) (float64, error) {
	if principal <= 0 {
		return 0, fmt.Errorf("%w: principal must be > 0", ErrInvalidInput)
	}
	if interestRate < 0 {
		return 0, fmt.Errorf("%w: interest_rate must be >= 0", ErrInvalidInput)
	}
	if months <= 0 {
		return 0, fmt.Errorf("%w: months must be > 0", ErrInvalidInput)
	}
	monthlyRate := interestRate / 12
	if monthlyRate == 0 {
		return principal / float64(months), nil
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	return principal * monthlyRate * factor / (factor - 1), nil
}

// ScheduleEntry is one period of an amortization schedule.
type ScheduleEntry struct {
	Period    int     `json:"period"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// AmortizationSchedule produces the full period-by-period repayment table.
// The last entry's balance is forced to exactly zero to absorb rounding
// drift.
func AmortizationSchedule(principal, interestRate float64, months int) ([]ScheduleEntry, error) {
	payment, err := MonthlyPayment(principal, interestRate, months)
	if err != nil {
		return nil, err
	}

	monthlyRate := interestRate / 12
	balance := principal
	schedule := make([]ScheduleEntry, 0, months)
	for period := 1; period <= months; period++ {
		interest := balance * monthlyRate
		principalPart := payment - interest
		if period == months {
			principalPart = balance
			payment = principalPart + interest
		}
		balance -= principalPart
		if balance < 0 {
			balance = 0
		}
		schedule = append(schedule, ScheduleEntry{
			Period:    period,
			Payment:   payment,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return schedule, nil
}

// SensitivityRow reports the payment profile for one candidate rate.
type SensitivityRow struct {
	InterestRate   float64 `json:"interest_rate"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
}

// PaymentSensitivity evaluates the monthly payment across the supplied rates.
func PaymentSensitivity(principal float64, interestRates []float64, months int) ([]SensitivityRow, error) {
	if len(interestRates) == 0 {
		return nil, fmt.Errorf("%w: at least one interest rate is required", ErrInvalidInput)
	}
	rows := make([]SensitivityRow, 0, len(interestRates))
	for _, rate := range interestRates {
		payment, err := MonthlyPayment(principal, rate, months)
		if err != nil {
			return nil, err
		}
		total := payment * float64(months)
		rows = append(rows, SensitivityRow{
			InterestRate:   rate,
			MonthlyPayment: payment,
			TotalPayment:   total,
			TotalInterest:  total - principal,
		})
	}
	return rows, nil
}
