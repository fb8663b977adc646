package checkout

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
)

// AmountValidationInput describes the data required to validate a charge amount.
type AmountValidationInput struct {
	Amount   int64
	Currency string
	MaxMinor int64
}

// AmountViolationDetail exposes the data returned to callers when validation fails.
type AmountViolationDetail struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
	MaxMinor int64  `json:"max_minor,omitempty"`
	Reason   string `json:"reason"`
}

var supportedCurrencies = map[string]struct{}{
	"usd": {},
	"cad": {},
	"eur": {},
	"gbp": {},
	"aud": {},
}

// ValidateAmount enforces positive integral minor-unit amounts below the
// configured ceiling, with a supported currency.
func ValidateAmount(input AmountValidationInput) error {
	var violations []AmountViolationDetail

	if input.Amount <= 0 {
		violations = append(violations, AmountViolationDetail{
			Amount: input.Amount,
			Reason: "amount must be a positive number of minor units",
		})
	}
	if input.MaxMinor > 0 && input.Amount > input.MaxMinor {
		violations = append(violations, AmountViolationDetail{
			Amount:   input.Amount,
			MaxMinor: input.MaxMinor,
			Reason:   fmt.Sprintf("amount exceeds the maximum of %d minor units", input.MaxMinor),
		})
	}

	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency != "" {
		if _, ok := supportedCurrencies[currency]; !ok {
			violations = append(violations, AmountViolationDetail{
				Amount:   input.Amount,
				Currency: currency,
				Reason:   fmt.Sprintf("currency %q is not supported", currency),
			})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "amount validation failed").
		WithDetails(map[string]any{"violations": violations})
}

// NormalizeCurrency lowercases and trims a currency code, falling back to the
// provided default when empty.
func NormalizeCurrency(currency, fallback string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return strings.ToLower(strings.TrimSpace(fallback))
	}
	return c
}
