// Package fees computes the platform application fee retained on destination
// charges. Amounts are integral minor currency units throughout, so integer
// floor division matches the provider's own rounding exactly.
package fees

// Calc returns the application fee for amount given a percent in [0,100] and a
// fixed minor-unit component. Out-of-range inputs are clamped rather than
// rejected: the fee config comes from tenant records that may predate
// validation.
func Calc(amount int64, percent int, fixed int64) int64 {
	if amount <= 0 {
		return clampFixed(fixed)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return amount*int64(percent)/100 + clampFixed(fixed)
}

func clampFixed(fixed int64) int64 {
	if fixed < 0 {
		return 0
	}
	return fixed
}
