package usecases

import (
	"strconv"

	"magnify-lend.backend/internal/infrastructure/blockchain"
)

// ComputeLoanInterest computes the interest rate offered for a requested
// amount and duration inside a lending desk's configured bounds, as a
// percentage (12.5 means 12.5%).
//
// The rate interpolates linearly over the amount and duration ranges,
// averaging both factors with equal weight when both ranges are non-zero.
// Inputs outside the desk bounds are intentionally not clamped, so the
// result may extrapolate outside [minInterest, maxInterest]. Callers that
// submit the rate on-chain multiply by 100 and round to the nearest
// integer themselves.
//
// amountInput is a human-readable decimal string (defaults to the desk's
// minimum amount); durationDaysInput is in days (defaults to the desk's
// minimum duration, which is already in hours).
func ComputeLoanInterest(cfg *blockchain.LoanDeskConfig, amountInput, durationDaysInput string, decimals int) float64 {
	if cfg == nil || cfg.MinAmount == nil || cfg.MaxAmount == nil {
		return 0
	}

	minAmount := parseFloat(FromWei(cfg.MinAmount, decimals), 0)
	maxAmount := parseFloat(FromWei(cfg.MaxAmount, decimals), 0)
	minDuration := float64(cfg.MinDuration)
	maxDuration := float64(cfg.MaxDuration)
	minInterest := float64(cfg.MinInterest)
	maxInterest := float64(cfg.MaxInterest)

	amount := parseFloat(amountInput, minAmount)
	duration := minDuration
	if durationDaysInput != "" {
		duration = parseFloat(durationDaysInput, minDuration/24) * 24
	}
	interestRange := maxInterest - minInterest

	var interest float64
	switch {
	case minInterest == maxInterest,
		maxAmount == minAmount && maxDuration == minDuration:
		interest = minInterest
	case minDuration == maxDuration:
		amountFactor := (amount - minAmount) / (maxAmount - minAmount)
		interest = minInterest + amountFactor*interestRange
	case minAmount == maxAmount:
		durationFactor := (duration - minDuration) / (maxDuration - minDuration)
		interest = minInterest + durationFactor*interestRange
	default:
		amountFactor := (amount - minAmount) / (maxAmount - minAmount)
		durationFactor := (duration - minDuration) / (maxDuration - minDuration)

		// Equal weight to both factors.
		factor := (amountFactor + durationFactor) / 2
		interest = minInterest + factor*interestRange
	}

	// Desk bounds are integer-percentage-like units; convert to a fraction.
	return interest / 100
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
