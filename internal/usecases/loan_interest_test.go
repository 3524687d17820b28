package usecases

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"magnify-lend.backend/internal/infrastructure/blockchain"
)

func testDeskConfig() *blockchain.LoanDeskConfig {
	return &blockchain.LoanDeskConfig{
		MinAmount:   big.NewInt(5_000_000),
		MaxAmount:   big.NewInt(15_000_000),
		MinInterest: 1000,
		MaxInterest: 1500,
		MinDuration: 168,
		MaxDuration: 1440,
	}
}

func TestComputeLoanInterest(t *testing.T) {
	// $10 over 14 days: amount factor 0.5, duration factor 168/1272,
	// averaged and scaled into [10%, 15%]
	rate := ComputeLoanInterest(testDeskConfig(), "10", "14", 6)
	require.InDelta(t, 11.5802, rate, 0.0001)
}

func TestComputeLoanInterestBounds(t *testing.T) {
	rate := ComputeLoanInterest(testDeskConfig(), "5", "7", 6)
	require.InDelta(t, 10.0, rate, 1e-9)

	rate = ComputeLoanInterest(testDeskConfig(), "15", "60", 6)
	require.InDelta(t, 15.0, rate, 1e-9)
}

func TestComputeLoanInterestNotClamped(t *testing.T) {
	// requests outside the desk bounds extrapolate rather than clamp
	rate := ComputeLoanInterest(testDeskConfig(), "25", "60", 6)
	require.Greater(t, rate, 15.0)

	rate = ComputeLoanInterest(testDeskConfig(), "0", "7", 6)
	require.Less(t, rate, 10.0)
}

func TestComputeLoanInterestDefaults(t *testing.T) {
	// empty inputs fall back to the desk minimums
	rate := ComputeLoanInterest(testDeskConfig(), "", "", 6)
	require.InDelta(t, 10.0, rate, 1e-9)
}

func TestComputeLoanInterestDegenerateRanges(t *testing.T) {
	cfg := testDeskConfig()
	cfg.MinInterest = 1200
	cfg.MaxInterest = 1200
	require.InDelta(t, 12.0, ComputeLoanInterest(cfg, "10", "14", 6), 1e-9)

	cfg = testDeskConfig()
	cfg.MinAmount = big.NewInt(10_000_000)
	cfg.MaxAmount = big.NewInt(10_000_000)
	// only the duration factor contributes
	rate := ComputeLoanInterest(cfg, "10", "14", 6)
	require.InDelta(t, 10.0+168.0/1272.0*5.0, rate, 1e-9)

	cfg = testDeskConfig()
	cfg.MinDuration = 336
	cfg.MaxDuration = 336
	// only the amount factor contributes
	rate = ComputeLoanInterest(cfg, "10", "14", 6)
	require.InDelta(t, 12.5, rate, 1e-9)

	cfg = testDeskConfig()
	cfg.MinAmount = big.NewInt(10_000_000)
	cfg.MaxAmount = big.NewInt(10_000_000)
	cfg.MinDuration = 336
	cfg.MaxDuration = 336
	require.InDelta(t, 10.0, ComputeLoanInterest(cfg, "10", "14", 6), 1e-9)
}

func TestComputeLoanInterestNilConfig(t *testing.T) {
	require.Zero(t, ComputeLoanInterest(nil, "10", "14", 6))
	require.Zero(t, ComputeLoanInterest(&blockchain.LoanDeskConfig{}, "10", "14", 6))
}
