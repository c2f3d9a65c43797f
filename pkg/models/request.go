package models

import (
	"fmt"
	"strings"
)

const (
	BenchmarkEqualWeight = "equal_weight"
	BenchmarkCustom      = "custom"
)

// CompareRequest describes one walk-forward comparison run across the
// optimizer's methods (HRP, GMV, MVO). The gateway treats it as an opaque
// payload beyond validation; windows are in trading days, weights are
// fractions, transaction cost is in basis points.
type CompareRequest struct {
	Tickers                 []string `json:"tickers"`
	StartDate               string   `json:"start_date,omitempty"`
	EndDate                 string   `json:"end_date,omitempty"`
	TrainingWindow          int      `json:"training_window"`
	RebalancingWindow       int      `json:"rebalancing_window"`
	TransactionCostBps      float64  `json:"transaction_cost_bps"`
	MinWeight               float64  `json:"min_weight"`
	MaxWeight               float64  `json:"max_weight"`
	BenchmarkType           string   `json:"benchmark_type"`
	BenchmarkTicker         string   `json:"benchmark_ticker,omitempty"`
	EnableVolatilityScaling bool     `json:"enable_volatility_scaling"`
	TargetVolatility        float64  `json:"target_volatility"`
}

// ApplyDefaults fills zero-valued fields with the optimizer's documented
// defaults. Call before Validate when the request comes from a form or CLI
// that omits untouched fields.
func (r *CompareRequest) ApplyDefaults() {
	if r.TrainingWindow == 0 {
		r.TrainingWindow = 252
	}
	if r.RebalancingWindow == 0 {
		r.RebalancingWindow = 21
	}
	if r.TransactionCostBps == 0 {
		r.TransactionCostBps = 10
	}
	if r.MaxWeight == 0 {
		r.MaxWeight = 1.0
	}
	if r.BenchmarkType == "" {
		r.BenchmarkType = BenchmarkEqualWeight
	}
	if r.TargetVolatility == 0 {
		r.TargetVolatility = 0.12
	}
}

// Validate checks the request against the optimizer's accepted ranges.
func (r CompareRequest) Validate() error {
	if len(r.Tickers) < 2 {
		return fmt.Errorf("at least 2 tickers required, got %d", len(r.Tickers))
	}
	for _, t := range r.Tickers {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("tickers must not be blank")
		}
	}
	if r.TrainingWindow < 60 || r.TrainingWindow > 1260 {
		return fmt.Errorf("training_window must be between 60 and 1260 trading days, got %d", r.TrainingWindow)
	}
	if r.RebalancingWindow < 5 || r.RebalancingWindow > 126 {
		return fmt.Errorf("rebalancing_window must be between 5 and 126 trading days, got %d", r.RebalancingWindow)
	}
	if r.TransactionCostBps < 0 || r.TransactionCostBps > 100 {
		return fmt.Errorf("transaction_cost_bps must be between 0 and 100, got %g", r.TransactionCostBps)
	}
	if r.MinWeight < 0 || r.MinWeight > 0.5 {
		return fmt.Errorf("min_weight must be between 0 and 0.5, got %g", r.MinWeight)
	}
	if r.MaxWeight < 0.1 || r.MaxWeight > 1.0 {
		return fmt.Errorf("max_weight must be between 0.1 and 1.0, got %g", r.MaxWeight)
	}
	if r.MinWeight > r.MaxWeight {
		return fmt.Errorf("min_weight %g cannot exceed max_weight %g", r.MinWeight, r.MaxWeight)
	}
	switch r.BenchmarkType {
	case BenchmarkEqualWeight:
	case BenchmarkCustom:
		if strings.TrimSpace(r.BenchmarkTicker) == "" {
			return fmt.Errorf("benchmark_ticker is required when benchmark_type is %q", BenchmarkCustom)
		}
	default:
		return fmt.Errorf("benchmark_type must be %q or %q, got %q", BenchmarkEqualWeight, BenchmarkCustom, r.BenchmarkType)
	}
	if r.EnableVolatilityScaling && (r.TargetVolatility < 0.05 || r.TargetVolatility > 0.30) {
		return fmt.Errorf("target_volatility must be between 0.05 and 0.30, got %g", r.TargetVolatility)
	}
	return nil
}
