// Package moneyloss estimates the financial impact of findings. Two
// estimators (a regression model and a generative one) feed a hybrid
// engine that blends or degrades between them; the engine never fails.
package moneyloss

// Estimate is one estimator's output for a finding.
type Estimate struct {
	EstimatedLoss     float64
	Confidence        float64
	Reasoning         string
	FactorsConsidered []string
	Breakdown         map[string]float64
}
