package moneyloss

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/models"
)

// Hybrid blend weights. The generative estimate carries more weight for
// its reasoning about context the feature vector cannot see.
const (
	llmWeight = 0.6
	mlWeight  = 0.4
)

// Terminal fallback when neither estimator produced a result.
const (
	fallbackLoss       = 5000.0
	fallbackConfidence = 0.2
)

// Result is the hybrid engine's output, ready to persist as a
// MoneyLossCalculation.
type Result struct {
	EstimatedLoss     float64
	Confidence        float64
	CalculationMethod string
	LLMEstimate       *float64
	MLEstimate        *float64
	Reasoning         string
	FactorsConsidered []string
	Breakdown         map[string]float64
}

// HybridEngine combines the generative and ML estimators with graceful
// degradation. Calculate always returns a usable result.
type HybridEngine struct {
	llmEstimator *LLMEstimator
	mlEstimator  *MLEstimator
	logger       *zap.Logger
}

// NewHybridEngine creates the hybrid money loss engine.
func NewHybridEngine(llmEstimator *LLMEstimator, mlEstimator *MLEstimator, logger *zap.Logger) *HybridEngine {
	return &HybridEngine{
		llmEstimator: llmEstimator,
		mlEstimator:  mlEstimator,
		logger:       logger,
	}
}

// Calculate runs the requested estimators and blends their outputs. With
// both results: weighted blend, method hybrid. With exactly one: that
// result verbatim under its own method. With none: the fixed fallback.
func (e *HybridEngine) Calculate(ctx context.Context, finding *models.Finding, issueType *models.IssueType, focusArea *models.FocusArea, additionalContext map[string]any, useLLM, useML bool) *Result {
	var llmResult, mlResult *Estimate

	if useLLM && e.llmEstimator != nil {
		est, err := e.llmEstimator.Calculate(ctx, finding, issueType, additionalContext)
		if err != nil {
			e.logger.Warn("generative estimator unavailable",
				zap.String("finding_id", finding.ID.String()),
				zap.Error(err))
		} else {
			llmResult = est
		}
	}

	if useML && e.mlEstimator != nil {
		est, err := e.mlEstimator.Calculate(finding, issueType, focusArea)
		if err != nil {
			e.logger.Warn("ml estimator unavailable",
				zap.String("finding_id", finding.ID.String()),
				zap.Error(err))
		} else {
			mlResult = est
		}
	}

	switch {
	case llmResult != nil && mlResult != nil:
		return &Result{
			EstimatedLoss:     llmResult.EstimatedLoss*llmWeight + mlResult.EstimatedLoss*mlWeight,
			Confidence:        llmResult.Confidence*llmWeight + mlResult.Confidence*mlWeight,
			CalculationMethod: models.CalculationMethodHybrid,
			LLMEstimate:       &llmResult.EstimatedLoss,
			MLEstimate:        &mlResult.EstimatedLoss,
			Reasoning:         llmResult.Reasoning,
			FactorsConsidered: unionFactors(llmResult.FactorsConsidered, mlResult.FactorsConsidered),
			Breakdown:         llmResult.Breakdown,
		}

	case llmResult != nil:
		return &Result{
			EstimatedLoss:     llmResult.EstimatedLoss,
			Confidence:        llmResult.Confidence,
			CalculationMethod: models.CalculationMethodLLM,
			LLMEstimate:       &llmResult.EstimatedLoss,
			Reasoning:         llmResult.Reasoning,
			FactorsConsidered: llmResult.FactorsConsidered,
			Breakdown:         llmResult.Breakdown,
		}

	case mlResult != nil:
		return &Result{
			EstimatedLoss:     mlResult.EstimatedLoss,
			Confidence:        mlResult.Confidence,
			CalculationMethod: models.CalculationMethodML,
			MLEstimate:        &mlResult.EstimatedLoss,
			Reasoning:         mlResult.Reasoning,
			FactorsConsidered: mlResult.FactorsConsidered,
			Breakdown:         mlResult.Breakdown,
		}

	default:
		return &Result{
			EstimatedLoss:     fallbackLoss,
			Confidence:        fallbackConfidence,
			CalculationMethod: models.CalculationMethodFallback,
			Reasoning:         "Both LLM and ML calculations failed",
		}
	}
}

// unionFactors merges two factor lists without duplicates, sorted for
// deterministic output.
func unionFactors(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var union []string
	for _, factors := range [][]string{a, b} {
		for _, f := range factors {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				union = append(union, f)
			}
		}
	}
	sort.Strings(union)
	return union
}
