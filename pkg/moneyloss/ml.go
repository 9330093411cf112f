package moneyloss

import (
	"fmt"
	"hash/fnv"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditlens/auditlens-engine/pkg/models"
)

// Severity-indexed constant estimates used when no model is loadable.
var mlDefaultEstimates = map[string]float64{
	models.SeverityCritical: 75000.0,
	models.SeverityHigh:     35000.0,
	models.SeverityMedium:   7500.0,
	models.SeverityLow:      750.0,
}

const (
	mlDefaultEstimate   = 5000.0
	mlModelConfidence   = 0.7
	mlDefaultConfidence = 0.5
)

// linearModel is the trained regression model, stored as YAML so the model
// file is inspectable and diffable. Weights apply to the fixed feature
// vector documented on extractFeatures.
type linearModel struct {
	Version   int       `yaml:"version"`
	Intercept float64   `yaml:"intercept"`
	Weights   []float64 `yaml:"weights"`
}

func (m *linearModel) predict(features []float64) (float64, error) {
	if len(m.Weights) != len(features) {
		return 0, fmt.Errorf("model expects %d features, got %d", len(m.Weights), len(features))
	}
	prediction := m.Intercept
	for i, w := range m.Weights {
		prediction += w * features[i]
	}
	if prediction < 0 {
		prediction = 0
	}
	return prediction, nil
}

// MLEstimator predicts money loss from a fixed feature vector using a
// pre-trained linear model, falling back to severity-indexed constants
// when no model is available.
type MLEstimator struct {
	model  *linearModel
	logger *zap.Logger
}

// NewMLEstimator loads the model from modelPath. A missing or unreadable
// model file is not an error; the estimator degrades to the constant
// table.
func NewMLEstimator(modelPath string, logger *zap.Logger) *MLEstimator {
	e := &MLEstimator{logger: logger}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		logger.Info("money loss model not available, using default estimates",
			zap.String("model_path", modelPath),
			zap.Error(err))
		return e
	}

	var model linearModel
	if err := yaml.Unmarshal(data, &model); err != nil {
		logger.Warn("failed to parse money loss model, using default estimates",
			zap.String("model_path", modelPath),
			zap.Error(err))
		return e
	}

	e.model = &model
	logger.Info("loaded money loss model",
		zap.String("model_path", modelPath),
		zap.Int("version", model.Version))
	return e
}

// mlFeatureNames names the feature vector positions for explanation output.
var mlFeatureNames = []string{
	"severity",
	"risk_score",
	"issue_type",
	"classification_confidence",
	"focus_area",
}

// stableHash reduces a code to a stable small integer feature. FNV-1a is
// used so the encoding is identical across processes and restarts.
func stableHash(code string, mod uint32) float64 {
	h := fnv.New32a()
	h.Write([]byte(code)) //nolint:errcheck // fnv never errors
	return float64(h.Sum32() % mod)
}

// extractFeatures builds the fixed-order feature vector:
// severity ordinal (Critical=4..Low=1, unknown=2), risk score, issue type
// code hashed mod 1000, classification confidence, focus area code hashed
// mod 100.
func extractFeatures(finding *models.Finding, issueType *models.IssueType, focusArea *models.FocusArea) []float64 {
	severityOrdinals := map[string]float64{
		models.SeverityCritical: 4,
		models.SeverityHigh:     3,
		models.SeverityMedium:   2,
		models.SeverityLow:      1,
	}
	severity, ok := severityOrdinals[finding.Severity]
	if !ok {
		severity = 2
	}

	riskScore := 50.0
	if finding.RiskAssessment != nil {
		riskScore = float64(finding.RiskAssessment.RiskScore)
	}

	issueCode := "UNKNOWN"
	if issueType != nil {
		issueCode = issueType.Code
	}

	confidence := finding.ClassificationConfidence
	if confidence == 0 {
		confidence = 0.5
	}

	focusCode := ""
	if focusArea != nil {
		focusCode = focusArea.Code
	}

	return []float64{
		severity,
		riskScore,
		stableHash(issueCode, 1000),
		confidence,
		stableHash(focusCode, 100),
	}
}

// Calculate predicts the loss for a finding. Never returns an error for a
// missing model; the error path covers only a model whose weight vector
// does not match the feature vector.
func (e *MLEstimator) Calculate(finding *models.Finding, issueType *models.IssueType, focusArea *models.FocusArea) (*Estimate, error) {
	if e.model == nil {
		return e.defaultEstimate(finding), nil
	}

	features := extractFeatures(finding, issueType, focusArea)
	prediction, err := e.model.predict(features)
	if err != nil {
		return nil, fmt.Errorf("model prediction failed: %w", err)
	}

	return &Estimate{
		EstimatedLoss:     prediction,
		Confidence:        mlModelConfidence,
		Reasoning:         "ML model prediction based on historical data",
		FactorsConsidered: mlFeatureNames,
	}, nil
}

func (e *MLEstimator) defaultEstimate(finding *models.Finding) *Estimate {
	loss, ok := mlDefaultEstimates[finding.Severity]
	if !ok {
		loss = mlDefaultEstimate
	}

	return &Estimate{
		EstimatedLoss:     loss,
		Confidence:        mlDefaultConfidence,
		Reasoning:         "Default calculation (ML model not trained)",
		FactorsConsidered: []string{"severity"},
	}
}
