package moneyloss

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/jsonutil"
	"github.com/auditlens/auditlens-engine/pkg/llm"
	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/retry"
)

const llmSystemPrompt = `You are a financial risk analyst specializing in SAP system security and business process analysis.
Your task is to estimate potential financial losses based on security incidents, fraud indicators, process bottlenecks, and compliance violations.

Consider:
- Type of issue (fraud, security breach, process bottleneck, compliance violation)
- Severity and risk level
- Potential impact on business operations
- Industry-standard cost estimates for similar incidents
- Regulatory fines and compliance costs
- Productivity losses
- Reputation damage costs

Provide your estimate in a structured format with reasoning.`

const llmPromptTemplate = `Analyze the following finding and estimate the potential financial loss:

Finding Title: %s
Description: %s
Issue Type: %s
Severity: %s
Risk Level: %s
Risk Category: %s

Additional Context:
%s

Provide your analysis in the following JSON format:
{
    "estimated_loss": <number in currency units>,
    "confidence": <0.0 to 1.0>,
    "reasoning": "<detailed explanation>",
    "factors_considered": [
        "<factor 1>",
        "<factor 2>",
        ...
    ],
    "breakdown": {
        "direct_losses": <number>,
        "indirect_losses": <number>,
        "compliance_fines": <number>,
        "productivity_loss": <number>,
        "reputation_damage": <number>
    }
}`

// Severity-indexed fallback estimates when the generative path is
// unavailable. Deliberately distinct from the ML defaults.
var llmFallbackEstimates = map[string]float64{
	models.SeverityCritical: 100000.0,
	models.SeverityHigh:     50000.0,
	models.SeverityMedium:   10000.0,
	models.SeverityLow:      1000.0,
}

const (
	llmFallbackEstimate   = 5000.0
	llmFallbackConfidence = 0.3
	llmTextConfidence     = 0.4
	llmReasoningMaxLen    = 500

	fraudLossMultiplier = 2.0
	sodLossMultiplier   = 1.5
)

// currencyPattern matches currency-like amounts in free text, used as the
// weak fallback when the response carries no parseable JSON.
var currencyPattern = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)

// LLMEstimator prompts a text-generation provider for a structured loss
// estimate. Any provider or parse failure degrades through a ladder of
// weaker results; Calculate never fails outright.
type LLMEstimator struct {
	generator llm.TextGenerator
	retryCfg  *retry.Config
	logger    *zap.Logger
}

// NewLLMEstimator creates a generative estimator. A nil generator is
// allowed; every calculation then uses the severity fallback.
func NewLLMEstimator(generator llm.TextGenerator, logger *zap.Logger) *LLMEstimator {
	return &LLMEstimator{
		generator: generator,
		retryCfg:  retry.DefaultConfig(),
		logger:    logger,
	}
}

// Calculate estimates the loss for a finding via the generative provider.
func (e *LLMEstimator) Calculate(ctx context.Context, finding *models.Finding, issueType *models.IssueType, additionalContext map[string]any) (*Estimate, error) {
	if e.generator == nil {
		return e.fallbackEstimate(finding, issueType), nil
	}

	prompt := e.buildPrompt(finding, issueType, additionalContext)

	response, err := retry.DoWithResult(ctx, e.retryCfg, func() (string, error) {
		return e.generator.Generate(ctx, prompt, llmSystemPrompt)
	})
	if err != nil {
		e.logger.Warn("generative loss estimate failed, using severity fallback",
			zap.String("finding_id", finding.ID.String()),
			zap.Error(err))
		return e.fallbackEstimate(finding, issueType), nil
	}

	return e.parseResponse(response), nil
}

func (e *LLMEstimator) buildPrompt(finding *models.Finding, issueType *models.IssueType, additionalContext map[string]any) string {
	description := finding.Description
	if description == "" {
		description = "No description available"
	}

	issueName := "Unknown"
	if issueType != nil {
		issueName = issueType.Name
	}

	riskLevel, riskCategory := "Unknown", "Unknown"
	if finding.RiskAssessment != nil {
		riskLevel = finding.RiskAssessment.RiskLevel
		riskCategory = finding.RiskAssessment.RiskCategory
	}

	return fmt.Sprintf(llmPromptTemplate,
		finding.Title,
		description,
		issueName,
		finding.Severity,
		riskLevel,
		riskCategory,
		formatContext(additionalContext),
	)
}

func formatContext(context map[string]any) string {
	if len(context) == 0 {
		return "No additional context available."
	}

	lines := make([]string, 0, len(context))
	for key, value := range context {
		lines = append(lines, fmt.Sprintf("%s: %v", key, value))
	}
	return strings.Join(lines, "\n")
}

// llmResponse is the structured shape requested from the provider. Numeric
// fields are raw so sloppy string-typed numbers still parse.
type llmResponse struct {
	EstimatedLoss     json.RawMessage            `json:"estimated_loss"`
	Confidence        json.RawMessage            `json:"confidence"`
	Reasoning         string                     `json:"reasoning"`
	FactorsConsidered json.RawMessage            `json:"factors_considered"`
	Breakdown         map[string]json.RawMessage `json:"breakdown"`
}

func (e *LLMEstimator) parseResponse(response string) *Estimate {
	jsonStr, err := llm.ExtractJSON(response)
	if err != nil {
		return extractFromText(response)
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return extractFromText(response)
	}

	est := &Estimate{
		EstimatedLoss:     jsonutil.FlexibleFloat(parsed.EstimatedLoss, 0),
		Confidence:        jsonutil.FlexibleFloat(parsed.Confidence, 0.5),
		Reasoning:         parsed.Reasoning,
		FactorsConsidered: jsonutil.FlexibleStringSlice(parsed.FactorsConsidered),
	}
	if est.EstimatedLoss < 0 {
		est.EstimatedLoss = 0
	}

	if len(parsed.Breakdown) > 0 {
		est.Breakdown = make(map[string]float64, len(parsed.Breakdown))
		for key, raw := range parsed.Breakdown {
			est.Breakdown[key] = jsonutil.FlexibleFloat(raw, 0)
		}
	}

	return est
}

// extractFromText scrapes the largest currency-like amount from an
// unstructured response.
func extractFromText(text string) *Estimate {
	var estimatedLoss float64
	for _, match := range currencyPattern.FindAllStringSubmatch(text, -1) {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if amount > estimatedLoss {
			estimatedLoss = amount
		}
	}

	reasoning := text
	if len(reasoning) > llmReasoningMaxLen {
		cut := llmReasoningMaxLen
		// Back up so the cut never splits a multibyte rune.
		for cut > 0 && !utf8.RuneStart(reasoning[cut]) {
			cut--
		}
		reasoning = reasoning[:cut]
	}

	return &Estimate{
		EstimatedLoss: estimatedLoss,
		Confidence:    llmTextConfidence,
		Reasoning:     reasoning,
	}
}

func (e *LLMEstimator) fallbackEstimate(finding *models.Finding, issueType *models.IssueType) *Estimate {
	loss, ok := llmFallbackEstimates[finding.Severity]
	if !ok {
		loss = llmFallbackEstimate
	}

	if issueType != nil {
		if strings.Contains(issueType.Code, "FRAUD") {
			loss *= fraudLossMultiplier
		} else if strings.Contains(issueType.Code, "SOD") {
			loss *= sodLossMultiplier
		}
	}

	return &Estimate{
		EstimatedLoss:     loss,
		Confidence:        llmFallbackConfidence,
		Reasoning:         "Fallback calculation based on severity and issue type",
		FactorsConsidered: []string{"severity", "issue_type"},
		Breakdown: map[string]float64{
			"direct_losses":    loss * 0.6,
			"indirect_losses":  loss * 0.3,
			"compliance_fines": loss * 0.1,
		},
	}
}
