package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
)

func TestFocusAreaClassifier_SegregationOfDuties(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	fa, confidence := c.Classify(Signals{AlertName: "Segregation of Duties violation detected"})

	require.NotNil(t, fa)
	assert.Equal(t, models.FocusAreaAccessGovernance, fa.Code)
	assert.Greater(t, confidence, 0.0)
}

func TestFocusAreaClassifier_NoMatch(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	fa, confidence := c.Classify(Signals{AlertName: "quarterly picnic schedule"})

	assert.Nil(t, fa)
	assert.Equal(t, 0.0, confidence)
}

func TestFocusAreaClassifier_EmptySignals(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	fa, confidence := c.Classify(Signals{})

	assert.Nil(t, fa)
	assert.Equal(t, 0.0, confidence)
}

func TestFocusAreaClassifier_BreadthRewarded(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	_, one := c.Classify(Signals{AlertName: "fraud"})
	_, two := c.Classify(Signals{AlertName: "fraud with unauthorized access attempt"})

	assert.Greater(t, two, one)
}

func TestSignals_FieldOrderDeterministic(t *testing.T) {
	s := Signals{Fields: map[string]any{
		"c": "logged",
		"a": "long",
		"b": "time",
	}}

	// Sorted key order: a pattern spanning field boundaries must see the
	// same concatenation on every call.
	for i := 0; i < 50; i++ {
		assert.Equal(t, " long time logged", s.text())
	}

	c := NewFocusAreaClassifier(refdata.Defaults())
	fa, confidence := c.Classify(s)
	require.NotNil(t, fa)
	assert.Equal(t, models.FocusAreaAccessGovernance, fa.Code)
	assert.Greater(t, confidence, 0.0)
}

func TestFocusAreaClassifier_TieGoesToEarlierArea(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	// One pattern match in each of BUSINESS_CONTROL and TECHNICAL_CONTROL;
	// both areas carry seven patterns so the scores tie exactly.
	fa, confidence := c.Classify(Signals{AlertName: "bottleneck in infrastructure"})

	require.NotNil(t, fa)
	assert.Equal(t, models.FocusAreaBusinessControl, fa.Code)
	assert.InDelta(t, 1.0/49.0, confidence, 1e-9)
}

func TestFocusAreaClassifier_LongFieldsIgnored(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	blob := make([]byte, maxSignalLength+50)
	for i := range blob {
		blob[i] = 'a'
	}
	fa, _ := c.Classify(Signals{Fields: map[string]any{
		"comment": string(blob) + " fraud",
	}})

	assert.Nil(t, fa)
}

func TestFocusAreaClassifier_FilenameFallback(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	tests := []struct {
		filename string
		want     string
	}{
		{"spool_errors_2024.xlsx", models.FocusAreaTechnicalControl},
		{"print_queue_export.csv", models.FocusAreaTechnicalControl},
		{"stuck_sales_orders.xlsx", models.FocusAreaBusinessControl},
		{"vendor_master_changes.xlsx", models.FocusAreaBusinessProtection},
		{"logged_on_users.xlsx", models.FocusAreaAccessGovernance},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			fa, confidence := c.ClassifyFilename(tt.filename)
			require.NotNil(t, fa)
			assert.Equal(t, tt.want, fa.Code)
			assert.Equal(t, filenameFallbackConfidence, confidence)
		})
	}
}

func TestFocusAreaClassifier_FilenameFallbackNoMatch(t *testing.T) {
	c := NewFocusAreaClassifier(refdata.Defaults())

	fa, confidence := c.ClassifyFilename("untitled.xlsx")

	assert.Nil(t, fa)
	assert.Equal(t, 0.0, confidence)
}

func TestIssueTypeClassifier_LongSessionBoost(t *testing.T) {
	snapshot := refdata.Defaults()
	c := NewIssueTypeClassifier(snapshot)
	ag, ok := snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	require.True(t, ok)

	it, confidence := c.Classify(ag, Signals{AlertName: "Long Time Logged On Users 24+ hours"})

	require.NotNil(t, it)
	assert.Equal(t, models.IssueTypeLongSession, it.Code)
	assert.Equal(t, 0.5, confidence)
}

func TestIssueTypeClassifier_SoDViolationBoost(t *testing.T) {
	snapshot := refdata.Defaults()
	c := NewIssueTypeClassifier(snapshot)
	ag, ok := snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	require.True(t, ok)

	it, confidence := c.Classify(ag, Signals{ReportType: "authorization conflict report"})

	require.NotNil(t, it)
	assert.Equal(t, models.IssueTypeSoDViolation, it.Code)
	assert.Equal(t, 0.5, confidence)
}

func TestIssueTypeClassifier_FraudBoostAndCodeMatch(t *testing.T) {
	snapshot := refdata.Defaults()
	c := NewIssueTypeClassifier(snapshot)
	bp, ok := snapshot.FocusAreaByCode(models.FocusAreaBusinessProtection)
	require.True(t, ok)

	// Code substring (0.5) plus fraud boost (0.5), clamped to 1.0.
	it, confidence := c.Classify(bp, Signals{AlertName: "FRAUD_DETECTION alert triggered"})

	require.NotNil(t, it)
	assert.Equal(t, models.IssueTypeFraudDetection, it.Code)
	assert.Equal(t, 1.0, confidence)
}

func TestIssueTypeClassifier_WeakSignalDefaultsToFirstRegistered(t *testing.T) {
	snapshot := refdata.Defaults()
	c := NewIssueTypeClassifier(snapshot)
	ag, ok := snapshot.FocusAreaByCode(models.FocusAreaAccessGovernance)
	require.True(t, ok)

	it, confidence := c.Classify(ag, Signals{AlertName: "zzz unmatched signal"})

	require.NotNil(t, it)
	assert.Equal(t, models.IssueTypeSoDViolation, it.Code)
	assert.Equal(t, weakSignalConfidence, confidence)
}
