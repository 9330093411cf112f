package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/auditlens/auditlens-engine/pkg/models"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
)

// maxSignalLength caps individual string fields fed into classification so
// free-text blobs cannot dominate pattern matching.
const maxSignalLength = 200

// Signals are the short textual inputs classification works over.
type Signals struct {
	AlertName  string
	ReportType string
	Fields     map[string]any
}

// text lowercases and concatenates all usable signals. Fields are visited
// in sorted key order so `.*` patterns spanning field boundaries match the
// same way on every run.
func (s Signals) text() string {
	var b strings.Builder
	if s.AlertName != "" {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(s.AlertName))
	}
	if s.ReportType != "" {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(s.ReportType))
	}
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if str, ok := s.Fields[k].(string); ok && str != "" && len(str) < maxSignalLength {
			b.WriteString(" ")
			b.WriteString(strings.ToLower(str))
		}
	}
	return b.String()
}

// focusAreaPatterns maps focus area code to its classification patterns.
// Patterns are matched case-insensitively against the concatenated signals.
var focusAreaPatterns = map[string][]string{
	models.FocusAreaBusinessProtection: {
		`fraud`,
		`cybersecurity`,
		`security.*breach`,
		`unauthorized.*access`,
		`material.*conversion`,
		`vendor.*payment.*diversion`,
		`backdated.*purchase`,
		`one.*time.*vendor`,
	},
	models.FocusAreaBusinessControl: {
		`bottleneck`,
		`stuck.*order`,
		`unbilled.*delivery`,
		`incomplete.*service`,
		`data.*exchange.*failure`,
		`process.*observability`,
		`business.*anomal`,
	},
	models.FocusAreaAccessGovernance: {
		`segregation.*duties`,
		`sod.*violation`,
		`authorization`,
		`user.*access`,
		`long.*time.*logged`,
		`session.*duration`,
		`self.*approval`,
		`access.*review`,
		`user.*activity`,
	},
	models.FocusAreaTechnicalControl: {
		`system.*dump`,
		`lock.*conflict`,
		`resource.*exhaustion`,
		`update.*request.*failure`,
		`configuration.*drift`,
		`infrastructure`,
		`technical.*anomal`,
	},
	models.FocusAreaJobsControl: {
		`job.*performance`,
		`long.*running.*job`,
		`job.*failure`,
		`background.*job`,
		`resource.*utilization`,
		`job.*overlap`,
	},
	models.FocusAreaS4HANAExcellence: {
		`s4.*hana`,
		`post.*migration`,
		`post.*go.*live`,
		`fiori.*interface`,
		`universal.*journal`,
		`migration.*safeguard`,
	},
}

// filenameFallbacks maps filename keywords to a focus area code, checked in
// order when pattern classification yields nothing.
var filenameFallbacks = []struct {
	keywords  []string
	focusCode string
}{
	{[]string{"print", "spool"}, models.FocusAreaTechnicalControl},
	{[]string{"sales", "order", "customer"}, models.FocusAreaBusinessControl},
	{[]string{"vendor", "payment"}, models.FocusAreaBusinessProtection},
	{[]string{"session", "user", "logged"}, models.FocusAreaAccessGovernance},
}

// filenameFallbackConfidence is assigned when classification only succeeded
// via the filename keyword heuristic.
const filenameFallbackConfidence = 0.5

// FocusAreaClassifier maps textual signals to one of the six focus areas via
// weighted pattern matching. Pure over the injected reference snapshot.
type FocusAreaClassifier struct {
	snapshot *refdata.Snapshot
	patterns map[string][]*regexp.Regexp
}

// NewFocusAreaClassifier compiles the pattern tables against the snapshot.
func NewFocusAreaClassifier(snapshot *refdata.Snapshot) *FocusAreaClassifier {
	compiled := make(map[string][]*regexp.Regexp, len(focusAreaPatterns))
	for code, patterns := range focusAreaPatterns {
		regexps := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			regexps = append(regexps, regexp.MustCompile(`(?i)`+p))
		}
		compiled[code] = regexps
	}
	return &FocusAreaClassifier{snapshot: snapshot, patterns: compiled}
}

// Classify scores every focus area against the signals and returns the
// winner with its confidence. Each area's score rewards both breadth and
// density of pattern matches: (matched/total) scaled again by
// (matched/total), so an area matching all of its patterns approaches 1.0.
// Areas are evaluated in registration order and a strictly higher score is
// required to replace the leader, so ties go to the earlier area. Returns
// (nil, 0) when nothing matches.
func (c *FocusAreaClassifier) Classify(sig Signals) (*models.FocusArea, float64) {
	text := sig.text()
	if text == "" {
		return nil, 0.0
	}

	var best *models.FocusArea
	bestScore := 0.0

	for _, fa := range c.snapshot.FocusAreas() {
		regexps := c.patterns[fa.Code]
		if len(regexps) == 0 {
			continue
		}

		matches := 0
		for _, re := range regexps {
			if re.MatchString(text) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		ratio := float64(matches) / float64(len(regexps))
		score := ratio * ratio
		if score > 1.0 {
			score = 1.0
		}

		if score > bestScore {
			best = fa
			bestScore = score
		}
	}

	return best, bestScore
}

// ClassifyFilename is the secondary heuristic applied when Classify yields
// nothing: substring checks of known keyword sets against the source
// filename. Returns (nil, 0) when no keyword matches.
func (c *FocusAreaClassifier) ClassifyFilename(filename string) (*models.FocusArea, float64) {
	name := strings.ToLower(filename)
	if name == "" {
		return nil, 0.0
	}

	for _, fb := range filenameFallbacks {
		for _, kw := range fb.keywords {
			if strings.Contains(name, kw) {
				if fa, ok := c.snapshot.FocusAreaByCode(fb.focusCode); ok {
					return fa, filenameFallbackConfidence
				}
			}
		}
	}

	return nil, 0.0
}

// Issue type scoring weights and boosts.
const (
	issueCodeWeight        = 0.5
	issueNameWeight        = 0.3
	issueDescriptionWeight = 0.2
	issueBoost             = 0.5

	// weakSignalConfidence is returned with the area's first registered
	// issue type when no candidate scored above zero; the caller still
	// needs a severity default.
	weakSignalConfidence = 0.3
)

// IssueTypeClassifier narrows a focus area classification to a specific
// issue type within that area.
type IssueTypeClassifier struct {
	snapshot *refdata.Snapshot
}

// NewIssueTypeClassifier creates an issue type classifier over the snapshot.
func NewIssueTypeClassifier(snapshot *refdata.Snapshot) *IssueTypeClassifier {
	return &IssueTypeClassifier{snapshot: snapshot}
}

// Classify scores each issue type of the focus area by substring presence
// of its code, name and description, plus issue-specific boosts. When every
// candidate scores zero it returns the area's first registered issue type
// at low confidence rather than nil. Returns (nil, 0) only when the focus
// area has no issue types at all.
func (c *IssueTypeClassifier) Classify(focusArea *models.FocusArea, sig Signals) (*models.IssueType, float64) {
	candidates := c.snapshot.IssueTypesFor(focusArea.ID)
	if len(candidates) == 0 {
		return nil, 0.0
	}

	text := sig.text()

	var best *models.IssueType
	bestScore := 0.0

	for _, it := range candidates {
		score := 0.0

		if strings.Contains(text, strings.ToLower(it.Code)) {
			score += issueCodeWeight
		}
		if strings.Contains(text, strings.ToLower(it.Name)) {
			score += issueNameWeight
		}
		if it.Description != "" && strings.Contains(text, strings.ToLower(it.Description)) {
			score += issueDescriptionWeight
		}

		switch it.Code {
		case models.IssueTypeLongSession:
			if strings.Contains(text, "24") || strings.Contains(text, "hour") {
				score += issueBoost
			}
		case models.IssueTypeSoDViolation:
			if strings.Contains(text, "violation") || strings.Contains(text, "conflict") {
				score += issueBoost
			}
		case models.IssueTypeFraudDetection:
			if strings.Contains(text, "fraud") {
				score += issueBoost
			}
		}

		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			best = it
			bestScore = score
		}
	}

	if best == nil {
		return candidates[0], weakSignalConfidence
	}

	return best, bestScore
}
