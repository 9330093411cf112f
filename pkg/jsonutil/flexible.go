package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleFloat converts a json.RawMessage to a float64, handling cases
// where LLMs return numbers as strings ("5000", "$5,000.00") instead of
// JSON numbers. Returns the fallback for null/empty/unparseable values.
func FlexibleFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	// Try number first
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal
	}

	// Try string with currency formatting stripped
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		cleaned := strings.TrimSpace(strVal)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return parsed
		}
	}

	return fallback
}

// FlexibleStringSlice converts a json.RawMessage to a []string, accepting
// either a JSON array of strings or a single string. Returns nil for
// null/empty/unparseable values.
func FlexibleStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var slice []string
	if err := json.Unmarshal(raw, &slice); err == nil {
		return slice
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}

	return nil
}
