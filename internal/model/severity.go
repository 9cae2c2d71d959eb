package model

import (
	"encoding/json"
	"fmt"
)

// Severity represents the impact level of a fetch-time signal.
// Signals are raw observations recorded by the worker alongside a page
// record; they are independent of the audit rule set, which derives its
// own issue labels from the persisted pages.
//
// Design decision: We use iota-based constants rather than string
// constants for efficiency in comparisons and sorting. JSON marshaling
// converts to the lowercase string form so that artifacts stay readable
// without a decoder ring.
type Severity int

const (
	// SeverityInfo indicates an informational observation with no direct
	// SEO impact. Examples: 3xx responses, missing security headers.
	SeverityInfo Severity = iota

	// SeverityWarning indicates an issue that degrades crawlability or
	// user experience but does not make the page unusable.
	// Examples: 4xx responses, oversized bodies, empty 200 responses.
	SeverityWarning

	// SeverityCritical indicates a defect that makes the page unusable
	// or unreachable. Examples: 5xx responses.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its string form.
// Unknown values are rejected so that corrupted artifacts fail loudly
// rather than silently downgrading to info.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", raw)
	}
	return nil
}

// Signal is a fetch-time observation recorded by the worker.
// Signals capture transport and envelope anomalies (HTTP errors,
// oversized bodies, missing security headers) at the moment of fetch.
// They are stored as data on the page record, never raised as errors.
type Signal struct {
	// Type identifies the signal category. Known values:
	// http_error, redirect, unknown_content_type, large_file,
	// empty_body, missing_security_header.
	Type string `json:"type"`

	// Severity is the impact level of the signal.
	Severity Severity `json:"severity"`

	// Detail is a human-readable description of the observation.
	Detail string `json:"detail"`
}
