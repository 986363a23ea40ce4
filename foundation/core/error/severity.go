// File: severity.go
// Title: Error Severity Levels
// Description: Defines severity levels for errors. Input errors are low
//              severity because a single bad expression never takes the
//              session down; infrastructure failures rank higher.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with severity levels
// - 2026-10-17 v0.2.0: Severity mapping for expression codes

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow indicates a problem with user input (bad expression)
	SeverityLow Severity = iota

	// SeverityMedium indicates a failure that affects one operation
	SeverityMedium

	// SeverityHigh indicates a failure of a supporting resource (database, config)
	SeverityHigh

	// SeverityCritical indicates an internal invariant was broken
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ShouldAlert returns true if this severity level should trigger alerts
func (s Severity) ShouldAlert() bool {
	return s >= SeverityHigh
}

// GetSeverityFromCode determines appropriate severity level based on error code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodeInternal:
		return SeverityCritical
	case CodeDatabaseError, CodeConfigError, CodeInvalidGrammar, CodeDuplicateParselet:
		return SeverityHigh
	case CodeUnknown, CodeNotFound:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
