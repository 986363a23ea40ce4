// File: codes_test.go
// Title: Error Code Tests
// Description: Tests for error code validity, categories and severities.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17

package error

import "testing"

func TestCode_Category(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodeUnrecognizedToken, "lex"},
		{CodeEmptyToken, "lex"},
		{CodeNoPrefixHandler, "parse"},
		{CodeUnexpectedToken, "parse"},
		{CodeUnexpectedEndOfInput, "parse"},
		{CodeUnbalancedParens, "parse"},
		{CodeTrailingTokens, "parse"},
		{CodeNestingTooDeep, "parse"},
		{CodeInputTooLong, "parse"},
		{CodeInvalidGrammar, "grammar"},
		{CodeDuplicateParselet, "grammar"},
		{CodeUndefinedVariable, "eval"},
		{CodeDivisionByZero, "eval"},
		{CodeInvalidAssignment, "eval"},
		{CodeUnknownOperator, "eval"},
		{CodeOverflow, "eval"},
		{CodeConfigError, "configuration"},
		{CodeDatabaseError, "database"},
		{CodeInternal, "generic"},
		{Code("SOMETHING_ELSE"), "generic"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Category(); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode_IsValid(t *testing.T) {
	if !CodeUnbalancedParens.IsValid() {
		t.Error("CodeUnbalancedParens should be valid")
	}
	if Code("NOPE").IsValid() {
		t.Error("unknown code should not be valid")
	}
}

func TestCode_IsSyntax(t *testing.T) {
	if !CodeUnrecognizedToken.IsSyntax() || !CodeTrailingTokens.IsSyntax() {
		t.Error("lex and parse codes are syntax errors")
	}
	if CodeDivisionByZero.IsSyntax() || CodeDatabaseError.IsSyntax() {
		t.Error("eval and database codes are not syntax errors")
	}
}

func TestGetSeverityFromCode(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeUnexpectedToken, SeverityLow},
		{CodeDivisionByZero, SeverityLow},
		{CodeUnknown, SeverityMedium},
		{CodeDatabaseError, SeverityHigh},
		{CodeInvalidGrammar, SeverityHigh},
		{CodeInternal, SeverityCritical},
	}

	for _, tt := range tests {
		if got := GetSeverityFromCode(tt.code); got != tt.want {
			t.Errorf("GetSeverityFromCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}

	if !SeverityHigh.ShouldAlert() || SeverityLow.ShouldAlert() {
		t.Error("only high and critical severities should alert")
	}
}
