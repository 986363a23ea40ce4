// Package log provides structured logging for the expression toolkit.
//
// Package: log
// Title: Structured Logging
// Description: Leveled, structured logging with contextual fields, session
//              tagging and JSON, text, console and logfmt output. Loggers are
//              immutable values; every With* call returns a derived logger
//              that shares the output writer of its parent.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with structured logging and error integration
// - 2026-10-17 v0.2.0: Session tagging, audit and async output removed
//
// Usage:
//
//	import mdwlog "github.com/msto63/mExpr/foundation/core/log"
//
//	logger := mdwlog.New().
//		WithLevel(mdwlog.LevelDebug).
//		WithFormat(mdwlog.FormatText).
//		WithField("component", "parser")
//
//	logger.Debug("parsed expression", mdwlog.Fields{"input": "1 + 2", "depth": 2})
//	logger.LogError("parse failed", err)
//
//	timer := logger.StartTimer("parse")
//	// ... parse
//	timer.Stop()
package log
