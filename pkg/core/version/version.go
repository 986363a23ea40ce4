// ============================================================================
// mExpr - Extensible expression parser
// ============================================================================
//
// Package:     version
// Description: Central version management for the mexpr components
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants for all mExpr components
const (
	// Platform version
	Platform = "0.1.0"

	// Component versions
	Parser   = "0.1.0"
	Grammar  = "1.0.0"
	REPL     = "0.1.0"
	Server   = "0.1.0"
	History  = "0.1.0"
	Protocol = "1.0.0"
)

// Build metadata, set with -ldflags "-X .../version.Commit=..."
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "parser":
		return Parser
	case "grammar":
		return Grammar
	case "repl":
		return REPL
	case "server":
		return Server
	case "history":
		return History
	case "protocol":
		return Protocol
	default:
		return Platform
	}
}

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Platform,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a single line summary
func (i Info) String() string {
	return fmt.Sprintf("mexpr %s (commit %s, built %s, %s %s)",
		i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
