// Package scanner runs the stub pipeline over a source tree: discovery,
// structure dump, module extraction and stub generation, one file at a time.
package scanner

import (
	"github.com/gnana997/nativestub/pkg/definition"
)

// ScanConfig configures file discovery.
type ScanConfig struct {
	// Include glob patterns for file matching.
	Include []string
	// Exclude glob patterns.
	Exclude []string
}

// DefaultScanConfig returns the default configuration: every Swift file
// outside dependency, build and test directories.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Include: []string{
			"**/*.swift",
		},
		Exclude: []string{
			".git/**",
			"node_modules/**",
			"**/node_modules/**",
			"Pods/**",
			"**/Pods/**",
			".build/**",
			"build/**",
			"DerivedData/**",
			".nativestub/**",
			// Test sources never declare modules.
			"**/*Tests.swift",
			"**/*Test.swift",
			"**/Tests/**",
			"**/*Tests/**",
		},
	}
}

// GenerateOptions controls stub output.
type GenerateOptions struct {
	// OutDir receives one <Module>.ts per module. Created if absent.
	OutDir string
	// Verify parses every generated stub before it is written.
	Verify bool
}

// DefaultOutDir is the stub directory used when none is configured.
const DefaultOutDir = "mocks"

// Result is the output of a run.
type Result struct {
	Modules  []definition.ModuleDefinition
	Written  []string
	Warnings []definition.Warning
	Stats    Stats
}

// Stats tracks pipeline counters and phase timings.
type Stats struct {
	FilesDiscovered  int   `json:"files_discovered"`
	FilesExtracted   int   `json:"files_extracted"`
	FilesFailed      int   `json:"files_failed"`
	ModulesFound     int   `json:"modules_found"`
	StubsWritten     int   `json:"stubs_written"`
	ToolInvocations  int64 `json:"tool_invocations"`
	SpanReads        int64 `json:"span_reads"`
	CachedFiles      int   `json:"cached_files"`
	DiscoveryTimeMs  int64 `json:"discovery_time_ms"`
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	GenerationTimeMs int64 `json:"generation_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}
