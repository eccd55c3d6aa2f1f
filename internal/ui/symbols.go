package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓" // Step completed successfully
)
