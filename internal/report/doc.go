// Package report provides the sinks that consume a reconciled catalog.
//
// This package contains writers for different output formats:
//   - CSVWriter: the persisted raw and canonical tables
//   - JSONWriter: structured output for tool integration
//   - MarkdownWriter: category summaries with mermaid pie charts
//   - SimpleWriter: human-readable text output for terminal display
//
// Run writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
