// Package report renders connection status reports in multiple formats.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the human-readable status block for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// Design decision: We separate status rendering from the status data
// structure (which lives in the model package) to follow the single
// responsibility principle. New output formats can be added without
// modifying the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-destination output.
package report
