// Package ui provides semantic text formatting for CLI output.
//
// Each formatter colors one kind of content. When NO_COLOR is set or the
// terminal has no color support, a text decoration is used instead.
//
// # Semantic Formatters
//
// Use the appropriate formatter for the content type:
//
//	ui.Code.Sprint("syncany connect")           // Commands and code
//	ui.Path.Sprint(".syncany/config.toml")      // File paths
//	ui.Success.Sprint("✓")                       // Success indicators
//	ui.Error.Sprint("✗")                         // Error indicators
//	ui.Warning.Sprint("read-only")               // Warnings
//	ui.Info.Sprint("→")                          // Informational hints
//	ui.Highlight.Sprint("local")                 // Plugin ids, machine names
//	ui.Link.Sprint("syncany://storage/1/...")   // Repository links
//	ui.Muted.Sprint("optional")                 // De-emphasized text
//
// # Color Behavior
//
// Colors are disabled when:
//   - NO_COLOR environment variable is set (any value)
//   - Terminal doesn't support colors (TERM=dumb, not a TTY)
//
// When colors are disabled, formatters apply text decorations:
//   - Code: `backticks`
//   - Highlight: 'single quotes'
//   - Link: <angle brackets>
//   - Muted: (parentheses)
//   - Others: none
package ui
