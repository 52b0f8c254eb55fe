// Package runner drives the tool-use loop against the Anthropic Messages API.
//
// Invariant:
//   - tool_use and the matching tool_result stay adjacent so the window
//     never sends one half of a pair.
//
// Flow of one turn:
//
//	user(text) -> assistant(tool_use) -> user(tool_result) -> ... -> assistant(text)
package runner
