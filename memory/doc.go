// Package memory holds what the agent remembers between turns.
//
// Two pieces:
//   - History: the ordered, role-tagged conversation transcript (append-only).
//   - Memory: a short-term item buffer with a trailing read window, plus a
//     long-term key/value partition that is reserved and currently unused.
//
// Transcripts can be persisted as JSON (role + content + timestamp only).
package memory
