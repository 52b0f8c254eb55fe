// Package agent is the conversational entry point: it records each user
// message and reply in the conversation history and short-term memory, and
// delegates reply generation to a Responder.
package agent
