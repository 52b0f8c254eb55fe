// Package tools defines tool contracts and the calendar tool set.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Calendar tools: create_event, update_event, delete_event,
//     check_availability, list_events, create_multiple_events.
//   - Invariants: tool_use and its corresponding tool_result remain adjacent within a turn
package tools
