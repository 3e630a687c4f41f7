// Package runner coordinates message exchange with the Anthropic Messages API
// and dispatches tool calls.
//
// Invariant:
//   - tool_use and the corresponding tool_result are kept adjacent within a turn
//     to preserve execution context and simplify follow-up reasoning.
//   - each request carries the newest groups of the conversation that fit the
//     token budget (see package windowing); a tool_use and its tool_result
//     are kept or dropped together.
//   - a tool that signals success-stop (display) ends the turn: Step.Stop is set
//     and the caller does not call the model again until the next user input.
//
// Flow:
//
//	user(text) -> assistant(tool_use) -> user(tool_result) -> assistant(text)
//	user(text) -> assistant(tool_use display) -> user(tool_result) [stop]
package runner
