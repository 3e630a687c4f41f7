// Package tools defines tool contracts and the Biome tool implementations.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Biome tools: search, display, query_page, scan, job_status.
//   - LoopControl: lets a tool end the current turn after it has shown results.
//   - Invariants: job-submitting tools return the job id without waiting for the job;
//     the final result arrives later as a job_response notification.
package tools
