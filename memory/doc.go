// Package memory provides minimal conversation persistence.
//
// Persistence model:
//   - Only text messages are stored (role + text). Tool blocks are transient.
//   - Notifications shown to the user (job responses, displayed data sources)
//     are stored with role "notification" and replayed to the model as context.
package memory
