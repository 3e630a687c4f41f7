package biome

import "fmt"

// MalformedError reports an upstream payload that lacks a required field.
type MalformedError struct {
	Field string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("biome: malformed response: missing %s", e.Field)
}

// APIError is returned for any non-2xx response from the Biome service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("biome: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("biome: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
