package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient returns a client using API key from the env. Extra
// options (test transports, base URL) are applied after the defaults.
func NewAnthropicClient(opts ...option.RequestOption) *anthropic.Client {
	c := anthropic.NewClient(opts...)
	return &c
}

// ResolveModel returns name as a model id, or DefaultModel when empty.
func ResolveModel(name string) anthropic.Model {
	if name == "" {
		return DefaultModel
	}
	return anthropic.Model(name)
}

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest
const DefaultMaxTokens int64 = 1024
const APIVersion = "2023-06-01"
