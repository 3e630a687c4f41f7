package provider_test

import (
	"testing"

	"github.com/petasbytes/biome-agent/internal/provider"
)

func TestResolveModel(t *testing.T) {
	if got := provider.ResolveModel(""); got != provider.DefaultModel {
		t.Fatalf("empty name: got %q want %q", got, provider.DefaultModel)
	}
	if got := provider.ResolveModel("claude-sonnet-4-0"); string(got) != "claude-sonnet-4-0" {
		t.Fatalf("explicit name: got %q", got)
	}
}
