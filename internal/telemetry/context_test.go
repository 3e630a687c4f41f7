package telemetry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/petasbytes/biome-agent/internal/telemetry"
)

func TestNewTurnID(t *testing.T) {
	a, b := telemetry.NewTurnID(), telemetry.NewTurnID()
	if a == b {
		t.Fatalf("turn ids repeat: %q", a)
	}
	rest, ok := strings.CutPrefix(a, "turn-")
	if !ok {
		t.Fatalf("missing turn- prefix: %q", a)
	}
	if _, err := uuid.Parse(rest); err != nil {
		t.Fatalf("suffix is not a uuid: %v", err)
	}
}

func TestTurnIDFromContext(t *testing.T) {
	type otherKey struct{}
	base := context.WithValue(context.Background(), otherKey{}, "kept")

	cases := []struct {
		name   string
		ctx    context.Context
		want   string
		wantOK bool
	}{
		{"missing", context.Background(), "", false},
		{"set", telemetry.WithTurnID(base, "turn-1"), "turn-1", true},
		{"empty_rejected", telemetry.WithTurnID(base, ""), "", false},
		{"innermost_wins", telemetry.WithTurnID(telemetry.WithTurnID(base, "turn-1"), "turn-2"), "turn-2", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := telemetry.TurnIDFromContext(tc.ctx)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("got %q,%v want %q,%v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
	if v := telemetry.WithTurnID(base, "turn-1").Value(otherKey{}); v != "kept" {
		t.Fatalf("unrelated value lost: %v", v)
	}
}

// A poller carries the turn id of the tool call that started it on its own
// long-lived context; ending the tool call must not end the poll.
func TestWithTurnID_MovesOntoDetachedContext(t *testing.T) {
	toolCtx, endCall := context.WithCancel(telemetry.WithTurnID(context.Background(), "turn-7"))
	pollerBase, stopPollers := context.WithCancel(context.Background())
	defer stopPollers()

	id, _ := telemetry.TurnIDFromContext(toolCtx)
	pollCtx := telemetry.WithTurnID(pollerBase, id)
	endCall()

	if pollCtx.Err() != nil {
		t.Fatal("poll context ended with the tool call")
	}
	if got, _ := telemetry.TurnIDFromContext(pollCtx); got != "turn-7" {
		t.Fatalf("turn id = %q", got)
	}
	stopPollers()
	if pollCtx.Err() == nil {
		t.Fatal("poll context should follow its own parent")
	}
}
