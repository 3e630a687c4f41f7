package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/petasbytes/biome-agent/internal/biome"
	"github.com/petasbytes/biome-agent/internal/biome/biometest"
	"github.com/petasbytes/biome-agent/internal/jobs"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/tools"
)

type env struct {
	srv   *biometest.Server
	queue *notify.Queue
	jobs  *jobs.Registry
	biome *tools.Biome
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := biometest.NewServer(t)
	c, err := biome.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	q := notify.NewQueue()
	reg := jobs.NewRegistry(&jobs.Poller{Client: c, Channel: q, Interval: 5 * time.Millisecond}, 0)
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	return &env{
		srv:   srv,
		queue: q,
		jobs:  reg,
		biome: &tools.Biome{Service: c, Jobs: reg, Channel: q},
	}
}

func (e *env) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.jobs.Wait(ctx); err != nil {
		t.Fatalf("pollers did not finish: %v", err)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func toolErrorCode(t *testing.T, err error) string {
	t.Helper()
	var te tools.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected ToolError, got %T: %v", err, err)
	}
	return te.Code
}
