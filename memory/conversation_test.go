package memory_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/memory"
	"github.com/tidwall/gjson"
)

func TestConversation_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "conv.json")

	in := []memory.Message{
		{Role: memory.RoleUser, Text: "scan example.org"},
		{Role: memory.RoleAssistant, Text: "Started job-42."},
		{Role: memory.RoleNotification, Text: "## Scan Response\nSUCCESS", Topic: notify.TopicJobResponse, JobID: "job-42"},
	}
	if err := memory.SaveConversation(p, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestConversation_LoadMissing_ReturnsNil(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "does-not-exist.json")

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("expected missing file in tempdir")
	}

	msgs, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected nil slice for missing file, got %#v", msgs)
	}
}

func TestConversation_LoadInvalidJSON_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(p, []byte("{oops"), 0o664); err != nil {
		t.Fatalf("prep: %v", err)
	}
	if _, err := memory.LoadConversation(p); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestConversation_OlderTranscriptsStillLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "old.json")
	if err := os.WriteFile(p, []byte(`[{"role":"user","text":"hi"},{"role":"assistant","text":"hello"}]`), 0o644); err != nil {
		t.Fatalf("prep: %v", err)
	}
	msgs, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Topic != "" || msgs[1].JobID != "" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestFromNotification(t *testing.T) {
	n := notify.Notification{
		Channel: notify.ChannelIOPub,
		Topic:   notify.TopicJobResponse,
		Payload: map[string]any{"job_id": "job-42", "status": "finished", "response": "## Scan Response\nSUCCESS\n\n#### ID: job-42"},
	}
	m := memory.FromNotification(n)
	if m.Role != memory.RoleNotification || m.JobID != "job-42" || m.Topic != notify.TopicJobResponse {
		t.Fatalf("unexpected message %+v", m)
	}
	if !strings.Contains(m.Text, "SUCCESS") {
		t.Fatalf("text = %q", m.Text)
	}

	ds := memory.FromNotification(notify.Notification{Topic: notify.TopicDataSources, Payload: map[string]any{"response": "## Data Sources"}})
	if ds.JobID != "" || ds.Topic != notify.TopicDataSources {
		t.Fatalf("unexpected message %+v", ds)
	}
}

func TestToMessageParams_ReplaysNotificationsAsUserContext(t *testing.T) {
	msgs := []memory.Message{
		{Role: memory.RoleUser, Text: "scan example.org"},
		{Role: memory.RoleAssistant, Text: "Started job-42."},
		{Role: memory.RoleNotification, Text: "SUCCESS", Topic: notify.TopicJobResponse, JobID: "job-42"},
	}
	conv := memory.ToMessageParams(msgs)
	if len(conv) != 3 {
		t.Fatalf("expected 3 params, got %d", len(conv))
	}
	b, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	roles := gjson.GetBytes(b, "#.role").String()
	if roles != `["user","assistant","user"]` {
		t.Fatalf("roles = %s", roles)
	}
	text := gjson.GetBytes(b, "2.content.0.text").String()
	if !strings.Contains(text, "job-42") || !strings.Contains(text, "SUCCESS") || !strings.Contains(text, notify.TopicJobResponse) {
		t.Fatalf("notification text = %q", text)
	}
}
