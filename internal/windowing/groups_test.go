package windowing_test

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/windowing"
)

func TestGroupBlocks(t *testing.T) {
	tests := []struct {
		name string
		msgs []anthropic.MessageParam
		want []windowing.Group
	}{
		{
			name: "search exchange between prompt and answer",
			msgs: []anthropic.MessageParam{
				user(text("find proteomics sources")),
				asst(call("s1", "search")),
				user(result("s1", `[{"name":"Proteomics Data Commons"}]`)),
				asst(text("Proteomics Data Commons looks best.")),
			},
			want: []windowing.Group{single(0), pair(1), single(3)},
		},
		{
			name: "parallel scan and query_page answered out of order",
			msgs: []anthropic.MessageParam{
				asst(text("Starting both."), call("s1", "scan"), call("q1", "query_page")),
				user(result("q1", "job-2"), result("s1", "job-1")),
			},
			want: []windowing.Group{pair(0)},
		},
		{
			name: "text after the results is allowed",
			msgs: []anthropic.MessageParam{
				asst(call("d1", "display")),
				user(result("d1", "Displayed 2 data sources."), text("[notification: data_sources]")),
			},
			want: []windowing.Group{pair(0)},
		},
		{
			name: "failed tool result still pairs",
			msgs: []anthropic.MessageParam{
				asst(call("d1", "display")),
				user(failed("d1", "ERR_NOT_FOUND: no data source named Nope")),
			},
			want: []windowing.Group{pair(0)},
		},
		{
			name: "notification between call and result",
			msgs: []anthropic.MessageParam{
				asst(call("s1", "scan")),
				jobNotice("job-1", "## Scan Response\nSUCCESS"),
				user(result("s1", "job-1")),
			},
			want: []windowing.Group{single(0), single(1), single(2)},
		},
		{
			name: "text before result",
			msgs: []anthropic.MessageParam{
				asst(call("s1", "scan")),
				user(text("wait"), result("s1", "job-1")),
			},
			want: []windowing.Group{single(0), single(1)},
		},
		{
			name: "one of two calls unanswered",
			msgs: []anthropic.MessageParam{
				asst(call("s1", "scan"), call("s2", "scan")),
				user(result("s1", "job-1")),
			},
			want: []windowing.Group{single(0), single(1)},
		},
		{
			name: "result for an unknown call",
			msgs: []anthropic.MessageParam{
				asst(call("s1", "scan")),
				user(result("s1", "job-1"), result("zz", "job-9")),
			},
			want: []windowing.Group{single(0), single(1)},
		},
		{
			name: "call at the end of the conversation",
			msgs: []anthropic.MessageParam{
				user(text("add example.org")),
				asst(call("s1", "scan")),
			},
			want: []windowing.Group{single(0), single(1)},
		},
		{
			name: "replayed transcript is all singletons",
			msgs: []anthropic.MessageParam{
				user(text("add example.org")),
				asst(text("Scan started.")),
				jobNotice("job-1", "## Scan Response\nSUCCESS"),
				user(text("did it work?")),
			},
			want: []windowing.Group{single(0), single(1), single(2), single(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowing.GroupBlocks(tt.msgs)
			if !groupsEqual(got, tt.want) {
				t.Fatalf("groups = %v, want %v", got, tt.want)
			}
		})
	}
}
