package windowing_test

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/internal/windowing"
	"github.com/petasbytes/biome-agent/memory"
)

func text(s string) anthropic.ContentBlockParamUnion {
	return anthropic.NewTextBlock(s)
}

// call is a tool_use block without input, so it costs len(name) plus overhead.
func call(id, name string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{ID: id, Name: name}}
}

func result(id, out string) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolResultBlock(id, out, false)
}

func failed(id, out string) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolResultBlock(id, out, true)
}

func asst(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.NewAssistantMessage(blocks...)
}

func user(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.NewUserMessage(blocks...)
}

// jobNotice is a delivered job notification as the model sees it.
func jobNotice(jobID, body string) anthropic.MessageParam {
	return user(text(memory.NotificationText(memory.Message{
		Role:  memory.RoleNotification,
		Topic: notify.TopicJobResponse,
		JobID: jobID,
		Text:  body,
	})))
}

func single(i int) windowing.Group {
	return windowing.Group{Kind: windowing.GroupSingleton, Start: i, End: i + 1}
}

func pair(i int) windowing.Group {
	return windowing.Group{Kind: windowing.GroupPair, Start: i, End: i + 2}
}

func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
