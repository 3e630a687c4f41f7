package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/internal/runner"
	"github.com/petasbytes/biome-agent/internal/telemetry"
	"github.com/petasbytes/biome-agent/memory"
)

// session is the state of one interactive chat: the model conversation and
// the text-only transcript persisted after every turn.
type session struct {
	runner     *runner.Runner
	model      anthropic.Model
	queue      *notify.Queue
	transcript string

	persisted []memory.Message
	conv      []anthropic.MessageParam
}

func newSession(r *runner.Runner, model anthropic.Model, queue *notify.Queue, transcript string, persisted []memory.Message) *session {
	return &session{
		runner:     r,
		model:      model,
		queue:      queue,
		transcript: transcript,
		persisted:  persisted,
		conv:       memory.ToMessageParams(persisted),
	}
}

// deliver moves notifications pushed since the last call into the transcript
// and the model conversation. They were already printed when pushed.
func (s *session) deliver() {
	for _, n := range s.queue.Drain() {
		m := memory.FromNotification(n)
		s.persisted = append(s.persisted, m)
		s.conv = append(s.conv, anthropic.NewUserMessage(anthropic.NewTextBlock(memory.NotificationText(m))))
	}
}

// turn sends one user message and runs model steps until the model stops
// calling tools or a tool ends the turn.
func (s *session) turn(ctx context.Context, user string) error {
	ctx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())

	s.deliver()
	s.conv = append(s.conv, anthropic.NewUserMessage(anthropic.NewTextBlock(user)))

	// Track assistant visible text to persist after the turn
	var lastAssistantText string
	var turnErr error
	for {
		step, err := s.runner.RunOneStep(ctx, s.model, s.conv)
		if err != nil {
			turnErr = err
			break
		}
		s.conv = append(s.conv, step.Message.ToParam())
		for _, b := range step.Message.Content {
			if tb, ok := b.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
				if lastAssistantText == "" {
					lastAssistantText = tb.Text
				} else {
					lastAssistantText += "\n" + tb.Text
				}
			}
		}
		if len(step.ToolResults) == 0 {
			break // done with assistant turn
		}
		// Provide tool results as a user message back to the model
		s.conv = append(s.conv, anthropic.NewUserMessage(step.ToolResults...))
		if step.Stop {
			break
		}
	}

	s.persisted = append(s.persisted, memory.Message{Role: memory.RoleUser, Text: user})
	if strings.TrimSpace(lastAssistantText) != "" {
		s.persisted = append(s.persisted, memory.Message{Role: memory.RoleAssistant, Text: lastAssistantText})
	}
	// Anything displayed during the turn belongs after it.
	s.deliver()
	s.save()
	return turnErr
}

func (s *session) save() {
	if err := memory.SaveConversation(s.transcript, s.persisted); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save conversation: %v\n", err)
	}
}
