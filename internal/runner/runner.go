package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/provider"
	"github.com/petasbytes/biome-agent/internal/telemetry"
	"github.com/petasbytes/biome-agent/internal/windowing"
	"github.com/petasbytes/biome-agent/tools"
	"github.com/sirupsen/logrus"
)

// SystemPrompt frames the model as the Biome data-source assistant.
const SystemPrompt = `You are a chat assistant that helps an analyst with their questions.

You can look up information about the environment with the tools provided. Use them whenever you cannot answer reliably on your own; do not guess, check instead.

You are working in the Biome app. Biome is a collection of data sources, where a data source is a profiled website targeted at cancer research. The user may add new data sources, or ask you to browse the data sources and return relevant datasets or other information. A typical flow is to search the data sources, pick one, and run a task over its URL.

query_page and scan start background jobs. They return a job ID immediately and the user is notified when the job completes, so do not wait for or invent their results.`

// DefaultTokenBudget is the estimated input size a request's window may use.
const DefaultTokenBudget = 100000

type Runner struct {
	Client    *anthropic.Client
	Tools     []tools.ToolDefinition
	System    string
	MaxTokens int64
	// TokenBudget bounds the conversation window sent with each request, as
	// estimated by windowing.HeuristicCounter.
	TokenBudget int
	// Out receives assistant text as it arrives; nil means stdout.
	Out io.Writer
}

// Step is the outcome of one model call.
type Step struct {
	Message     *anthropic.Message
	ToolResults []anthropic.ContentBlockParamUnion
	// Stop is set when a tool ended the turn; ToolResults must still be
	// appended to the conversation but the model is not called again.
	Stop bool
}

func New(client *anthropic.Client, toolDefs []tools.ToolDefinition) *Runner {
	return &Runner{
		Client:      client,
		Tools:       toolDefs,
		System:      SystemPrompt,
		MaxTokens:   provider.DefaultMaxTokens,
		TokenBudget: DefaultTokenBudget,
	}
}

func (r *Runner) anthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.Tools))
	for _, t := range r.Tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// RunOneStep sends the newest part of the conversation that fits the token
// budget, prints text and executes any tool calls.
func (r *Runner) RunOneStep(ctx context.Context, model anthropic.Model, conv []anthropic.MessageParam) (Step, error) {
	if r.TokenBudget <= 0 {
		return Step{}, fmt.Errorf("windowing: token budget %d must be positive; set agent.token_budget", r.TokenBudget)
	}
	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = telemetry.NewTurnID()
		ctx = telemetry.WithTurnID(ctx, turnID)
	}

	// Tool exchanges are never split; older groups drop first.
	window, stats := windowing.PrepareSendWindow(conv, r.TokenBudget, windowing.HeuristicCounter{})
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	telemetry.Log().WithFields(logrus.Fields{
		"turn_id":        turnID,
		"budget":         stats.Budget,
		"est_total":      stats.Total,
		"groups_in":      stats.IncludedGroups,
		"groups_skipped": stats.SkippedGroups,
	}).Debug("window prepared")
	// The newest group is the prompt or the latest tool results; it must fit.
	if stats.OverBudgetNewest {
		return Step{}, fmt.Errorf("windowing: newest group exceeds agent.token_budget (%d); raise the budget or tighten the search caps", r.TokenBudget)
	}

	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = provider.DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  window,
		Tools:     r.anthropicTools(),
	}
	if r.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.System}}
	}

	start := time.Now()
	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		telemetry.Log().WithError(err).WithField("turn_id", turnID).Error("messages request failed")
		return Step{}, err
	}
	telemetry.Emit("model_call", map[string]any{
		"turn_id":       turnID,
		"model":         string(model),
		"messages":      len(window),
		"duration_ms":   time.Since(start).Milliseconds(),
		"stop_reason":   string(msg.StopReason),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
	})

	lc := &tools.LoopControl{}
	toolCtx := tools.WithLoopControl(ctx, lc)

	step := Step{Message: msg, ToolResults: []anthropic.ContentBlockParamUnion{}}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			fmt.Fprintf(r.out(), "\u001b[93mClaude\u001b[0m: %s\n", v.Text)
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through to the tool implementation
			input := json.RawMessage(v.JSON.Input.Raw())
			res := r.execTool(toolCtx, v.ID, v.Name, input)
			step.ToolResults = append(step.ToolResults, res)
		}
	}
	step.Stop = lc.Stopped()
	return step, nil
}

func (r *Runner) execTool(ctx context.Context, id, name string, input json.RawMessage) anthropic.ContentBlockParamUnion {
	var def *tools.ToolDefinition
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			def = &r.Tools[i]
			break
		}
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)

	emit := func(durationMs int64, inputSize int, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": durationMs,
			"input_size":  inputSize,
			"output_size": outputSize,
			"turn_id":     turnID,
		}
		if errStr != "" {
			fields["error"] = errStr
		} else {
			fields["error"] = nil
		}
		telemetry.Emit("tool_exec", fields)
	}

	start := time.Now()
	inSize := len(input)

	if def == nil {
		emit(time.Since(start).Milliseconds(), inSize, 0, "tool not found")
		return anthropic.NewToolResultBlock(id, "tool not found", true)
	}

	resp, err := def.Function(ctx, input)
	if err != nil {
		// Only the error code reaches telemetry; the model gets the full message.
		emit(time.Since(start).Milliseconds(), inSize, 0, errorCode(err))
		telemetry.Log().WithFields(logrus.Fields{"tool": name, "turn_id": turnID}).WithError(err).Debug("tool returned error")
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	outSize := len(resp)
	emit(time.Since(start).Milliseconds(), inSize, outSize, "")
	return anthropic.NewToolResultBlock(id, resp, false)
}

// errorCode is the telemetry label for a tool error.
func errorCode(err error) string {
	var te tools.ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return "tool error"
}
