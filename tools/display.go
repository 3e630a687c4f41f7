package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/tidwall/gjson"
)

type DisplayInput struct {
	Results []string `json:"results" jsonschema_description:"Names of the data sources to show, in the order they should be shown."`
}

var DisplayInputSchema = GenerateSchema[DisplayInput]()

const displayDescription = `Show data sources to the user. Pass the names of data sources found with search, most relevant first.

The full records are shown directly to the user, so do not repeat them afterwards. This ends your turn.`

func (b *Biome) DisplayDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "display",
		Description: displayDescription,
		InputSchema: DisplayInputSchema,
		Function:    b.Display,
	}
}

// Display re-fetches the named sources, pushes them to the user in the
// requested order and ends the turn. A name the service does not return is
// an error; nothing is shown in that case.
func (b *Biome) Display(ctx context.Context, input json.RawMessage) (string, error) {
	names, err := displayNames(input)
	if err != nil {
		return "", err
	}

	sources, err := b.Service.SourcesByName(ctx, uniq(names))
	if err != nil {
		return "", upstreamError("display", err)
	}
	byName := make(map[string]SourceRecord, len(sources))
	for _, s := range sources {
		if _, dup := byName[s.Description.Name]; !dup {
			byName[s.Description.Name] = record(s)
		}
	}

	ordered := make([]SourceRecord, 0, len(names))
	var missing []string
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		ordered = append(ordered, r)
	}
	if len(missing) > 0 {
		return "", ToolError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no data source named %s; use exact names from search", quoteList(missing)),
		}
	}

	payload := map[string]any{
		"data_sources": ordered,
		"response":     renderSources(ordered),
	}
	if err := b.Channel.Push(notify.ChannelIOPub, notify.TopicDataSources, payload); err != nil {
		return "", fmt.Errorf("display: push: %w", err)
	}
	if lc, ok := LoopControlFromContext(ctx); ok {
		lc.StopSuccess()
	}
	return fmt.Sprintf("Displayed %d data sources to the user.", len(ordered)), nil
}

// displayNames accepts a bare JSON array of names, {"results": [...]}, or the
// same envelope nested once more, and returns the names.
func displayNames(input json.RawMessage) ([]string, error) {
	if !gjson.ValidBytes(input) {
		return nil, invalidInput("malformed input")
	}
	v := gjson.ParseBytes(input)
	for i := 0; i < 2 && v.IsObject(); i++ {
		v = v.Get("results")
	}
	if !v.IsArray() {
		return nil, invalidInput("results must be a list of data source names")
	}
	var names []string
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			return nil, invalidInput("results must contain only names, got %s", item.Raw)
		}
		n := strings.TrimSpace(item.String())
		if n == "" {
			return nil, invalidInput("results must not contain empty names")
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, invalidInput("results must not be empty")
	}
	return names, nil
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

func renderSources(rs []SourceRecord) string {
	var sb strings.Builder
	sb.WriteString("## Data Sources\n")
	for i, r := range rs {
		fmt.Fprintf(&sb, "\n%d. **%s** (%s)", i+1, r.Name, r.Initials)
		if r.BaseURL != nil && *r.BaseURL != "" {
			fmt.Fprintf(&sb, " %s", *r.BaseURL)
		}
		if r.Purpose != "" {
			fmt.Fprintf(&sb, "\n   %s", r.Purpose)
		}
	}
	return sb.String()
}
