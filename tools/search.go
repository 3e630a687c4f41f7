package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The query used to find the data source."`
}

var SearchInputSchema = GenerateSchema[SearchInput]()

const searchDescription = `Search for data sources in the Biome app. Results are matched semantically and by string distance. Use this to find a data source; live web searches are not needed.

Returns a JSON list of data sources ordered from most relevant to least relevant, each with id, name, initials, purpose, links and base_url. Long link lists are cut short and report links_omitted. If more sources matched than are shown, a final line says so; narrow the query to see others.`

// Search caps keep a single tool result small enough for the send window.
const (
	DefaultSearchMaxResults = 10
	DefaultSearchMaxLinks   = 20
)

// searchTruncationSentinel follows the JSON list when sources were dropped.
const searchTruncationSentinel = "[search truncated: showing %d of %d data sources; narrow the query to see the rest]"

// SearchLimits bounds the search result. Zero fields use the defaults.
type SearchLimits struct {
	MaxResults int
	MaxLinks   int
}

func (l SearchLimits) maxResults() int {
	if l.MaxResults > 0 {
		return l.MaxResults
	}
	return DefaultSearchMaxResults
}

func (l SearchLimits) maxLinks() int {
	if l.MaxLinks > 0 {
		return l.MaxLinks
	}
	return DefaultSearchMaxLinks
}

// SearchHit is one entry of the search result.
type SearchHit struct {
	SourceSummary
	LinksOmitted int `json:"links_omitted,omitempty"`
}

func (b *Biome) SearchDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "search",
		Description: searchDescription,
		InputSchema: SearchInputSchema,
		Function:    b.Search,
	}
}

// Search looks up data sources and returns the best ranked summaries as a
// JSON list in the service's ranking order.
func (b *Biome) Search(ctx context.Context, input json.RawMessage) (string, error) {
	var in SearchInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", invalidInput("query must not be empty")
	}

	sources, err := b.Service.Search(ctx, in.Query)
	if err != nil {
		return "", upstreamError("search", err)
	}
	shown := sources
	if n := b.Limits.maxResults(); len(shown) > n {
		shown = shown[:n]
	}
	out := make([]SearchHit, 0, len(shown))
	for _, s := range shown {
		hit := SearchHit{SourceSummary: summarize(s)}
		hit.Links, hit.LinksOmitted = clampLinks(hit.Links, b.Limits.maxLinks())
		out = append(out, hit)
	}
	res, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	if len(shown) < len(sources) {
		return string(res) + "\n" + fmt.Sprintf(searchTruncationSentinel, len(shown), len(sources)), nil
	}
	return string(res), nil
}

// clampLinks keeps the first max entries of a links array. Anything that is
// not an array is passed through.
func clampLinks(links json.RawMessage, max int) (json.RawMessage, int) {
	arr := gjson.ParseBytes(links)
	if !arr.IsArray() {
		return links, 0
	}
	items := arr.Array()
	if len(items) <= max {
		return links, 0
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, it := range items[:max] {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(it.Raw)
	}
	sb.WriteByte(']')
	return json.RawMessage(sb.String()), len(items) - max
}
