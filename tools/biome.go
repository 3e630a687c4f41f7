package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/petasbytes/biome-agent/internal/biome"
	"github.com/petasbytes/biome-agent/internal/jobs"
	"github.com/petasbytes/biome-agent/internal/notify"
)

// SourceService is the subset of the Biome client the tools call.
type SourceService interface {
	Search(ctx context.Context, query string) ([]biome.Source, error)
	SourcesByName(ctx context.Context, names []string) ([]biome.Source, error)
	SubmitQuery(ctx context.Context, task, pageURL string) (string, error)
	SubmitScan(ctx context.Context, pageURL string) (string, error)
	JobStatus(ctx context.Context, jobID string) (biome.Job, error)
}

// JobTracker starts background pollers for submitted jobs.
type JobTracker interface {
	Accepting() error
	Start(ctx context.Context, jobID string, kind jobs.Kind, format jobs.Formatter) error
	Outstanding() []string
}

// Biome bundles what the Biome tools need from the session.
type Biome struct {
	Service SourceService
	Jobs    JobTracker
	Channel notify.Channel
	Limits  SearchLimits
}

// SourceSummary is the projection of a source returned to the model by search.
// Only these fields are exposed, to keep the model's context small.
type SourceSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Initials string          `json:"initials"`
	Purpose  string          `json:"purpose"`
	Links    json.RawMessage `json:"links"`
	BaseURL  *string         `json:"base_url"`
}

// SourceRecord is the projection shown to the user by display.
type SourceRecord struct {
	SourceSummary
	Logo *string `json:"logo"`
}

func summarize(s biome.Source) SourceSummary {
	return SourceSummary{
		ID:       s.ID,
		Name:     s.Description.Name,
		Initials: s.Description.Initials,
		Purpose:  s.Description.Purpose,
		Links:    s.Links,
		BaseURL:  s.BaseURL,
	}
}

func record(s biome.Source) SourceRecord {
	return SourceRecord{SourceSummary: summarize(s), Logo: s.Logo}
}

// upstreamError classifies an error returned by the Biome service.
func upstreamError(op string, err error) error {
	var me *biome.MalformedError
	if errors.As(err, &me) {
		return ToolError{Code: ErrCodeUpstreamMalformed, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}
	return ToolError{Code: ErrCodeUpstream, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

func invalidInput(format string, args ...any) error {
	return ToolError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// decodeInput unmarshals input into v, reporting malformed JSON as invalid input.
func decodeInput(input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return invalidInput("malformed input: %v", err)
	}
	return nil
}

// validatePageURL requires an absolute http(s) URL.
func validatePageURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalidInput("%s must not be empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalidInput("%s is not a URL: %v", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidInput("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// startJob hands a freshly submitted job to the tracker. The job already
// exists remotely, so a tracking failure still reports its id.
func (b *Biome) startJob(ctx context.Context, jobID string, kind jobs.Kind, format jobs.Formatter) error {
	if err := b.Jobs.Start(ctx, jobID, kind, format); err != nil {
		return ToolError{
			Code:    ErrCodeJobRejected,
			Message: fmt.Sprintf("job %s was submitted but will not be watched (%v); check it with job_status", jobID, err),
			Err:     err,
		}
	}
	return nil
}

func (b *Biome) accepting() error {
	if err := b.Jobs.Accepting(); err != nil {
		return ToolError{Code: ErrCodeJobRejected, Message: err.Error(), Err: err}
	}
	return nil
}
