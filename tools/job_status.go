package tools

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
)

type JobStatusInput struct {
	JobID string `json:"job_id" jsonschema_description:"Job ID returned by query_page or scan."`
}

var JobStatusInputSchema = GenerateSchema[JobStatusInput]()

const jobStatusDescription = `Check the current status of a Biome job started with query_page or scan.

Returns the job status (queued, started, finished, failed, ...) and whether the user will still be notified automatically. Results are not returned here.`

func (b *Biome) JobStatusDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "job_status",
		Description: jobStatusDescription,
		InputSchema: JobStatusInputSchema,
		Function:    b.JobStatus,
	}
}

type jobStatusOutput struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Watching bool   `json:"watching"`
}

// JobStatus performs one status check; it never starts or stops a poller.
func (b *Biome) JobStatus(ctx context.Context, input json.RawMessage) (string, error) {
	var in JobStatusInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	id := strings.TrimSpace(in.JobID)
	if id == "" {
		return "", invalidInput("job_id must not be empty")
	}
	job, err := b.Service.JobStatus(ctx, id)
	if err != nil {
		return "", upstreamError("job_status", err)
	}
	out, err := json.Marshal(jobStatusOutput{
		JobID:    id,
		Status:   string(job.Status),
		Watching: slices.Contains(b.Jobs.Outstanding(), id),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
