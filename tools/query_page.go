package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/petasbytes/biome-agent/internal/jobs"
	"github.com/tidwall/gjson"
)

type QueryPageInput struct {
	Task    string `json:"task" jsonschema_description:"Task given in natural language to perform over the URL."`
	BaseURL string `json:"base_url" jsonschema_description:"URL to run the task over."`
}

var QueryPageInputSchema = GenerateSchema[QueryPageInput]()

const queryPageDescription = `Run a task over a *specific* data source in the Biome app. Find the URL with the search tool first and pick the most relevant source.

Use this to ask questions about a data source or to download some kind of artifact from it. An AI crawls the website and performs the task.

This starts a long-running job and returns its job ID right away. The answer is delivered to the user automatically when the job completes; use job_status only if asked about progress.`

func (b *Biome) QueryPageDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "query_page",
		Description: queryPageDescription,
		InputSchema: QueryPageInputSchema,
		Function:    b.QueryPage,
	}
}

// QueryPage submits a query job and returns its id without waiting for it.
func (b *Biome) QueryPage(ctx context.Context, input json.RawMessage) (string, error) {
	var in QueryPageInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Task) == "" {
		return "", invalidInput("task must not be empty")
	}
	if err := validatePageURL("base_url", in.BaseURL); err != nil {
		return "", err
	}
	if err := b.accepting(); err != nil {
		return "", err
	}

	jobID, err := b.Service.SubmitQuery(ctx, in.Task, strings.TrimSpace(in.BaseURL))
	if err != nil {
		return "", upstreamError("query_page", err)
	}
	if err := b.startJob(ctx, jobID, jobs.KindQuery, QueryResultFormatter(jobID)); err != nil {
		return "", err
	}
	return jobID, nil
}

// QueryResultFormatter renders the answer of a finished query job.
func QueryResultFormatter(jobID string) jobs.Formatter {
	return func(result json.RawMessage) (string, error) {
		answer := gjson.GetBytes(result, "answer")
		if !answer.Exists() {
			return "", errors.New("query result has no answer")
		}
		return fmt.Sprintf("## Query Response\n%s\n\n#### ID: %s", answer.String(), jobID), nil
	}
}
