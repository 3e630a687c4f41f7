package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/biome-agent/internal/jobs"
)

type ScanInput struct {
	BaseURL string `json:"base_url" jsonschema_description:"The URL to scan and add as a data source."`
}

var ScanInputSchema = GenerateSchema[ScanInput]()

const scanDescription = `Profile the given web page and add it to the data sources in the Biome app.

This starts a long-running job and returns its job ID right away. The user is notified automatically when the scan completes.`

func (b *Biome) ScanDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "scan",
		Description: scanDescription,
		InputSchema: ScanInputSchema,
		Function:    b.Scan,
	}
}

// Scan submits a scan job and returns its id without waiting for it.
func (b *Biome) Scan(ctx context.Context, input json.RawMessage) (string, error) {
	var in ScanInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	if err := validatePageURL("base_url", in.BaseURL); err != nil {
		return "", err
	}
	if err := b.accepting(); err != nil {
		return "", err
	}

	jobID, err := b.Service.SubmitScan(ctx, strings.TrimSpace(in.BaseURL))
	if err != nil {
		return "", upstreamError("scan", err)
	}
	if err := b.startJob(ctx, jobID, jobs.KindScan, ScanResultFormatter(jobID)); err != nil {
		return "", err
	}
	return jobID, nil
}

// ScanResultFormatter renders a finished scan. The scan result itself is not
// shown; the new source becomes visible through search.
func ScanResultFormatter(jobID string) jobs.Formatter {
	return func(json.RawMessage) (string, error) {
		return fmt.Sprintf("## Scan Response\nSUCCESS\n\n#### ID: %s", jobID), nil
	}
}
