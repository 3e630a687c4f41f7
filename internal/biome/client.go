// Package biome is a typed HTTP client for the Biome data-source service.
//
// Every response is decoded into explicit records at the boundary; a missing
// required field surfaces as *MalformedError instead of a zero value.
// The client performs no retries.
package biome

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// DefaultBaseURL is the address of the service inside the Biome compose network.
const DefaultBaseURL = "http://biome_api:8082"

// NameField is the index field matched when re-fetching sources by name.
const NameField = "content.Web Page Descriptions.name"

// maxErrorBody bounds how much of a failed response is kept in APIError.
const maxErrorBody = 4096

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the service at baseURL. A nil httpClient gets a
// client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("biome: base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("biome: parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("biome: base URL %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Search returns the sources matching query, in the service's ranking order.
func (c *Client) Search(ctx context.Context, query string) ([]Source, error) {
	return c.listSources(ctx, url.Values{"query": {query}})
}

// SourcesByName re-fetches exactly the named sources. The order of the
// result is whatever the service returns.
func (c *Client) SourcesByName(ctx context.Context, names []string) ([]Source, error) {
	if len(names) == 0 {
		return nil, nil
	}
	sqs, err := simpleQueryString(names)
	if err != nil {
		return nil, err
	}
	return c.listSources(ctx, url.Values{"simple_query_string": {sqs}})
}

// SubmitQuery starts a query job that runs task against the page at pageURL.
func (c *Client) SubmitQuery(ctx context.Context, task, pageURL string) (string, error) {
	body := map[string]any{"user_task": task, "url": pageURL}
	return c.submit(ctx, "/jobs/query", body)
}

// SubmitScan starts a scan job that profiles pageURL as a new data source.
func (c *Client) SubmitScan(ctx context.Context, pageURL string) (string, error) {
	body := map[string]any{"uris": []string{pageURL}}
	return c.submit(ctx, "/jobs/scan", body)
}

// JobStatus fetches the current state of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (Job, error) {
	var raw struct {
		Status *JobStatus      `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, nil, &raw); err != nil {
		return Job{}, err
	}
	if raw.Status == nil || *raw.Status == "" {
		return Job{}, &MalformedError{Field: "status"}
	}
	return Job{ID: jobID, Status: *raw.Status, Result: raw.Result}, nil
}

func (c *Client) listSources(ctx context.Context, q url.Values) ([]Source, error) {
	var resp sourcesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sources", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Sources == nil {
		return nil, &MalformedError{Field: "sources"}
	}
	out := make([]Source, 0, len(*resp.Sources))
	for i, w := range *resp.Sources {
		s, err := w.toSource(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Client) submit(ctx context.Context, path string, body any) (string, error) {
	var created jobCreated
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &created); err != nil {
		return "", err
	}
	if created.JobID == "" {
		return "", &MalformedError{Field: "job_id"}
	}
	return created.JobID, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("biome: encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return fmt.Errorf("biome: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("biome: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("biome: decode %s %s: %w", method, path, err)
	}
	return nil
}

// phraseEscaper escapes the characters that are special inside a quoted
// simple_query_string phrase. Backslash goes first so escapes are not doubled.
var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// simpleQueryString builds the search-index query that matches any of the
// given names as whole phrases.
func simpleQueryString(names []string) (string, error) {
	phrases := make([]string, len(names))
	for i, n := range names {
		phrases[i] = `"` + phraseEscaper.Replace(n) + `"`
	}
	s, err := sjson.Set(`{}`, "fields", []string{NameField})
	if err != nil {
		return "", fmt.Errorf("biome: build simple_query_string: %w", err)
	}
	s, err = sjson.Set(s, "query", strings.Join(phrases, "|"))
	if err != nil {
		return "", fmt.Errorf("biome: build simple_query_string: %w", err)
	}
	return s, nil
}
