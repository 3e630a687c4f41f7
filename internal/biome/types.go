package biome

import (
	"encoding/json"
	"fmt"
)

// JobStatus is the lifecycle state reported by the Biome job scheduler.
// Values other than the constants below are passed through verbatim.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobStarted  JobStatus = "started"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

// Pending reports whether the job has not reached a terminal state yet.
func (s JobStatus) Pending() bool {
	return s == JobQueued || s == JobStarted
}

// Job is a snapshot of GET /jobs/<id>. Result is only meaningful when
// Status is JobFinished.
type Job struct {
	ID     string          `json:"-"`
	Status JobStatus       `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Description is the "Web Page Descriptions" block of a source profile.
type Description struct {
	Name     string `json:"name"`
	Initials string `json:"initials"`
	Purpose  string `json:"purpose"`
}

// Source is one profiled website as returned by GET /sources.
type Source struct {
	ID          string
	Description Description
	Links       json.RawMessage
	BaseURL     *string
	Logo        *string
}

// wireSource mirrors the upstream payload. Pointers and RawMessage let
// validate tell a missing field apart from an empty one.
type wireSource struct {
	ID      json.RawMessage `json:"id"`
	Content *struct {
		Descriptions *struct {
			Name     *string `json:"name"`
			Initials *string `json:"initials"`
			Purpose  *string `json:"purpose"`
		} `json:"Web Page Descriptions"`
		Links json.RawMessage `json:"Information on Links on Web Page"`
	} `json:"content"`
	BaseURL *string `json:"base_url"`
	Logo    *string `json:"logo"`
}

type sourcesResponse struct {
	Sources *[]wireSource `json:"sources"`
}

type jobCreated struct {
	JobID string `json:"job_id"`
}

// toSource validates w and converts it. idx is the position in the
// upstream list and only used for error messages.
func (w wireSource) toSource(idx int) (Source, error) {
	field := func(name string) error {
		return &MalformedError{Field: fmt.Sprintf("sources[%d].%s", idx, name)}
	}
	if len(w.ID) == 0 || string(w.ID) == "null" {
		return Source{}, field("id")
	}
	if w.Content == nil {
		return Source{}, field("content")
	}
	d := w.Content.Descriptions
	if d == nil {
		return Source{}, field("content.Web Page Descriptions")
	}
	switch {
	case d.Name == nil:
		return Source{}, field("content.Web Page Descriptions.name")
	case d.Initials == nil:
		return Source{}, field("content.Web Page Descriptions.initials")
	case d.Purpose == nil:
		return Source{}, field("content.Web Page Descriptions.purpose")
	}
	if len(w.Content.Links) == 0 {
		return Source{}, field("content.Information on Links on Web Page")
	}

	// Upstream ids have been seen as both strings and numbers.
	var id string
	if err := json.Unmarshal(w.ID, &id); err != nil {
		id = string(w.ID)
	}
	return Source{
		ID: id,
		Description: Description{
			Name:     *d.Name,
			Initials: *d.Initials,
			Purpose:  *d.Purpose,
		},
		Links:   w.Content.Links,
		BaseURL: w.BaseURL,
		Logo:    w.Logo,
	}, nil
}
