// Package connector retrieves clinical resources from remote FHIR servers.
//
// The retrieval model is sequential: servers are visited one at a time and,
// within a server, resource kinds and pages are fetched one after another.
// Termination against misbehaving servers is guaranteed by a fixed page
// ceiling and a fixed per-request timeout.
package connector

import (
	"errors"
	"fmt"

	"github.com/ehr/surveillance/internal/platform/fhir"
)

// ServerDescriptor identifies one remote FHIR server.
type ServerDescriptor struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Enabled bool   `json:"enabled"`
}

// ServerDataset is the raw result of fetching one server. Each slice keeps
// the entries in the order the server returned them.
type ServerDataset struct {
	Patients     []fhir.BundleEntry `json:"patients"`
	Conditions   []fhir.BundleEntry `json:"conditions"`
	Observations []fhir.BundleEntry `json:"observations"`
	Encounters   []fhir.BundleEntry `json:"encounters"`
}

// Size returns the total number of entries across all four resource lists.
func (d *ServerDataset) Size() int {
	if d == nil {
		return 0
	}
	return len(d.Patients) + len(d.Conditions) + len(d.Observations) + len(d.Encounters)
}

// FetchOutcome records the result of fetching one server. Dataset is set iff
// Success is true; Error is set iff Success is false. Use Succeeded and
// Failed to construct values.
type FetchOutcome struct {
	Server  ServerDescriptor `json:"server"`
	Success bool             `json:"success"`
	Dataset *ServerDataset   `json:"dataset,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Succeeded builds a successful outcome. A nil dataset is replaced by an
// empty one so that Dataset is always present on success.
func Succeeded(server ServerDescriptor, ds *ServerDataset) FetchOutcome {
	if ds == nil {
		ds = &ServerDataset{}
	}
	return FetchOutcome{Server: server, Success: true, Dataset: ds}
}

// Failed builds a failed outcome from err.
func Failed(server ServerDescriptor, err error) FetchOutcome {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return FetchOutcome{Server: server, Success: false, Error: msg}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrMalformedBundle is returned when a response body is not a decodable
// Bundle.
var ErrMalformedBundle = errors.New("malformed bundle")

// ErrUnreachable wraps transport-level failures (DNS, connection refused,
// timeout).
var ErrUnreachable = errors.New("server unreachable")

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
