package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// BundleEntry keeps the resource as raw JSON. Entries are decoded into typed
// views on demand so that a dataset stays an immutable record of what the
// server returned.
type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// NextLink returns the URL of the "next" link, or "" when the bundle is the
// last page. The URL is returned verbatim.
func (b *Bundle) NextLink() string {
	if b == nil {
		return ""
	}
	for _, l := range b.Link {
		if l.Relation == fhirmodels.LinkRelationNext {
			return l.URL
		}
	}
	return ""
}

// Header decodes the resourceType and id of the entry's resource.
func (e BundleEntry) Header() (Resource, error) {
	var r Resource
	if len(e.Resource) == 0 {
		return r, fmt.Errorf("entry %q has no resource", e.FullURL)
	}
	if err := json.Unmarshal(e.Resource, &r); err != nil {
		return r, fmt.Errorf("decode entry header: %w", err)
	}
	return r, nil
}

// Decode unmarshals the entry's resource into v.
func (e BundleEntry) Decode(v interface{}) error {
	if len(e.Resource) == 0 {
		return fmt.Errorf("entry %q has no resource", e.FullURL)
	}
	return json.Unmarshal(e.Resource, v)
}

// NewEntry marshals a resource into a BundleEntry, setting fullUrl from the
// resource's type and id when both are present.
func NewEntry(resource interface{}) (BundleEntry, error) {
	raw, err := json.Marshal(resource)
	if err != nil {
		return BundleEntry{}, fmt.Errorf("marshal entry: %w", err)
	}
	entry := BundleEntry{Resource: raw}
	var r Resource
	if err := json.Unmarshal(raw, &r); err == nil && r.ResourceType != "" && r.ID != "" {
		entry.FullURL = fmt.Sprintf("%s/%s", r.ResourceType, r.ID)
	}
	return entry, nil
}

// NewSearchBundle creates a searchset Bundle from a list of resources. A
// non-empty next URL is added as the "next" link.
func NewSearchBundle(resources []interface{}, next string) (*Bundle, error) {
	now := time.Now().UTC()
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		entry, err := NewEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	total := len(entries)
	b := &Bundle{
		ResourceType: fhirmodels.ResourceBundle,
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
	if next != "" {
		b.Link = append(b.Link, BundleLink{Relation: fhirmodels.LinkRelationNext, URL: next})
	}
	return b, nil
}
