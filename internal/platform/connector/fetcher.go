package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// PageSource is the subset of Paginator the ServerFetcher needs.
type PageSource interface {
	FetchAll(ctx context.Context, baseURL, resourceType string, params url.Values) ([]fhir.BundleEntry, error)
	FetchOne(ctx context.Context, baseURL, resourceType, id string) (json.RawMessage, error)
}

// ServerFetcher fetches the four resource kinds of one server.
type ServerFetcher struct {
	pages      PageSource
	rangeYears int
	now        func() time.Time
}

// NewServerFetcher creates a fetcher whose date filter reaches back
// rangeYears years from now.
func NewServerFetcher(pages PageSource, rangeYears int) *ServerFetcher {
	return &ServerFetcher{pages: pages, rangeYears: rangeYears, now: time.Now}
}

// WithClock replaces the clock used to compute the date filter.
func (f *ServerFetcher) WithClock(now func() time.Time) *ServerFetcher {
	f.now = now
	return f
}

// DateFilter returns the ISO date (YYYY-MM-DD) the time-bound queries start
// from.
func (f *ServerFetcher) DateFilter() string {
	return f.now().AddDate(-f.rangeYears, 0, 0).Format("2006-01-02")
}

// Fetch retrieves patients (unfiltered), conditions, laboratory observations
// and encounters. Any failing resource fetch fails the whole server.
func (f *ServerFetcher) Fetch(ctx context.Context, server ServerDescriptor) (*ServerDataset, error) {
	since := "ge" + f.DateFilter()
	ds := &ServerDataset{}

	steps := []struct {
		resourceType string
		params       url.Values
		dst          *[]fhir.BundleEntry
	}{
		{fhirmodels.ResourcePatient, url.Values{}, &ds.Patients},
		{fhirmodels.ResourceCondition, url.Values{
			fhirmodels.SearchParamRecordedDate: {since},
		}, &ds.Conditions},
		{fhirmodels.ResourceObservation, url.Values{
			fhirmodels.SearchParamDate:     {since},
			fhirmodels.SearchParamCategory: {fhirmodels.ObsCategoryLaboratory},
		}, &ds.Observations},
		{fhirmodels.ResourceEncounter, url.Values{
			fhirmodels.SearchParamDate: {since},
		}, &ds.Encounters},
	}

	for _, s := range steps {
		entries, err := f.pages.FetchAll(ctx, server.BaseURL, s.resourceType, s.params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", server.Name, err)
		}
		*s.dst = entries
	}
	return ds, nil
}

// FetchPatient reads a single Patient by id from the server.
func (f *ServerFetcher) FetchPatient(ctx context.Context, server ServerDescriptor, id string) (fhir.Patient, error) {
	var p fhir.Patient
	raw, err := f.pages.FetchOne(ctx, server.BaseURL, fhirmodels.ResourcePatient, id)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode Patient/%s: %w", id, err)
	}
	return p, nil
}
