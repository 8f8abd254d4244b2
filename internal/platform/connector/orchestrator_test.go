package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/surveillance/internal/platform/fhir"
)

type fakeFetcher struct {
	datasets map[string]*ServerDataset
	errs     map[string]error
	panicOn  string
	seen     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, s ServerDescriptor) (*ServerDataset, error) {
	f.seen = append(f.seen, s.Name)
	if s.Name == f.panicOn {
		panic("boom")
	}
	if err := f.errs[s.Name]; err != nil {
		return nil, err
	}
	return f.datasets[s.Name], nil
}

func checkOutcomeInvariant(t *testing.T, o FetchOutcome) {
	t.Helper()
	if o.Success {
		if o.Dataset == nil || o.Error != "" {
			t.Errorf("%s: successful outcome must carry a dataset and no error: %+v", o.Server.Name, o)
		}
		return
	}
	if o.Dataset != nil || o.Error == "" {
		t.Errorf("%s: failed outcome must carry an error and no dataset: %+v", o.Server.Name, o)
	}
}

func TestRunAll_IsolatesFailuresAndPreservesOrder(t *testing.T) {
	f := &fakeFetcher{
		datasets: map[string]*ServerDataset{
			"a": {Conditions: []fhir.BundleEntry{{FullURL: "Condition/1"}}},
			"c": {},
		},
		errs: map[string]error{"b": errors.New("HTTP 502: Bad Gateway")},
	}
	servers := []ServerDescriptor{
		{Name: "a", BaseURL: "http://a"},
		{Name: "b", BaseURL: "http://b"},
		{Name: "c", BaseURL: "http://c"},
	}

	outcomes := NewOrchestrator(f, zerolog.Nop()).RunAll(context.Background(), servers)

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Server.Name != servers[i].Name {
			t.Errorf("outcome[%d] = %s, want %s", i, o.Server.Name, servers[i].Name)
		}
		checkOutcomeInvariant(t, o)
	}
	if !outcomes[0].Success || outcomes[1].Success || !outcomes[2].Success {
		t.Errorf("success flags = %v %v %v, want true false true",
			outcomes[0].Success, outcomes[1].Success, outcomes[2].Success)
	}
	if outcomes[1].Error != "HTTP 502: Bad Gateway" {
		t.Errorf("error = %q", outcomes[1].Error)
	}
	if len(f.seen) != 3 {
		t.Errorf("servers fetched = %v, want all three", f.seen)
	}
}

func TestRunAll_RecoversPanickingFetcher(t *testing.T) {
	f := &fakeFetcher{panicOn: "a", datasets: map[string]*ServerDataset{"b": {}}}
	outcomes := NewOrchestrator(f, zerolog.Nop()).RunAll(context.Background(), []ServerDescriptor{{Name: "a"}, {Name: "b"}})

	if outcomes[0].Success {
		t.Error("expected panicking server to be recorded as failed")
	}
	if !outcomes[1].Success {
		t.Error("expected next server to still be fetched")
	}
	for _, o := range outcomes {
		checkOutcomeInvariant(t, o)
	}
}

func TestRunAll_NilDatasetBecomesEmpty(t *testing.T) {
	f := &fakeFetcher{}
	outcomes := NewOrchestrator(f, zerolog.Nop()).RunAll(context.Background(), []ServerDescriptor{{Name: "x"}})
	if !outcomes[0].Success || outcomes[0].Dataset == nil {
		t.Fatalf("outcome = %+v", outcomes[0])
	}
	if outcomes[0].Dataset.Size() != 0 {
		t.Errorf("Size() = %d, want 0", outcomes[0].Dataset.Size())
	}
}

func TestFailed_EmptyErrorStillReported(t *testing.T) {
	o := Failed(ServerDescriptor{Name: "x"}, nil)
	if o.Error == "" || o.Success {
		t.Errorf("Failed(nil) = %+v", o)
	}
}
