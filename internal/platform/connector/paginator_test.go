package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/surveillance/internal/platform/fhir"
)

func patients(ids ...string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = fhir.Patient{ResourceType: "Patient", ID: id}
	}
	return out
}

func writeBundle(t *testing.T, w http.ResponseWriter, resources []interface{}, next string) {
	t.Helper()
	b, err := fhir.NewSearchBundle(resources, next)
	if err != nil {
		t.Fatalf("NewSearchBundle: %v", err)
	}
	w.Header().Set("Content-Type", "application/fhir+json")
	json.NewEncoder(w).Encode(b)
}

func entryIDs(t *testing.T, entries []fhir.BundleEntry) []string {
	t.Helper()
	ids := make([]string, len(entries))
	for i, e := range entries {
		hdr, err := e.Header()
		if err != nil {
			t.Fatalf("Header: %v", err)
		}
		ids[i] = hdr.ID
	}
	return ids
}

func newTestPaginator() *Paginator {
	return NewPaginator(nil, zerolog.Nop())
}

func closedServerURL() string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := srv.URL
	srv.Close()
	return u
}

func TestFetchAll_FollowsNextLinksInOrder(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			writeBundle(t, w, patients("p1", "p2"), srv.URL+"/Patient?page=2")
		case "2":
			writeBundle(t, w, patients("p3", "p4"), srv.URL+"/Patient?page=3")
		case "3":
			writeBundle(t, w, patients("p5"), "")
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Patient", nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	got := entryIDs(t, entries)
	want := []string{"p1", "p2", "p3", "p4", "p5"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFetchAll_FirstPageTransportErrorPropagates(t *testing.T) {
	_, err := newTestPaginator().FetchAll(context.Background(), closedServerURL(), "Patient", nil)
	if err == nil {
		t.Fatal("expected error when first page is unreachable")
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestFetchAll_FirstPageHTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Condition", nil)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", statusErr.StatusCode)
	}
}

func TestFetchAll_FirstPageMalformedPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Patient", nil)
	if !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("expected ErrMalformedBundle, got %v", err)
	}
}

func TestFetchAll_ContinuationTransportErrorKeepsPartialResult(t *testing.T) {
	dead := closedServerURL()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBundle(t, w, patients("a", "b", "c"), dead+"/Patient?page=2")
	}))
	defer srv.Close()

	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Patient", nil)
	if err != nil {
		t.Fatalf("expected no error on continuation failure, got %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
}

func TestFetchAll_ContinuationMalformedKeepsPartialResult(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"resourceType":"Bundle","entry":[{"resource":`))
			return
		}
		writeBundle(t, w, patients("a", "b"), srv.URL+"/Patient?page=2")
	}))
	defer srv.Close()

	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Patient", nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestFetchAll_StopsAtPageCeiling(t *testing.T) {
	var requests int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		writeBundle(t, w, patients(fmt.Sprintf("p%d", n)), srv.URL+"/Patient?page="+strconv.Itoa(int(n)+1))
	}))
	defer srv.Close()

	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Patient", nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != MaxPages {
		t.Errorf("requests = %d, want %d", got, MaxPages)
	}
	if len(entries) != MaxPages {
		t.Errorf("entries = %d, want %d", len(entries), MaxPages)
	}
}

func TestFetchAll_SendsParamsAndFollowsNextVerbatim(t *testing.T) {
	const opaque = "_getpages=4f1c-token&_getpagesoffset=1000&_bundletype=searchset"
	var firstQuery url.Values
	var secondRaw, accept string

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fhir" {
			secondRaw = r.URL.RawQuery
			writeBundle(t, w, patients("c2"), "")
			return
		}
		firstQuery = r.URL.Query()
		accept = r.Header.Get("Accept")
		writeBundle(t, w, patients("c1"), srv.URL+"/fhir?"+opaque)
	}))
	defer srv.Close()

	params := url.Values{"recorded-date": {"ge2022-06-01"}}
	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL+"/", "Condition", params)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if firstQuery.Get("_count") != "1000" {
		t.Errorf("_count = %q, want 1000", firstQuery.Get("_count"))
	}
	if firstQuery.Get("recorded-date") != "ge2022-06-01" {
		t.Errorf("recorded-date = %q", firstQuery.Get("recorded-date"))
	}
	if accept != "application/fhir+json" {
		t.Errorf("Accept = %q", accept)
	}
	if secondRaw != opaque {
		t.Errorf("next link query = %q, want verbatim %q", secondRaw, opaque)
	}
}

func TestFetchAll_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resourceType":"Bundle","type":"searchset","total":0}`))
	}))
	defer srv.Close()

	entries, err := newTestPaginator().FetchAll(context.Background(), srv.URL, "Encounter", nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestFetchOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Patient/p-7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"resourceType":"Patient","id":"p-7","gender":"male"}`))
	}))
	defer srv.Close()

	raw, err := newTestPaginator().FetchOne(context.Background(), srv.URL, "Patient", "p-7")
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	var p fhir.Patient
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Gender != "male" {
		t.Errorf("gender = %q, want male", p.Gender)
	}

	if _, err := newTestPaginator().FetchOne(context.Background(), srv.URL, "Patient", "missing"); err == nil {
		t.Error("expected error for missing patient")
	}
}
