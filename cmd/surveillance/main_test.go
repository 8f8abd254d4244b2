package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/surveillance/internal/config"
	"github.com/ehr/surveillance/internal/domain/surveillance"
)

type fixedReporter struct{}

func (fixedReporter) Report(_ context.Context, label string) (*surveillance.AggregatedResult, error) {
	return &surveillance.AggregatedResult{QueryLabel: label, TotalCount: 1}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "production",
		LogLevel:       "debug",
		TimeRangeYears: 2,
		RequestTimeout: time.Minute,
		Servers:        []config.ServerConfig{{Name: "hapi", BaseURL: "http://hapi.example/fhir"}},
		Queries:        []config.QueryConfig{{ID: "covid", Name: "COVID-19 Monitor"}},
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), fixedReporter{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != version {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestReportRouteMounted(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), fixedReporter{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/surveillance/report?query=covid", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"query_label":"COVID-19 Monitor"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()
	var buf bytes.Buffer

	logger := newLogger(cfg, &buf)
	logger.Debug().Msg("visible")
	if !strings.Contains(buf.String(), `"message":"visible"`) {
		t.Errorf("debug line missing: %s", buf.String())
	}

	buf.Reset()
	cfg.LogLevel = "bogus"
	logger = newLogger(cfg, &buf)
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug logged at default level: %s", buf.String())
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"run": false, "serve": false, "servers": false, "queries": false, "patient": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
