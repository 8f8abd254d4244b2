// Package reporting renders surveillance results as JSON, flat CSV, and text
// summaries, writes them to timestamped files, and serves them over HTTP.
package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ehr/surveillance/internal/domain/surveillance"
)

// CSVHeader is the header row of every CSV report.
var CSVHeader = []string{"category", "bucket", "count", "percentage"}

// FileTimestampLayout formats the timestamp part of output file names.
const FileTimestampLayout = "2006-01-02T15-04-05"

var hundred = decimal.NewFromInt(100)

// Percentage renders count/total as a percentage with one decimal place and
// a trailing "%". A zero total yields "0.0%".
func Percentage(count, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	p := decimal.NewFromInt(int64(count)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
	return p.StringFixed(1) + "%"
}

// Row is one line of the flat report: a bucket of a named distribution.
type Row struct {
	Category   string `json:"category"`
	Bucket     string `json:"bucket"`
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

// Age bands follow AgeBands. The detailed age groups ("0-9" … "80+") and the
// date distributions sort correctly by key. Everything else is ordered by
// count.
var chronological = map[string]bool{
	surveillance.DistAgeDetailed:  true,
	surveillance.DistMonthlyTrend: true,
	surveillance.DistQuarter:      true,
}

func orderedBuckets(name string, d surveillance.Distribution) []surveillance.Bucket {
	switch {
	case name == surveillance.DistAge:
		return d.ByRank(surveillance.AgeBands)
	case chronological[name]:
		return d.ByLabel()
	}
	return d.ByCount()
}

// Rows flattens every distribution of r into report rows, distributions in
// report order.
func Rows(r *surveillance.AggregatedResult) []Row {
	var rows []Row
	for _, nd := range r.Named() {
		for _, b := range orderedBuckets(nd.Name, nd.Distribution) {
			rows = append(rows, Row{
				Category:   nd.Name,
				Bucket:     b.Label,
				Count:      b.Count,
				Percentage: Percentage(b.Count, r.TotalCount),
			})
		}
	}
	return rows
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *surveillance.AggregatedResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// WriteCSV writes the flat four-column report of r.
func WriteCSV(w io.Writer, r *surveillance.AggregatedResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range Rows(r) {
		rec := []string{row.Category, row.Bucket, strconv.Itoa(row.Count), row.Percentage}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ---------------------------------------------------------------------------
// Text summary
// ---------------------------------------------------------------------------

type summarySection struct {
	name  string
	title string
	limit int  // 0 keeps every bucket
	last  bool // keep the last limit buckets instead of the first
}

var summarySections = []summarySection{
	{name: surveillance.DistAge, title: "Age distribution"},
	{name: surveillance.DistGender, title: "Gender distribution"},
	{name: surveillance.DistEncounterType, title: "Encounter type distribution"},
	{name: surveillance.DistDisease, title: "Disease distribution"},
	{name: surveillance.DistAgeDetailed, title: "Detailed age distribution (10-year bands)"},
	{name: surveillance.DistSeverity, title: "Severity distribution"},
	{name: surveillance.DistQuarter, title: "Diagnosis date distribution (by quarter)"},
	{name: surveillance.DistMonthlyTrend, title: "Monthly trend (latest 6 months)", limit: 6, last: true},
	{name: surveillance.DistResidence, title: "Residence (top 10)", limit: 10},
	{name: surveillance.DistResidenceDetailed, title: "Detailed residence (top 5)", limit: 5},
}

// Summary renders r as human-readable lines. A result with no records yields
// a single "no data" line followed by the server breakdown.
func Summary(r *surveillance.AggregatedResult) []string {
	lines := []string{fmt.Sprintf("%s (%s)", r.QueryLabel, r.TimeRange)}
	if r.Description != "" {
		lines = append(lines, r.Description)
	}

	if r.TotalCount == 0 {
		lines = append(lines, "no data: no matching records in the time range")
		return append(lines, serverLines(r)...)
	}

	lines = append(lines, fmt.Sprintf("Total: %d", r.TotalCount))
	if r.SyntheticCount > 0 {
		lines = append(lines, fmt.Sprintf("Records using synthetic stand-ins: %d (%s)",
			r.SyntheticCount, Percentage(r.SyntheticCount, r.TotalCount)))
	}

	byName := make(map[string]surveillance.Distribution)
	for _, nd := range r.Named() {
		byName[nd.Name] = nd.Distribution
	}

	for _, s := range summarySections {
		buckets := orderedBuckets(s.name, byName[s.name])
		if len(buckets) == 0 {
			continue
		}
		if s.limit > 0 && len(buckets) > s.limit {
			if s.last {
				buckets = buckets[len(buckets)-s.limit:]
			} else {
				buckets = buckets[:s.limit]
			}
		}
		lines = append(lines, s.title+":")
		for _, b := range buckets {
			lines = append(lines, fmt.Sprintf("  %s: %d (%s)", b.Label, b.Count, Percentage(b.Count, r.TotalCount)))
		}
	}
	return append(lines, serverLines(r)...)
}

func serverLines(r *surveillance.AggregatedResult) []string {
	if len(r.ServerBreakdown) == 0 {
		return nil
	}
	lines := []string{"Sources:"}
	for _, s := range r.ServerBreakdown {
		if s.Status == surveillance.StatusSuccess && s.Count != nil {
			lines = append(lines, fmt.Sprintf("  %s: %d records", s.ServerName, *s.Count))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: failed (%s)", s.ServerName, s.Error))
	}
	return lines
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// FileWriter saves results under a directory as <label>_<timestamp>.json and
// .csv.
type FileWriter struct {
	Dir  string
	JSON bool
	CSV  bool
	Now  func() time.Time
}

// Save writes the enabled formats of r and returns the written paths.
func (fw FileWriter) Save(r *surveillance.AggregatedResult) ([]string, error) {
	if !fw.JSON && !fw.CSV {
		return nil, nil
	}
	if err := os.MkdirAll(fw.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	now := time.Now
	if fw.Now != nil {
		now = fw.Now
	}
	base := filepath.Join(fw.Dir, fmt.Sprintf("%s_%s", FileLabel(r.QueryLabel), now().UTC().Format(FileTimestampLayout)))

	var paths []string
	if fw.JSON {
		p := base + ".json"
		if err := writeFile(p, func(w io.Writer) error { return WriteJSON(w, r) }); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if fw.CSV {
		p := base + ".csv"
		if err := writeFile(p, func(w io.Writer) error { return WriteCSV(w, r) }); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// FileLabel makes a query label safe to use as a file name prefix.
func FileLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, label)
}
