package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

const (
	// MaxPages bounds the number of pages read for one resource fetch,
	// counting the first page.
	MaxPages = 100
	// PageSize is the _count hint sent with the first request.
	PageSize = 1000
	// RequestTimeout applies independently to every page request.
	RequestTimeout = 30 * time.Second
	// ReadTimeout applies to single-resource reads.
	ReadTimeout = 10 * time.Second

	fhirJSON = "application/fhir+json"
)

// Paginator reads complete search result sets by following "next" links.
type Paginator struct {
	client *http.Client
	logger zerolog.Logger
}

// NewPaginator creates a Paginator. A nil client uses a default client; the
// per-request timeout is always enforced through the request context.
func NewPaginator(client *http.Client, logger zerolog.Logger) *Paginator {
	if client == nil {
		client = &http.Client{}
	}
	return &Paginator{client: client, logger: logger}
}

// SearchURL builds the first-page URL for a resource search. The page-size
// hint is always set.
func SearchURL(baseURL, resourceType string, params url.Values) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/" + resourceType)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(fhirmodels.SearchParamCount, strconv.Itoa(PageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchAll retrieves every entry of a search. A failure on the first page is
// returned as an error. A failure on any continuation page stops paging and
// returns the entries accumulated so far without an error. Paging also stops
// when a page has no "next" link or MaxPages pages have been read.
func (p *Paginator) FetchAll(ctx context.Context, baseURL, resourceType string, params url.Values) ([]fhir.BundleEntry, error) {
	first, err := SearchURL(baseURL, resourceType, params)
	if err != nil {
		return nil, err
	}

	bundle, err := p.fetchPage(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resourceType, err)
	}

	entries := append([]fhir.BundleEntry(nil), bundle.Entry...)
	pages := 1
	next := bundle.NextLink()

	for next != "" && pages < MaxPages {
		page, err := p.fetchPage(ctx, next)
		if err != nil {
			p.logger.Warn().Err(err).
				Str("resource", resourceType).
				Int("page", pages+1).
				Int("entries", len(entries)).
				Msg("continuation page failed; keeping partial result")
			return entries, nil
		}
		entries = append(entries, page.Entry...)
		pages++
		next = page.NextLink()

		p.logger.Debug().
			Str("resource", resourceType).
			Int("page", pages).
			Int("entries", len(entries)).
			Msg("page fetched")
	}

	if next != "" {
		p.logger.Warn().
			Str("resource", resourceType).
			Int("pages", pages).
			Msg("page ceiling reached; result truncated")
	}
	return entries, nil
}

// FetchOne reads a single resource by id.
func (p *Paginator) FetchOne(ctx context.Context, baseURL, resourceType, id string) (json.RawMessage, error) {
	target := strings.TrimSuffix(baseURL, "/") + "/" + resourceType + "/" + url.PathEscape(id)

	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	body, err := p.get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", resourceType, id, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("read %s/%s: %w", resourceType, id, ErrMalformedBundle)
	}
	return body, nil
}

// fetchPage performs one page request under its own timeout.
func (p *Paginator) fetchPage(ctx context.Context, target string) (*fhir.Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	body, err := p.get(ctx, target)
	if err != nil {
		return nil, err
	}

	var bundle fhir.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	if bundle.ResourceType != "" && bundle.ResourceType != fhirmodels.ResourceBundle {
		return nil, fmt.Errorf("%w: got resourceType %q", ErrMalformedBundle, bundle.ResourceType)
	}
	return &bundle, nil
}

func (p *Paginator) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", fhirJSON)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	return body, nil
}
