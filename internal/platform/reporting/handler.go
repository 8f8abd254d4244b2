package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ehr/surveillance/internal/domain/surveillance"
	"github.com/ehr/surveillance/internal/platform/cql"
	"github.com/ehr/surveillance/internal/platform/fhir"
)

// Reporter produces the surveillance result for a query label.
type Reporter interface {
	Report(ctx context.Context, label string) (*surveillance.AggregatedResult, error)
}

// Catalog lists surveillance queries and maps query ids to labels.
type Catalog interface {
	Enabled() []cql.Indicator
	Label(key string) string
}

// DefaultRunTimeout bounds a shared fetch run.
const DefaultRunTimeout = 5 * time.Minute

// Handler serves surveillance reports over HTTP. Concurrent requests for the
// same label share one fetch run. The run is detached from every request, so
// a client that goes away only abandons its own wait.
type Handler struct {
	reporter   Reporter
	catalog    Catalog
	logger     zerolog.Logger
	group      singleflight.Group
	runTimeout time.Duration
}

// NewHandler creates a new reporting handler.
func NewHandler(reporter Reporter, catalog Catalog, logger zerolog.Logger) *Handler {
	return &Handler{
		reporter:   reporter,
		catalog:    catalog,
		logger:     logger.With().Str("component", "reporting").Logger(),
		runTimeout: DefaultRunTimeout,
	}
}

// WithRunTimeout sets the timeout of a shared fetch run. A non-positive
// value leaves runs unbounded.
func (h *Handler) WithRunTimeout(d time.Duration) *Handler {
	h.runTimeout = d
	return h
}

// RegisterRoutes registers the surveillance API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/surveillance")
	g.GET("/queries", h.ListQueries)
	g.GET("/report", h.GetReport)
	g.GET("/report.csv", h.GetReportCSV)
}

// ListQueries returns the enabled surveillance queries.
func (h *Handler) ListQueries(c echo.Context) error {
	queries := h.catalog.Enabled()
	if queries == nil {
		queries = []cql.Indicator{}
	}
	return c.JSON(http.StatusOK, queries)
}

// GetReport runs a query and returns the aggregated result as JSON.
func (h *Handler) GetReport(c echo.Context) error {
	result, fail := h.report(c)
	if fail != nil {
		return c.JSON(fail.status, fail.outcome)
	}
	return c.JSON(http.StatusOK, result)
}

// GetReportCSV runs a query and returns the flat CSV report.
func (h *Handler) GetReportCSV(c echo.Context) error {
	result, fail := h.report(c)
	if fail != nil {
		return c.JSON(fail.status, fail.outcome)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", FileLabel(result.QueryLabel)+".csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type failure struct {
	status  int
	outcome *fhir.OperationOutcome
}

// report resolves the query parameter to a label and runs the report.
func (h *Handler) report(c echo.Context) (*surveillance.AggregatedResult, *failure) {
	key := strings.TrimSpace(c.QueryParam("query"))
	if key == "" {
		return nil, &failure{http.StatusBadRequest, fhir.NewOperationOutcome(
			fhir.IssueSeverityError, fhir.IssueTypeRequired, "query parameter is required")}
	}
	label := h.catalog.Label(key)

	ctx := c.Request().Context()
	ch := h.group.DoChan(label, func() (interface{}, error) {
		runCtx := context.WithoutCancel(ctx)
		if h.runTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, h.runTimeout)
			defer cancel()
		}
		return h.reporter.Report(runCtx, label)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		h.logger.Warn().Err(ctx.Err()).Str("query", label).Msg("request ended before report was ready")
		return nil, &failure{http.StatusServiceUnavailable, fhir.NewOperationOutcome(
			fhir.IssueSeverityError, fhir.IssueTypeTimeout, ctx.Err().Error())}
	}

	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		h.logger.Error().Err(err).Str("query", label).Msg("report failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &failure{http.StatusServiceUnavailable, fhir.NewOperationOutcome(
				fhir.IssueSeverityError, fhir.IssueTypeTimeout, err.Error())}
		}
		return nil, &failure{http.StatusInternalServerError, fhir.ErrorOutcome(err.Error())}
	}

	result, _ := v.(*surveillance.AggregatedResult)
	if result == nil {
		return nil, &failure{http.StatusInternalServerError, fhir.ErrorOutcome("empty report")}
	}
	h.logger.Info().
		Str("query", label).
		Int("total", result.TotalCount).
		Bool("shared", shared).
		Msg("report served")
	return result, nil
}
