package surveillance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/surveillance/internal/platform/connector"
)

// Runner fetches every server and reports one outcome per server.
type Runner interface {
	RunAll(ctx context.Context, servers []connector.ServerDescriptor) []connector.FetchOutcome
}

// Describer looks up the descriptive text of a query.
type Describer interface {
	Describe(key string) (string, bool)
}

// Service runs surveillance queries end to end: fetch all servers once, then
// aggregate for each requested label.
type Service struct {
	runner     Runner
	servers    []connector.ServerDescriptor
	aggregator *Aggregator
	describer  Describer
}

// NewService creates a Service. describer may be nil.
func NewService(runner Runner, servers []connector.ServerDescriptor, aggregator *Aggregator, describer Describer) *Service {
	return &Service{
		runner:     runner,
		servers:    servers,
		aggregator: aggregator,
		describer:  describer,
	}
}

// Servers returns the configured server descriptors.
func (s *Service) Servers() []connector.ServerDescriptor {
	return s.servers
}

// Report fetches every server and aggregates for a single label.
func (s *Service) Report(ctx context.Context, label string) (*AggregatedResult, error) {
	results, err := s.ReportAll(ctx, []string{label})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// ReportAll fetches every server once and aggregates the same outcomes for
// each label, in the order given. It returns the context error when ctx ends
// before or during the fetch run.
func (s *Service) ReportAll(ctx context.Context, labels []string) ([]AggregatedResult, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one query label is required")
	}
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("query label must not be empty")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := s.runner.RunAll(ctx, s.servers)
	// A cancelled run reports every server as failed; that is not a result.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch run interrupted: %w", err)
	}
	runID := uuid.NewString()

	out := make([]AggregatedResult, 0, len(labels))
	for _, label := range labels {
		r := s.aggregator.Aggregate(outcomes, label)
		r.RunID = runID
		if s.describer != nil {
			if d, ok := s.describer.Describe(label); ok {
				r.Description = d
			}
		}
		out = append(out, r)
	}
	return out, nil
}
