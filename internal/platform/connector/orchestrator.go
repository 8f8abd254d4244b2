package connector

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher fetches one server's dataset.
type Fetcher interface {
	Fetch(ctx context.Context, server ServerDescriptor) (*ServerDataset, error)
}

// Orchestrator runs a Fetcher over every configured server.
type Orchestrator struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

func NewOrchestrator(fetcher Fetcher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, logger: logger}
}

// RunAll fetches each server in turn and returns one outcome per server in
// input order. A failing server is recorded as a failed outcome and does not
// stop the remaining servers.
func (o *Orchestrator) RunAll(ctx context.Context, servers []ServerDescriptor) []FetchOutcome {
	outcomes := make([]FetchOutcome, 0, len(servers))
	for _, s := range servers {
		outcomes = append(outcomes, o.runOne(ctx, s))
	}
	return outcomes
}

func (o *Orchestrator) runOne(ctx context.Context, server ServerDescriptor) (out FetchOutcome) {
	start := time.Now()
	log := o.logger.With().Str("server", server.Name).Str("base_url", server.BaseURL).Logger()
	log.Info().Msg("fetching server")

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("server fetch panicked")
			out = FetchOutcome{Server: server, Success: false, Error: "internal error while fetching server"}
		}
	}()

	ds, err := o.fetcher.Fetch(ctx, server)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("server fetch failed")
		return Failed(server, err)
	}
	if ds == nil {
		ds = &ServerDataset{}
	}

	stats := ValidateDataset(ds)
	if stats.Empty+stats.Malformed+stats.Misplaced+stats.MissingIDs > 0 {
		log.Warn().
			Int("empty", stats.Empty).
			Int("malformed", stats.Malformed).
			Int("misplaced", stats.Misplaced).
			Int("missing_ids", stats.MissingIDs).
			Msg("dataset has irregular entries")
	}

	log.Info().
		Int("patients", len(ds.Patients)).
		Int("conditions", len(ds.Conditions)).
		Int("observations", len(ds.Observations)).
		Int("encounters", len(ds.Encounters)).
		Dur("elapsed", time.Since(start)).
		Msg("server fetched")
	return Succeeded(server, ds)
}
