package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/surveillance/internal/config"
	"github.com/ehr/surveillance/internal/domain/surveillance"
	"github.com/ehr/surveillance/internal/platform/connector"
	"github.com/ehr/surveillance/internal/platform/reporting"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "surveillance",
		Short:         "Infectious disease surveillance over FHIR servers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./surveillance.yaml)")

	load := func() (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
		}
		return cfg, newLogger(cfg, os.Stdout), nil
	}

	rootCmd.AddCommand(runCmd(load))
	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(serversCmd(load))
	rootCmd.AddCommand(queriesCmd(load))
	rootCmd.AddCommand(patientCmd(load))
	return rootCmd
}

type loader func() (*config.Config, zerolog.Logger, error)

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// pipeline wires the connector, aggregator, and catalog for one config.
func pipeline(cfg *config.Config, logger zerolog.Logger) (*surveillance.Service, *connector.ServerFetcher) {
	pages := connector.NewPaginator(&http.Client{}, logger)
	fetcher := connector.NewServerFetcher(pages, cfg.TimeRangeYears)
	orchestrator := connector.NewOrchestrator(fetcher, logger)
	aggregator := surveillance.NewAggregator(cfg.TimeRangeYears, time.Now)
	svc := surveillance.NewService(orchestrator, cfg.EnabledServers(), aggregator, cfg.Catalog())
	return svc, fetcher
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCmd(load loader) *cobra.Command {
	var (
		queries []string
		noFiles bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch all enabled servers once and report every enabled query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			labels := cfg.EnabledQueryLabels()
			if len(queries) > 0 {
				cat := cfg.Catalog()
				labels = labels[:0]
				for _, q := range queries {
					labels = append(labels, cat.Label(q))
				}
			}

			ctx, stop := signalContext()
			defer stop()

			svc, _ := pipeline(cfg, logger)
			logger.Info().
				Int("servers", len(cfg.EnabledServers())).
				Int("queries", len(labels)).
				Int("time_range_years", cfg.TimeRangeYears).
				Msg("starting surveillance run")

			results, err := svc.ReportAll(ctx, labels)
			if err != nil {
				return err
			}

			writer := reporting.FileWriter{Dir: cfg.OutputDir, JSON: cfg.OutputJSON && !noFiles, CSV: cfg.OutputCSV && !noFiles}
			grand := 0
			for i := range results {
				r := &results[i]
				for _, line := range reporting.Summary(r) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				fmt.Fprintln(cmd.OutOrStdout())

				paths, err := writer.Save(r)
				if err != nil {
					logger.Error().Err(err).Str("query", r.QueryLabel).Msg("failed to save results")
				}
				for _, p := range paths {
					logger.Info().Str("query", r.QueryLabel).Str("path", p).Msg("results saved")
				}
				logger.Info().
					Str("query", r.QueryLabel).
					Int("total", r.TotalCount).
					Int("synthetic", r.SyntheticCount).
					Msg("query complete")
				grand += r.TotalCount
			}
			logger.Info().Int("queries", len(results)).Int("total", grand).Msg("surveillance run complete")
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&queries, "query", "q", nil, "query id or label to run (repeatable; default all enabled)")
	cmd.Flags().BoolVar(&noFiles, "no-files", false, "do not write JSON/CSV output files")
	return cmd
}

func serversCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List configured FHIR servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tBASE URL\tENABLED")
			for _, s := range cfg.Servers {
				fmt.Fprintf(tw, "%s\t%s\t%v\n", s.Name, s.BaseURL, s.IsEnabled())
			}
			return tw.Flush()
		},
	}
}

func queriesCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "List configured surveillance queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tENABLED\tDESCRIPTION")
			for _, q := range cfg.Catalog().List() {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", q.ID, q.Name, q.Enabled, q.Description)
			}
			return tw.Flush()
		},
	}
}

func patientCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "patient <server> <id>",
		Short: "Read one Patient from a configured server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			var server *connector.ServerDescriptor
			for _, s := range cfg.EnabledServers() {
				if s.Name == args[0] {
					s := s
					server = &s
					break
				}
			}
			if server == nil {
				return fmt.Errorf("no enabled server named %q", args[0])
			}

			ctx, stop := signalContext()
			defer stop()

			_, fetcher := pipeline(cfg, logger)
			p, err := fetcher.FetchPatient(ctx, *server, args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
}
