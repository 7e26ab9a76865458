package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	reaction "github.com/next-exp/reaction_go/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var logger Logger

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

type flags struct {
	config    string
	workers   int
	maxEvents int
	verbosity int
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "analyzer",
		Short:         "Evaluate a reaction over event records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Configuration file path (JSON or YAML)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Number of workers, overrides the configuration")
	cmd.Flags().IntVarP(&f.maxEvents, "max-events", "n", 0, "Maximum number of events, overrides the configuration")
	cmd.Flags().IntVarP(&f.verbosity, "verbosity", "v", -1, "Verbosity level, overrides the configuration")
	cmd.MarkFlagRequired("config")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command, f flags) error {
	configuration, err := LoadConfiguration(f.config)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	if cmd.Flags().Changed("workers") {
		configuration.NumWorkers = f.workers
	}
	if cmd.Flags().Changed("max-events") {
		configuration.MaxEvents = f.maxEvents
	}
	if cmd.Flags().Changed("verbosity") {
		configuration.Verbosity = f.verbosity
	}
	reaction.SetConfiguration(configuration)
	reaction.SetLogger(logger)

	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading configuration file: %s", f.config), "main")
		printConfiguration(configuration, logger)
	}

	tables := reaction.DefaultTables()
	if !configuration.NoDB {
		dbConn, err := reaction.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()
		if tables, err = reaction.LoadTables(dbConn, configuration.RunNumber); err != nil {
			return fmt.Errorf("Error loading lookup tables: %w", err)
		}
	}

	var opts []reaction.Option
	if configuration.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		opts = append(opts, reaction.WithMetrics(reaction.NewMetrics(registry)))
		server := serveMetrics(configuration.MetricsAddr, registry)
		defer server.Shutdown(context.Background())
	}

	r, err := reaction.BuildReaction(configuration, tables, opts...)
	if err != nil {
		return fmt.Errorf("Error building reaction: %w", err)
	}
	aggregators, histos, snapshot, err := reaction.NewOutputs(r, configuration)
	if err != nil {
		return fmt.Errorf("Error creating outputs: %w", err)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		return fmt.Errorf("Error opening file: %w", err)
	}
	defer file.Close()

	var writer *reaction.Writer
	if configuration.FileOut != "" {
		if writer, err = openOutput(configuration.FileOut, snapshot, configuration.SnapshotBatch); err != nil {
			return err
		}
	}

	start := time.Now()
	reader := reaction.NewRecordReader(file, r.Graph().Inputs())
	feed := func(ctx context.Context, jobs chan<- reaction.EventData) error {
		return reaction.SendRecords(ctx, reader, jobs)
	}
	summary, err := process(ctx, r, feed, configuration.NumWorkers, aggregators)
	if err != nil {
		if writer != nil {
			err = errors.Join(err, writer.Close())
		}
		return err
	}
	logger.Info(summary.CutFlow.String(), "main")
	logger.Info(fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds()), "main")

	var errs []error
	if histos != nil && configuration.HistoOut != "" {
		errs = append(errs, histos.Save(configuration.HistoOut))
	}
	if writer != nil {
		errs = append(errs, closeOutput(writer, snapshot, summary.CutFlow))
	}
	return errors.Join(errs...)
}

// process runs r over the events sent by feed, which must close jobs when
// it returns. feed is cancelled and waited for on every return path.
func process(ctx context.Context, r *reaction.Reaction, feed func(context.Context, chan<- reaction.EventData) error,
	nWorkers int, aggregators reaction.Cloner) (reaction.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs := make(chan reaction.EventData, 2*nWorkers)
	readErr := make(chan error, 1)
	go func() {
		readErr <- feed(ctx, jobs)
	}()

	summary, err := r.Run(ctx, jobs, nWorkers, aggregators)
	if err != nil {
		cancel()
		<-readErr
		return summary, fmt.Errorf("Error processing events: %w", err)
	}
	return summary, <-readErr
}

// openOutput creates the output file. The snapshot, if any, streams its rows
// into it while events are processed.
func openOutput(filename string, snapshot *reaction.Snapshot, batch int) (*reaction.Writer, error) {
	writer, err := reaction.NewWriter(filename)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		if err := writer.OpenSnapshot(snapshot.Columns()); err != nil {
			return nil, errors.Join(err, writer.Close())
		}
		snapshot.StreamTo(writer, batch)
	}
	return writer, nil
}

func closeOutput(writer *reaction.Writer, snapshot *reaction.Snapshot, cutFlow *reaction.CutFlow) error {
	var errs []error
	if snapshot != nil {
		errs = append(errs, snapshot.Flush())
	}
	errs = append(errs, writer.WriteCutFlow(cutFlow))
	errs = append(errs, writer.Close())
	return errors.Join(errs...)
}

func serveMetrics(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("metrics server: %v", err))
		}
	}()
	return server
}
