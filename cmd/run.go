package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"order-etl/internal/cache"
	"order-etl/internal/connect"
	"order-etl/internal/dialect"
	"order-etl/internal/engine"
	"order-etl/internal/extract"
	"order-etl/internal/logging"
	"order-etl/internal/metrics"
	"order-etl/internal/schema"
	"order-etl/internal/transform"
)

var (
	batchRows   int
	noProgress  bool
	metricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, transform and load every dataset, then rebuild order_summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appCfg
		if cmd.Flags().Changed("batch-rows") {
			cfg.Load.BatchRows = batchRows
		}
		if cmd.Flags().Changed("metrics-file") {
			cfg.Metrics.Textfile = metricsFile
		}
		return runPipeline(cmd.Context(), &cfg, cmd.OutOrStdout(), !noProgress)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("source", "s", "http", "dataset source: http, csv, fake")
	runCmd.Flags().IntVar(&batchRows, "batch-rows", 0, "rows per INSERT statement, 0 for the driver maximum")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	viper.BindPFlag("source.kind", runCmd.Flags().Lookup("source"))
}

// runPipeline executes one extract-transform-load run. A missing connection
// configuration skips the load and is not an error.
func runPipeline(ctx context.Context, cfg *AppConfig, out io.Writer, progress bool) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	logger := slog.Default().With("run_id", logging.NewRunID())
	ctx = logging.NewContext(ctx, logger)

	rec := metrics.New()
	defer func() {
		rec.Finish(started, err)
		if werr := rec.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Error("failed to write metrics", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}()

	// 0. Dialect
	d, err := dialect.GetDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}

	// 1. Extract
	store, err := cache.Open(ctx, cfg.Cache.storeConfig())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	src, err := extract.NewSource(cfg.Source.Kind, cfg.Source.BaseURL, cfg.Source.Dir,
		cfg.Source.DelimiterRune(), cfg.Source.Timeout, cfg.Source.FakeSeed, cfg.Source.FakeOrders)
	if err != nil {
		return err
	}
	logger.Info("extracting", "source", src.Kind(), "datasets", len(cfg.Source.Datasets))
	extracted, err := extract.NewExtractor(src, store, cfg.Source.Datasets).Extract(ctx)
	if err != nil {
		return err
	}
	if len(extracted.Degraded) > 0 {
		rec.Degraded(extracted.Degraded)
		fmt.Fprintf(out, "! Source unreachable, using cached copies of: %s\n", strings.Join(extracted.Degraded, ", "))
	}

	// 2. Transform
	tables, err := transform.Relational(extracted.Datasets, schema.BikeStores)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	summary, err := transform.OrderSummary(tables)
	if err != nil {
		logger.Warn("order summary skipped", "error", err)
		summary = nil
	}

	// 3. Connection
	var defaults connect.Defaults
	if cfg.Database.Demo {
		defaults = connect.DemoDefaults(d)
	}
	connCfg, err := connect.ResolveConfig(cfg.Database.EnvPrefix, nil, defaults)
	if err != nil {
		var cfgErr *connect.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Warn("load skipped", "missing", cfgErr.Missing, "invalid", cfgErr.Invalid)
			fmt.Fprintf(out, "! Load skipped: %s\n", cfgErr)
			return nil
		}
		return err
	}

	db, err := connect.Open(ctx, d, connCfg, connect.Options{AutoCreate: true})
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Fprintf(out, "Connected via %s (%s)\n", d.Name(), connCfg)

	// 4. Load
	loader := engine.NewLoader(db, d, schema.BikeStores)
	loader.BatchRows = cfg.Load.BatchRows

	steps := len(schema.BikeStores.LoadOrder())
	if summary != nil {
		steps++
	}
	if progress {
		uiprogress.Start()
		bar := uiprogress.AddBar(steps).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Loading: "
		})
		loader.OnTable = func(string, int) { bar.Incr() }
	}

	results, err := loader.Load(ctx, tables)
	if err == nil && summary != nil {
		var r schema.LoadResult
		r, err = loader.LoadSingleTable(ctx, schema.OrderSummary, summary)
		results = append(results, r)
	}

	if progress {
		uiprogress.Stop()
	}

	for _, r := range results {
		rec.Table(r.TableName, r.Actual, r.Status == engine.StatusOK)
	}
	printReport(out, results, time.Since(started))
	return err
}

// printReport writes the per-table summary in load order.
func printReport(out io.Writer, results []schema.LoadResult, elapsed time.Duration) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSummary Report (Load Order):")
	total := 0
	for i, r := range results {
		icon := "✓"
		if r.Status != engine.StatusOK {
			icon = "!"
		}
		status := r.Status
		if status == "" {
			status = "NOT LOADED"
		}
		fmt.Fprintf(out, "[%s] [%02d/%02d] %-15s : %d rows (Target: %d) - %s\n",
			icon, i+1, len(results), r.TableName, r.Actual, r.Target, status)
		if r.ErrorMsg != "" {
			fmt.Fprintf(out, "    └ Error: %s\n", r.ErrorMsg)
		}
		total += r.Actual
	}
	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Total Rows: %d\n", total)
	fmt.Fprintf(out, "Time Elapsed: %s\n", elapsed.Round(time.Millisecond))
}
