package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"order-etl/internal/connect"
	"order-etl/internal/dialect"
	"order-etl/internal/inspect"
)

var previewLimit, overviewLimit int

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables in the destination database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInspector(cmd.Context(), appCfg, func(ctx context.Context, in *inspect.Inspector) error {
			return listTables(ctx, in, cmd.OutOrStdout())
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <table>",
	Short: "Show the first rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewLimit <= 0 {
			return inspect.ErrInvalidLimit
		}
		return withInspector(cmd.Context(), appCfg, func(ctx context.Context, in *inspect.Inspector) error {
			return previewTable(ctx, in, cmd.OutOrStdout(), args[0], previewLimit)
		})
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the row count and first rows of every table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if overviewLimit <= 0 {
			return inspect.ErrInvalidLimit
		}
		return withInspector(cmd.Context(), appCfg, func(ctx context.Context, in *inspect.Inspector) error {
			return overview(ctx, in, cmd.OutOrStdout(), overviewLimit)
		})
	},
}

func init() {
	RootCmd.AddCommand(tablesCmd, previewCmd, overviewCmd)

	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 5, "number of rows to show")
	overviewCmd.Flags().IntVarP(&overviewLimit, "limit", "n", 3, "number of rows to show per table")
}

// withInspector connects without creating the database and closes the
// connection when fn returns.
func withInspector(ctx context.Context, cfg *AppConfig, fn func(context.Context, *inspect.Inspector) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := dialect.GetDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	var defaults connect.Defaults
	if cfg.Database.Demo {
		defaults = connect.DemoDefaults(d)
	}
	connCfg, err := connect.ResolveConfig(cfg.Database.EnvPrefix, nil, defaults)
	if err != nil {
		return err
	}

	db, err := connect.Open(ctx, d, connCfg, connect.Options{})
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, inspect.New(db, d))
}

func listTables(ctx context.Context, in *inspect.Inspector, out io.Writer) error {
	names, err := in.ListTables(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No tables found.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

func previewTable(ctx context.Context, in *inspect.Inspector, out io.Writer, table string, limit int) error {
	n, err := in.RowCount(ctx, table)
	if err != nil {
		return err
	}
	rows, err := in.Preview(ctx, table, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%d rows)\n", table, n)
	writeRows(out, rows)
	return nil
}

func overview(ctx context.Context, in *inspect.Inspector, out io.Writer, limit int) error {
	tables, err := in.Overview(ctx, limit)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		fmt.Fprintln(out, "No tables found.")
		return nil
	}
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s (%d rows)\n", t.Name, t.Count)
		writeRows(out, t.Rows)
	}
	return nil
}

func writeRows(out io.Writer, rows []inspect.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "(empty)")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, c := range rows[0].Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, r := range rows {
		for i, v := range r.Values {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v == nil {
				v = "NULL"
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
