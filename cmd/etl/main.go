// Command etl runs the batch ETL over an Olist e-commerce export: extract the
// nine source files, clean them, build the fact tables and metrics, report
// to the console and load the derived tables to CSV and a database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bendy2509/etl-projet-1/internal/config"
	"github.com/bendy2509/etl-projet-1/internal/logger"

	// register all backends with the storage factory.
	_ "github.com/bendy2509/etl-projet-1/internal/storage/all"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app holds what PersistentPreRunE resolves for every subcommand.
type app struct {
	cfgFile string
	dotEnv  string
	verbose bool
	noColor bool

	cfg config.Pipeline
	log *slog.Logger
	out io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}

	root := &cobra.Command{
		Use:   "etl",
		Short: "Batch ETL over an Olist e-commerce export",
		Long: `etl reads the customers, orders, payments, products, geolocation, order
items, reviews, sellers and category translation exports, cleans them,
builds the item and customer fact tables plus monthly metrics, and writes
the derived tables to CSV files and a relational database.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			a.log = logger.New(stderr, a.verbose, a.noColor)
			cfg, err := config.Load(config.LoadOptions{
				File:   a.cfgFile,
				DotEnv: a.dotEnv,
				Flags:  cmd.Root().PersistentFlags(),
			})
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML or JSON config file")
	pf.StringVar(&a.dotEnv, "env-file", ".env", "dotenv file with ETL_* overrides")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored logs")
	pf.String("source-dir", "", "directory holding <table>.csv exports")
	pf.String("source-url", "", "base URL serving <table>.csv exports")
	pf.String("output-dir", "", "directory for derived CSV files")
	pf.String("storage-kind", "", "database backend: none, sqlite, postgres, mssql, mysql")
	pf.String("dsn", "", "database connection string")
	pf.Int("workers", 0, "concurrent file reads")
	pf.Bool("markdown", false, "render console tables as Markdown")

	_ = root.RegisterFlagCompletionFunc("storage-kind", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.KnownStorageKinds, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newRunCmd(a),
		newTransformCmd(a),
		newInspectCmd(a),
		newValidateCmd(a),
	)
	return root
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Extract, transform, report and load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container()
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), true)
		},
	}
}

func newTransformCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Extract, transform and report without loading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container()
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), false)
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	var head int
	cmd := &cobra.Command{
		Use:   "inspect [table...]",
		Short: "Extract and print shape, column kinds, first rows and missing counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container()
			if err != nil {
				return err
			}
			return c.inspect(cmd.Context(), args, head)
		},
	}
	cmd.Flags().IntVarP(&head, "head", "n", 5, "rows to show per table")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint the resolved configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

// checkConfig logs every issue and fails when any is an error.
func (a *app) checkConfig() error {
	issues := config.ValidatePipeline(a.cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			a.log.Error("config", "path", iss.Path, "msg", iss.Message)
			continue
		}
		a.log.Warn("config", "path", iss.Path, "msg", iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

func (a *app) container() (*container, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	return newContainer(a.cfg, a.log, a.out)
}
