// Package cli implements the osl command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/config"
	"github.com/OpenStreetlifting/openstreetlifting-backend/db"
	"github.com/OpenStreetlifting/openstreetlifting-backend/importer"
	applog "github.com/OpenStreetlifting/openstreetlifting-backend/logger"
	"github.com/OpenStreetlifting/openstreetlifting-backend/metrics"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"
)

// app is the state shared by every subcommand.
type app struct {
	cfg *config.Config
	log *zap.Logger

	databaseURL string
	debug       bool

	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the osl command tree writing to the given streams.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "osl",
		Short: "OpenStreetlifting results pipeline",
		Long: `osl converts competition results into canonical documents, validates them
and imports them into the results database, deriving totals, ranks and RIS
scores on the way in.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.databaseURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "debug logging and SQL query logging")

	root.AddCommand(a.newValidateCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newImportLiftControlCmd())
	root.AddCommand(a.newConvertCmd())
	root.AddCommand(a.newRecomputeCmd())
	root.AddCommand(a.newMigrateCmd())
	root.AddCommand(a.newServeCmd())

	return root
}

// Execute runs osl with the process arguments. Failures are written to
// stderr as a JSON summary.
func Execute() error {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		writeFailure(os.Stderr, err)
		return err
	}
	return nil
}

func (a *app) init() error {
	a.cfg = config.Load()
	if a.databaseURL != "" {
		a.cfg.DatabaseURL = a.databaseURL
	}
	if a.debug {
		a.cfg.Debug = true
	}

	log, err := applog.New(a.cfg.Debug)
	if err != nil {
		return err
	}
	a.log = log
	zap.ReplaceGlobals(log)
	return nil
}

func (a *app) openDB(ctx context.Context) (*bun.DB, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return db.Setup(ctx, a.cfg)
}

func (a *app) newImporter(bdb *bun.DB, m *metrics.Metrics, strict bool) *importer.Importer {
	return importer.New(bdb,
		importer.WithLogger(a.log),
		importer.WithMetrics(m),
		importer.WithStrictFormula(strict || a.cfg.StrictFormula),
		importer.WithRetries(a.cfg.ImportRetries),
		importer.WithWorkers(a.cfg.RecomputeWorkers),
	)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failure is the machine-readable error summary.
type failure struct {
	Kind   string            `json:"kind"`
	Error  string            `json:"error"`
	Issues []canonical.Issue `json:"issues,omitempty"`
}

func summarize(err error) failure {
	var (
		verr *canonical.ValidationError
		terr *sources.TransformationError
		rerr *importer.ResolutionError
	)
	switch {
	case errors.As(err, &verr):
		return failure{Kind: "validation", Error: err.Error(), Issues: verr.Issues}
	case errors.As(err, &terr):
		return failure{Kind: "transformation", Error: err.Error()}
	case errors.As(err, &rerr):
		return failure{Kind: "resolution", Error: err.Error()}
	case importer.IsRetryable(err):
		return failure{Kind: "conflict", Error: err.Error()}
	}
	return failure{Kind: "error", Error: err.Error()}
}

func writeFailure(w io.Writer, err error) {
	b, merr := json.Marshal(summarize(err))
	if merr != nil {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, string(b))
}
