package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/importer"
)

func (a *app) newImportCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate and import a canonical document",
		Long: `Validates FILE and writes it to the database in a single transaction.
Either the whole competition is written or nothing is. The import result is
printed as JSON on success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := canonical.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			bdb, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			res, err := a.newImporter(bdb, nil, strict).IngestWithRetry(ctx, doc)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict-formula", false, "fail when no formula version covers the competition date")
	return cmd
}

func (a *app) newImportLiftControlCmd() *cobra.Command {
	var (
		competition string
		strict      bool
	)
	cmd := &cobra.Command{
		Use:   "import-liftcontrol",
		Short: "Fetch a LiftControl competition and import every session",
		Long: `Fetches every session of a registered LiftControl competition, converts
each one to a canonical document and imports them in session order. Sessions
share the competition slug, so they accumulate into one competition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.liftControl()
			if err != nil {
				return err
			}
			docs, err := t.PullCompetition(ctx, competition)
			if err != nil {
				return err
			}

			bdb, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			im := a.newImporter(bdb, nil, strict)
			results := make([]*importer.ImportResult, 0, len(docs))
			for i, doc := range docs {
				res, err := im.IngestWithRetry(ctx, doc)
				if err != nil {
					return fmt.Errorf("session %d of %d: %w", i+1, len(docs), err)
				}
				a.log.Info("session imported", zap.Int("session", i+1), zap.String("import_id", res.ImportID.String()))
				results = append(results, res)
			}
			return a.printJSON(results)
		},
	}
	cmd.Flags().StringVar(&competition, "competition", "", "registered competition id or alias")
	cmd.Flags().BoolVar(&strict, "strict-formula", false, "fail when no formula version covers the competition date")
	_ = cmd.MarkFlagRequired("competition")
	return cmd
}
