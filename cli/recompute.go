package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) newRecomputeCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute RIS scores for every participant",
		Long: `Scores every participant that has a bodyweight and a positive total under
one formula version, the current one unless --year is given. Each
participant's score history row is upserted, so the command is safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bdb, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			res, err := a.newImporter(bdb, nil, false).Recompute(ctx, year)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "formula version year (default: current)")
	return cmd
}
