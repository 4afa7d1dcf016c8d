package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenStreetlifting/openstreetlifting-backend/db"
)

func (a *app) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the formula versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bdb, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			if err := db.Migrate(ctx, bdb); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "schema up to date")
			return nil
		},
	}
}
