package cli

import (
	"github.com/spf13/cobra"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a canonical document",
		Long:  "Prints the validation report as JSON. Exits non-zero when the document has errors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := canonical.LoadFile(args[0])
			if err != nil {
				return err
			}
			report := canonical.Validate(doc)
			if err := a.printJSON(report); err != nil {
				return err
			}
			return report.Err()
		},
	}
}
