package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medialib/internal/export"
)

// newExportCmd creates the 'export' subcommand, which writes the catalog
// to a spreadsheet.
func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports the catalog to an .xlsx workbook",

		RunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := export.Workbook(cmd.Context(), instance.Store(), outPath); err != nil {
				return err
			}
			instance.Logger().Info("catalog exported", zap.String("path", outPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "catalog.xlsx", "output file path")
	return cmd
}
