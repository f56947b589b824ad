package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kassa/internal/config"
	"kassa/internal/sheets"
	gsheet "kassa/internal/sheets/google"
	"kassa/internal/sheets/memory"
)

// exporterFor returns the Google exporter when the spreadsheet is
// configured, otherwise an in-memory one whose rows can be previewed.
func exporterFor(ctx context.Context, cfg *config.Config) (sheets.ShiftExporter, *memory.Exporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		mem := memory.New(cfg.GoogleSheetName)
		return mem, mem, nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, nil, nil
}

func exportShiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <shift-id>",
		Short: "Write a shift's summary row to the export sheet",
		Long: `Export a shift the way kassa-worker does on shift.closed. Without
GOOGLE_SPREADSHEET_ID the row is printed instead of written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := a.Dashboard.ShiftSummary(cmd.Context(), a.account, args[0])
			if err != nil {
				return err
			}
			exporter, preview, err := exporterFor(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			ref, err := exporter.ExportShift(cmd.Context(), sum)
			if err != nil {
				return err
			}

			if preview == nil {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Exported to "+ref))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("GOOGLE_SPREADSHEET_ID not set, showing the row instead"))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			row := preview.Rows(sheets.SheetName(a.cfg.GoogleSheetName, sum.Shift))[0]
			for i, col := range sheets.Header {
				fmt.Fprintf(w, "%s\t%v\n", headerStyle.Render(col), row[i])
			}
			return nil
		},
	}
}
