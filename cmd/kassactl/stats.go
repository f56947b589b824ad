package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var (
		year  int
		month int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show monthly income, expenses and net for a year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}

			points, err := a.Dashboard.YearSeries(cmd.Context(), a.account, year)
			if err != nil {
				return err
			}
			trend, err := a.Dashboard.MonthTrend(cmd.Context(), a.account, year, month)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("Month"), headerStyle.Render("Income"),
				headerStyle.Render("Expenses"), headerStyle.Render("Net"))
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", time.Month(p.Month).String()[:3], p.Income, p.Expenses, p.Net)
			}
			w.Flush()

			fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s vs previous month: %s\n",
				time.Month(trend.Month), subtleStyle.Render(trend.Current.String()), successStyle.Render(trend.Change))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month for the trend line (default: current)")
	return cmd
}
