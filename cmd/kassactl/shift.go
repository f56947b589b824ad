package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kassa/internal/core"
)

func shiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Open, close and list shifts",
	}
	cmd.AddCommand(openShiftCmd())
	cmd.AddCommand(closeShiftCmd())
	cmd.AddCommand(listShiftsCmd())
	cmd.AddCommand(summaryCmd())
	cmd.AddCommand(exportShiftCmd())
	return cmd
}

func openShiftCmd() *cobra.Command {
	var (
		starting string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new shift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := core.ParseMoney(starting)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			shift, err := a.Shifts.OpenShift(cmd.Context(), a.account, balance, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Opened shift "+shift.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&starting, "starting-balance", "0", "cash in the drawer when the shift opens")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func closeShiftCmd() *cobra.Command {
	var ending string
	cmd := &cobra.Command{
		Use:   "close [shift-id]",
		Short: "Close the open shift, or the given one",
		Long:  `Close a shift. Without --ending-balance the shift's net is recorded as its ending balance.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var shiftID string
			if len(args) == 1 {
				shiftID = args[0]
			}

			var shift core.Shift
			if ending == "" {
				shift, err = a.Shifts.CloseShiftComputed(cmd.Context(), a.account, shiftID)
			} else {
				balance, perr := core.ParseMoney(ending)
				if perr != nil {
					return perr
				}
				shift, err = a.Shifts.CloseShift(cmd.Context(), a.account, shiftID, balance)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("Closed shift %s with ending balance %s", shift.ID, shift.EndingBalance)))
			return nil
		},
	}
	cmd.Flags().StringVar(&ending, "ending-balance", "", "counted ending balance")
	return cmd
}

func listShiftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shifts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			shifts, err := a.Shifts.ListShifts(cmd.Context(), a.account)
			if err != nil {
				return err
			}
			if len(shifts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No shifts yet. Use 'kassactl shift open' to start one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"), headerStyle.Render("Name"), headerStyle.Render("Status"),
				headerStyle.Render("Opened"), headerStyle.Render("Ending"))
			for _, s := range shifts {
				ending := "-"
				if s.EndingBalance != nil {
					ending = s.EndingBalance.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Status, s.OpenedAt.Format("2006-01-02 15:04"), ending)
			}
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <shift-id>",
		Short: "Show per-type totals and category results of a shift",
		Args:  cobra.ExactArgs(1),
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

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, t := range core.PaymentTypes {
				fmt.Fprintf(w, "%s\t%s\n", t, sum.Totals[t])
			}
			fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render("income"), sum.Income)
			fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render("net"), sum.NetProfit)
			for _, c := range sum.Categories {
				style := successStyle
				if c.Outcome == core.OutcomeLoss {
					style = warningStyle
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Expenses, style.Render(string(c.Outcome)+" "+c.ProfitOrLoss.String()))
			}
			return nil
		},
	}
}
