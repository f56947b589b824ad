package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kassa/internal/core"
	"kassa/internal/services"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and inspect shift transactions",
	}
	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(listTxCmd())
	cmd.AddCommand(deleteTxCmd())
	cmd.AddCommand(clearExpensesCmd())
	return cmd
}

func addTxCmd() *cobra.Command {
	var (
		category    string
		description string
		shiftID     string
	)
	cmd := &cobra.Command{
		Use:   "add <type> <amount>",
		Short: "Add a transaction to the open shift",
		Long: `Add a transaction. <type> is one of kassa, click, uzcard, humo or xarajat.
--category is only kept for xarajat (expense) entries.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := core.ParsePaymentType(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.Shifts.SessionFor(cmd.Context(), a.account, shiftID)
			if err != nil {
				return err
			}
			tx, err := a.Ledger.AddTransaction(cmd.Context(), session, services.NewTransaction{
				Amount:      amount,
				Type:        pt,
				Description: description,
				Category:    category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Added %s %s (%s)", tx.Type, tx.Amount, tx.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "expense category")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free text")
	cmd.Flags().StringVar(&shiftID, "shift", "", "shift id (default: the open shift)")
	return cmd
}

func listTxCmd() *cobra.Command {
	var shiftID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the transactions of a shift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.Shifts.SessionFor(cmd.Context(), a.account, shiftID)
			if err != nil {
				return err
			}
			txs, err := a.Ledger.ListTransactions(cmd.Context(), a.account, session.ShiftID)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No transactions in this shift."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"), headerStyle.Render("Date"), headerStyle.Render("Type"),
				headerStyle.Render("Amount"), headerStyle.Render("Category"), headerStyle.Render("Description"))
			for _, t := range txs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Date.Format("15:04"), t.Type, t.Amount, t.CategoryName(), t.DisplayDescription())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shiftID, "shift", "", "shift id (default: the open shift)")
	return cmd
}

func deleteTxCmd() *cobra.Command {
	var shiftID string
	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction from the open shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.Shifts.SessionFor(cmd.Context(), a.account, shiftID)
			if err != nil {
				return err
			}
			if err := a.Ledger.DeleteTransaction(cmd.Context(), session, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Deleted "+args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&shiftID, "shift", "", "shift id (default: the open shift)")
	return cmd
}

func clearExpensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-expenses",
		Short: "Delete every xarajat entry of the open shift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.Shifts.Session(cmd.Context(), a.account)
			if err != nil {
				return err
			}
			n, err := a.Ledger.DeleteAllExpenses(cmd.Context(), session)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted %d expenses", n)))
			return nil
		},
	}
}
