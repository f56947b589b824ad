package analytics

import (
	"sort"
	"strings"

	"kassa/internal/core"
)

// MatchesCategory reports whether tx belongs to the named category. It checks,
// in order: the logical category, a "[name]" tag anywhere in the description
// (ignoring case), and finally the bare name as a whole word at the start, end
// or middle of the description. The last path exists for rows written before
// tags were bracketed and must keep matching them.
func MatchesCategory(tx core.Transaction, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if tx.Category.Name == name {
		return true
	}
	if core.HasCategoryTag(tx.Description, name) {
		return true
	}

	desc := strings.ToLower(strings.TrimSpace(tx.Description))
	n := strings.ToLower(name)
	return desc == n ||
		strings.HasPrefix(desc, n+" ") ||
		strings.HasSuffix(desc, " "+n) ||
		strings.Contains(desc, " "+n+" ")
}

// TransactionsForCategory filters txs down to those matching the category.
func TransactionsForCategory(txs []core.Transaction, name string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if MatchesCategory(tx, name) {
			out = append(out, tx)
		}
	}
	return out
}

// ExpenseOnly keeps the xarajat transactions.
func ExpenseOnly(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type.IsExpense() {
			out = append(out, tx)
		}
	}
	return out
}

// CategoryBreakdown reports expenses, sales and profit or loss per category.
// Categories come from names first, in order, followed by any other category
// found on an expense, sorted. sales is keyed by category name.
func CategoryBreakdown(txs []core.Transaction, names []string, sales map[string]core.Money) []core.CategoryBreakdown {
	expenses := ExpenseOnly(txs)

	seen := make(map[string]bool, len(names))
	ordered := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		ordered = append(ordered, strings.TrimSpace(n))
	}
	var extra []string
	for _, tx := range expenses {
		key := strings.ToLower(tx.Category.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		extra = append(extra, tx.Category.Name)
	}
	sort.Strings(extra)
	ordered = append(ordered, extra...)

	out := make([]core.CategoryBreakdown, 0, len(ordered))
	for _, name := range ordered {
		matched := TransactionsForCategory(expenses, name)
		spent := TotalByType(matched, core.PaymentXarajat)
		sold := sales[name]
		diff, outcome := ProfitOrLoss(sold, spent)
		out = append(out, core.CategoryBreakdown{
			Name:         name,
			Count:        len(matched),
			Expenses:     spent,
			Sales:        sold,
			ProfitOrLoss: diff,
			Outcome:      outcome,
		})
	}
	return out
}
