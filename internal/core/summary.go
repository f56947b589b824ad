package core

import "time"

// Outcome labels the sign of a profit-or-loss figure.
type Outcome string

const (
	OutcomeProfit Outcome = "profit"
	OutcomeLoss   Outcome = "loss"
)

// TypeTotals maps every payment type to its summed amount.
type TypeTotals map[PaymentType]Money

// CategoryBreakdown is the per-category view of a shift's expenses against
// the locally recorded sales figure for that category.
type CategoryBreakdown struct {
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	Expenses     Money   `json:"expenses"`
	Sales        Money   `json:"sales"`
	ProfitOrLoss Money   `json:"profit_or_loss"`
	Outcome      Outcome `json:"outcome"`
}

// ShiftSummary aggregates one shift.
type ShiftSummary struct {
	Shift            Shift               `json:"shift"`
	Totals           TypeTotals          `json:"totals"`
	Income           Money               `json:"income"`
	Expenses         Money               `json:"expenses"`
	NetProfit        Money               `json:"net_profit"`
	TransactionCount int                 `json:"transaction_count"`
	Categories       []CategoryBreakdown `json:"categories"`
}

// MonthlyPoint is one calendar month of a yearly series.
type MonthlyPoint struct {
	Month    int   `json:"month"` // 1-12
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
	Net      Money `json:"net"`
}

// MonthTrend compares a month's net with the month before it.
type MonthTrend struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Current  Money  `json:"current"`
	Previous Money  `json:"previous"`
	Change   string `json:"change"`
}

// ReceiptLine is one resolved transaction ready for a receipt formatter.
type ReceiptLine struct {
	TransactionID string      `json:"transaction_id"`
	Date          time.Time   `json:"date"`
	Type          PaymentType `json:"type"`
	Category      string      `json:"category,omitempty"`
	Description   string      `json:"description"`
	Amount        Money       `json:"amount"`
}

// Receipt is formatter-agnostic receipt data for a shift.
type Receipt struct {
	Shift     Shift         `json:"shift"`
	Lines     []ReceiptLine `json:"lines"`
	Totals    TypeTotals    `json:"totals"`
	Income    Money         `json:"income"`
	Expenses  Money         `json:"expenses"`
	Net       Money         `json:"net"`
	Outcome   Outcome       `json:"outcome"`
	PrintedAt time.Time     `json:"printed_at"`
}
