package core

import "github.com/shopspring/decimal"

// Stats sums every transaction in its stored currency; no normalization.
type Stats struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

// CategoryTotal is one slice of the expense breakdown.
type CategoryTotal struct {
	Name  string
	Value decimal.Decimal
	Color string
}

// MonthlyPoint is one month of the income/expense trend.
type MonthlyPoint struct {
	Name    string // short month label, e.g. "Jan"
	Year    int
	Month   int // 1-12
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Report bundles the three dashboard views computed from one ledger snapshot.
type Report struct {
	Stats      Stats
	Categories []CategoryTotal
	Trend      []MonthlyPoint
}
