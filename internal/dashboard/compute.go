package dashboard

import (
	"sort"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	UncategorizedName  = "Uncategorized"
	UncategorizedColor = "#9CA3AF"
	TrendMonths        = 6
)

// ComputeStats sums amounts by type. Amounts are added in whatever currency
// each transaction is stored in.
func ComputeStats(txs []core.Transaction) core.Stats {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return core.Stats{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// ComputeCategoryBreakdown groups expenses by category name, largest total first.
// Each group takes the color of the first transaction seen for it. Equal totals
// keep first-seen order.
func ComputeCategoryBreakdown(txs []core.Transaction) []core.CategoryTotal {
	index := make(map[string]int)
	out := make([]core.CategoryTotal, 0)

	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		name, color := UncategorizedName, UncategorizedColor
		if t.Category != nil {
			name, color = t.Category.Name, t.Category.Color
		}
		i, ok := index[name]
		if !ok {
			index[name] = len(out)
			out = append(out, core.CategoryTotal{Name: name, Value: t.Amount, Color: color})
			continue
		}
		out[i].Value = out[i].Value.Add(t.Amount)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}

// ComputeMonthlyTrend returns the month of now and the five before it, oldest
// first. now's location decides the current month; each transaction's month
// is read in its own stored offset.
func ComputeMonthlyTrend(txs []core.Transaction, now time.Time) []core.MonthlyPoint {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	points := make([]core.MonthlyPoint, TrendMonths)
	slot := make(map[int]int, TrendMonths)
	for i := 0; i < TrendMonths; i++ {
		m := current.AddDate(0, i-(TrendMonths-1), 0)
		points[i] = core.MonthlyPoint{
			Name:    m.Month().String()[:3],
			Year:    m.Year(),
			Month:   int(m.Month()),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
		slot[monthKey(m.Year(), m.Month())] = i
	}

	for _, t := range txs {
		i, ok := slot[monthKey(t.Date.Year(), t.Date.Month())]
		if !ok {
			continue
		}
		switch t.Type {
		case core.Income:
			points[i].Income = points[i].Income.Add(t.Amount)
		case core.Expense:
			points[i].Expense = points[i].Expense.Add(t.Amount)
		}
	}
	return points
}

func monthKey(year int, month time.Month) int {
	return year*12 + int(month) - 1
}
