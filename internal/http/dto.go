package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/transactions"
)

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(core.AmountScale))
}

type statsDTO struct {
	TotalIncome  json.Number `json:"totalIncome"`
	TotalExpense json.Number `json:"totalExpense"`
	Balance      json.Number `json:"balance"`
}

type categoryDataDTO struct {
	Name  string      `json:"name"`
	Value json.Number `json:"value"`
	Color string      `json:"color"`
}

type monthlyDataDTO struct {
	Name    string      `json:"name"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Year    int         `json:"year"`
	Month   int         `json:"month"`
}

type reportDTO struct {
	Stats      statsDTO          `json:"stats"`
	Categories []categoryDataDTO `json:"expenseByCategory"`
	Monthly    []monthlyDataDTO  `json:"monthlyAnalysis"`
}

func toStatsDTO(s core.Stats) statsDTO {
	return statsDTO{
		TotalIncome:  money(s.TotalIncome),
		TotalExpense: money(s.TotalExpense),
		Balance:      money(s.Balance),
	}
}

func toCategoryDataDTOs(cs []core.CategoryTotal) []categoryDataDTO {
	out := make([]categoryDataDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryDataDTO{Name: c.Name, Value: money(c.Value), Color: c.Color})
	}
	return out
}

func toMonthlyDataDTOs(ps []core.MonthlyPoint) []monthlyDataDTO {
	out := make([]monthlyDataDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, monthlyDataDTO{
			Name:    p.Name,
			Income:  money(p.Income),
			Expense: money(p.Expense),
			Year:    p.Year,
			Month:   p.Month,
		})
	}
	return out
}

// settingsDTO is both the response and the patch body. IsRTL is derived from
// the language and ignored on input.
type settingsDTO struct {
	Currency *string `json:"currency,omitempty"`
	Language *string `json:"language,omitempty"`
	Theme    *string `json:"theme,omitempty"`
	IsRTL    *bool   `json:"isRtl,omitempty"`
}

func toSettingsDTO(s core.UserSettings) settingsDTO {
	return settingsDTO{
		Currency: &s.Currency,
		Language: &s.Language,
		Theme:    &s.Theme,
		IsRTL:    &s.IsRTL,
	}
}

func (d settingsDTO) patch() core.SettingsPatch {
	p := core.SettingsPatch{Language: d.Language, Theme: d.Theme}
	if d.Currency != nil {
		code := strings.TrimSpace(*d.Currency)
		p.Currency = &code
	}
	return p
}

type transactionDTO struct {
	ID                       string      `json:"id,omitempty"`
	Date                     string      `json:"date"`
	Description              string      `json:"description"`
	Amount                   json.Number `json:"amount"`
	Type                     string      `json:"type"`
	Currency                 string      `json:"currency,omitempty"`
	TransactionCategoryID    string      `json:"transactionCategoryId,omitempty"`
	TransactionCategoryName  string      `json:"transactionCategoryName,omitempty"`
	TransactionCategoryIcon  string      `json:"transactionCategoryIcon,omitempty"`
	TransactionCategoryColor string      `json:"transactionCategoryColor,omitempty"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	d := transactionDTO{
		ID:          t.ID,
		Date:        t.Date.Format(time.RFC3339),
		Description: t.Description,
		Amount:      money(t.Amount),
		Type:        string(t.Type),
		Currency:    t.Currency,
	}
	if t.Category != nil {
		d.TransactionCategoryID = t.Category.ID
		d.TransactionCategoryName = t.Category.Name
		d.TransactionCategoryIcon = t.Category.Icon
		d.TransactionCategoryColor = t.Category.Color
	}
	return d
}

var errMissingAmount = errors.New("amount is required")

// input converts the request body. A date-only value is taken as midnight UTC.
// requireDate is false for updates, where an empty date keeps the stored one.
func (d transactionDTO) input(requireDate bool) (transactions.Input, error) {
	var in transactions.Input

	switch date := strings.TrimSpace(d.Date); {
	case date == "" && requireDate:
		return in, core.InvalidInput(core.ErrZeroDate)
	case date == "":
	default:
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			t, err = time.Parse(time.DateOnly, date)
		}
		if err != nil {
			return in, core.InvalidInput(fmt.Errorf("invalid date %q: use RFC 3339 or YYYY-MM-DD", date))
		}
		in.Date = t
	}

	if d.Amount == "" {
		return in, core.InvalidInput(errMissingAmount)
	}
	amount, err := core.ParseAmount(d.Amount.String())
	if err != nil {
		return in, core.InvalidInput(fmt.Errorf("invalid amount %q: must be a positive number of at least 0.01", d.Amount))
	}
	in.Amount = amount

	typ, err := core.ParseTransactionType(d.Type)
	if err != nil {
		return in, core.InvalidInput(err)
	}
	in.Type = typ

	in.Description = d.Description
	in.Currency = strings.TrimSpace(d.Currency)
	in.CategoryID = strings.TrimSpace(d.TransactionCategoryID)
	return in, nil
}

type categoryDTO struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Type: string(c.Type)}
}

func (d categoryDTO) category() (core.Category, error) {
	typ, err := core.ParseTransactionType(d.Type)
	if err != nil {
		return core.Category{}, core.InvalidInput(err)
	}
	return core.Category{Name: d.Name, Icon: d.Icon, Color: d.Color, Type: typ}, nil
}
