package core

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	DefaultCurrency = "EUR"
	DefaultLanguage = "en"
	DefaultTheme    = "light"
)

type (
	TransactionType string

	// Principal is the already-authenticated caller of every operation.
	Principal struct {
		UserID string
	}

	Category struct {
		ID      string
		OwnerID string
		Name    string
		Icon    string
		Color   string
		Type    TransactionType
	}

	Transaction struct {
		ID          string
		OwnerID     string
		Date        time.Time
		Description string
		Amount      decimal.Decimal
		Currency    string
		Type        TransactionType
		Category    *Category // nil when uncategorized
	}

	// UserSettings holds display preferences. IsRTL is derived from Language
	// and only ever set through Normalize.
	UserSettings struct {
		UserID   string
		Currency string
		Language string
		Theme    string
		IsRTL    bool
	}

	// SettingsPatch carries a partial settings update; nil fields are left untouched.
	SettingsPatch struct {
		Currency *string
		Language *string
		Theme    *string
	}

	// RateSnapshot is a freshly fetched rate table for one base currency.
	RateSnapshot struct {
		Base      string
		Rates     map[string]decimal.Decimal
		UpdatedAt time.Time
	}
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrEmptyOwner       = errors.New("empty owner")
)

// ValidCurrencyCode reports whether code is three uppercase ASCII letters.
func ValidCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code)
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (p Principal) Valid() bool {
	return strings.TrimSpace(p.UserID) != ""
}

// DefaultSettings returns the settings a user starts with.
func DefaultSettings(userID string) UserSettings {
	s := UserSettings{
		UserID:   userID,
		Currency: DefaultCurrency,
		Language: DefaultLanguage,
		Theme:    DefaultTheme,
	}
	s.SyncDirection()
	return s
}

// SyncDirection recomputes IsRTL from Language. Arabic is the only RTL language.
func (s *UserSettings) SyncDirection() {
	s.IsRTL = s.Language == "ar"
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	// Stores keep two places, so the amount must survive rounding to cents.
	if !RoundAmount(t.Amount).IsPositive() {
		return InvalidCurrency("amount must be at least 0.01")
	}
	if !ValidCurrencyCode(t.Currency) {
		return InvalidCurrency("invalid currency code: %q", t.Currency)
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// CategoryName returns the category name, or "" when uncategorized.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Color) == "" {
		return errors.New("color is required")
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
