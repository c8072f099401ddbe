package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldUserID       = "user_id"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldFromCurrency = "from_currency"
	FieldToCurrency   = "to_currency"
	FieldConverted    = "converted"
	FieldReason       = "reason"
	FieldTransaction  = "transaction_id"
	FieldCount        = "count"
	FieldDuration     = "duration_ms"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSettings  = "settings"
	ComponentCurrency  = "currency"
	ComponentDashboard = "dashboard"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
)

// Operations
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpConvert  = "convert"
	OpMirror   = "mirror"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Fields is a small builder for slog key/value pairs.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithUser(userID string) Fields {
	f[FieldUserID] = userID
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithCurrencies(from, to string) Fields {
	f[FieldFromCurrency] = from
	f[FieldToCurrency] = to
	return f
}

// WithConversion records a currency change and how many amounts it moved.
func (f Fields) WithConversion(from, to string, converted int) Fields {
	f[FieldConverted] = converted
	return f.WithCurrencies(from, to)
}

func (f Fields) WithReason(reason string) Fields {
	f[FieldReason] = reason
	return f
}

func (f Fields) WithTransaction(id string) Fields {
	f[FieldTransaction] = id
	return f
}

// ToSlice flattens the fields for slog's variadic args.
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
