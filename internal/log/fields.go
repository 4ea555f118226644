package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOwnerID     = "owner_id"
	FieldRecordID    = "record_id"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldOccurredOn  = "occurred_on"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldBackend     = "backend"
	FieldQueue       = "queue"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentSession = "session"
	ComponentWorker  = "worker"
	ComponentAMQP    = "amqp"
	ComponentExport  = "export"
	ComponentWatch   = "watch"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpWatch    = "watch"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder for structured log fields.
type LogFields map[string]any

// NewFields creates a new LogFields instance.
func NewFields() LogFields {
	return make(LogFields)
}

// WithOwner adds the owner id field.
func (f LogFields) WithOwner(ownerID string) LogFields {
	f[FieldOwnerID] = ownerID
	return f
}

// WithRecord adds record-related fields.
func (f LogFields) WithRecord(recordID, categoryID string, amountCents int64) LogFields {
	f[FieldRecordID] = recordID
	f[FieldCategoryID] = categoryID
	f[FieldAmountCents] = amountCents
	return f
}

// WithPeriod adds year/month fields.
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithOperation adds the operation field.
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error field when err is non-nil.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// ToSlice converts LogFields to a slice for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
