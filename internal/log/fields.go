package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldEndpoint   = "endpoint"
	FieldCacheKey   = "cache_key"
	FieldTag        = "tag"
	FieldEntryState = "entry_state"
	FieldUserID     = "user_id"
	FieldStorageKey = "storage_key"
)

// Components defines standard component names.
const (
	ComponentApp       = "app"
	ComponentConfig    = "config"
	ComponentGateway   = "gateway"
	ComponentCache     = "cache"
	ComponentCredStore = "credstore"
	ComponentStorage   = "storage"
	ComponentServices  = "services"
	ComponentReport    = "report"
)

// Operations defines standard operation names.
const (
	OpFetch      = "fetch"
	OpSubscribe  = "subscribe"
	OpMutate     = "mutate"
	OpInvalidate = "invalidate"
	OpRehydrate  = "rehydrate"
	OpPersist    = "persist"
	OpClear      = "clear"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
