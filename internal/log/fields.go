package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldPersonID      = "person_id"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldTxType        = "type"
	FieldCount         = "count"
	FieldPath          = "path"
	FieldDBPath        = "db_path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentLedger  = "ledger"
	ComponentBackup  = "backup"
	ComponentCache   = "cache"
)
