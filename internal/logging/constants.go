package logging

// Field names shared across components so log output stays filterable.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldSource        = "source"
	FieldToken         = "access_token"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldProfile       = "profile"
	FieldCount         = "count"
	FieldAdjusted      = "adjusted"
	FieldPage          = "page"
	FieldTotal         = "total"
	FieldBackend       = "backend"
	FieldPath          = "path"
	FieldDuration      = "duration_ms"
	FieldStatus        = "status"
	FieldMethod        = "method"
	FieldRequestPath   = "request_path"
)

// MaskToken shortens an access token for logging, keeping the first ten characters.
func MaskToken(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
