package secretskeeper

import "net/http"

// Error codes surfaced by the local strategy
const (
	ErrCodeMissingField  = "missing_field"
	ErrCodeInvalidEmail  = "invalid_email"
	ErrCodeInvalidCreds  = "invalid_credentials"
	ErrCodeEmailExists   = "email_exists"
	ErrCodeStorageFailed = "storage_failed"
)

// AuthError describes an authentication failure with a stable code and the
// form field it relates to (when there is one).
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler lets applications take over error responses, e.g. to
// redirect browser flows back to a form instead of returning JSON. Return
// true if the response was written.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool
