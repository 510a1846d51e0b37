package realtime

import "fanlink/backend/internal/models"

// Protocol error codes. Authentication codes are connection-fatal; every
// other code rejects only the triggering event.
const (
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodeAuthInvalid      = "AUTH_INVALID"
	CodeAccountSuspended = "ACCOUNT_SUSPENDED"

	CodeEmptyContent     = "EMPTY_CONTENT"
	CodeMalformedPayload = "MALFORMED_PAYLOAD"

	CodeUnauthorizedReadAck = "UNAUTHORIZED_READ_ACK"
	CodeNotStreamOwner      = "NOT_STREAM_OWNER"
	CodeUnauthorizedReport  = "UNAUTHORIZED_REPORT"

	CodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	CodeMessageNotFound   = "MESSAGE_NOT_FOUND"
	CodeStreamNotFound    = "STREAM_NOT_FOUND"

	CodeStreamOwnerConflict = "STREAM_OWNER_CONFLICT"

	CodeInternal = "INTERNAL_ERROR"
)

// Error is a protocol-visible failure. The code travels to the client on an
// `error` event; the message is advisory.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// NewError builds a coded protocol error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Payload converts the error into its wire payload.
func (e *Error) Payload() models.ErrorPayload {
	return models.ErrorPayload{Code: e.Code, Message: e.Message}
}
