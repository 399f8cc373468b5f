package rp

import "errors"

// Error codes surfaced to callers. The wire shape is {code, details?}.
const (
	CodeBadRP          = "BAD_RP"           // room options failed validation
	CodeBadRPCode      = "BAD_RPCODE"       // room code is not a string
	CodeRPNotFound     = "RP_NOT_FOUND"     // no room with that code
	CodeBadMessage     = "BAD_MSG"          // message failed validation
	CodeBadChara       = "BAD_CHARA"        // chara failed validation
	CodeBadEdit        = "BAD_EDIT"         // edit request failed validation
	CodeCharaNotFound  = "CHARA_NOT_FOUND"  // charaId references nothing
	CodeBadMessageID   = "BAD_MSG_ID"       // edit target does not exist
	CodeBadSecret      = "BAD_SECRET"       // secret does not match the stored hash
	CodeBadURL         = "BAD_URL"          // image url is not a usable string
	CodeURLFailed      = "URL_FAILED"       // image url could not be fetched
	CodeUnknownContent = "UNKNOWN_CONTENT"  // image url reported no content type
	CodeBadContent     = "BAD_CONTENT"      // image url is not an image
	CodeInternal       = "INTERNAL"         // unexpected failure, e.g. store unavailable
)

// Error is a classified failure. Every error returned by the Service is
// one of these; nothing unclassified leaks to callers.
type Error struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Details
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code, details string) *Error {
	return &Error{Code: code, Details: details}
}

// internalError wraps an unexpected failure without exposing its text
// to callers.
func internalError(err error) *Error {
	return &Error{Code: CodeInternal, cause: err}
}

// CodeOf extracts the error code, or CodeInternal for anything
// unclassified.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
