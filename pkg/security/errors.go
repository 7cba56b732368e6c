package security

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure. The failure handler maps a Kind
// to an HTTP status; nothing else in the pipeline decides statuses.
type Kind int

const (
	KindServiceError Kind = iota
	KindInvalidUsernameFormat
	KindInvalidUsername
	KindInvalidPassword
	KindInvalidRequest
	KindMissingRefreshToken
	KindMalformedToken
	KindWrongTokenType
	KindExpired
	KindAccountExpired
	KindAccountLocked
	KindAccountDisabled
)

var kindNames = map[Kind]string{
	KindServiceError:          "service_error",
	KindInvalidUsernameFormat: "invalid_username_format",
	KindInvalidUsername:       "invalid_username",
	KindInvalidPassword:       "invalid_password",
	KindInvalidRequest:        "invalid_request",
	KindMissingRefreshToken:   "missing_refresh_token",
	KindMalformedToken:        "malformed_token",
	KindWrongTokenType:        "wrong_token_type",
	KindExpired:               "expired",
	KindAccountExpired:        "account_expired",
	KindAccountLocked:         "account_locked",
	KindAccountDisabled:       "account_disabled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Client facing messages.
const (
	MsgInvalidEmail       = "invalid email format"
	MsgBadCredentials     = "check your username or password"
	MsgAbnormalRequest    = "abnormal request"
	MsgCredentialsExpired = "credentials have expired"
	MsgAccountExpired     = "account has expired"
	MsgAccountLocked      = "account is locked"
	MsgAccountDisabled    = "account is disabled"
	MsgUnknown            = "unknown error occurred during authentication"
	MsgProviderMissing    = "provider is missing"
	MsgCodeMissing        = "code is missing"
	MsgUnreadableBody     = "cannot read request body"
)

// Error is the only error type that crosses from converters and providers to
// the failure handler. Message is safe to show to clients; Err is not.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("security: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("security: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// ServiceError wraps an unexpected cause behind the generic message.
func ServiceError(cause error) *Error {
	return newError(KindServiceError, MsgUnknown, cause)
}

// KindOf extracts the Kind from err, treating anything that is not an *Error
// as a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindServiceError
}

// MessageOf returns the client facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return MsgUnknown
}
