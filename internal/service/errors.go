package service

type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "VALIDATION"
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrorCodeRegistrationClosed ErrorCode = "REGISTRATION_CLOSED"
	ErrorCodeContestNotStarted  ErrorCode = "CONTEST_NOT_STARTED"
	ErrorCodeInvalidBody        ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified        ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}
