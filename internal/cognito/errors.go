package cognito

import "errors"

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotConfirmed  = errors.New("user not confirmed")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code expired")
)

var errorCodes = map[string]error{
	"UsernameExistsException":   ErrUserAlreadyExists,
	"UserNotFoundException":     ErrUserNotFound,
	"UserNotConfirmedException": ErrUserNotConfirmed,
	"InvalidPasswordException":  ErrInvalidPassword,
	"NotAuthorizedException":    ErrNotAuthorized,
	"TooManyRequestsException":  ErrTooManyRequests,
	"LimitExceededException":    ErrTooManyRequests,
	"InvalidParameterException": ErrInvalidParameter,
	"CodeMismatchException":     ErrInvalidCode,
	"ExpiredCodeException":      ErrCodeExpired,
}
