// Package apperr 定义统一的应用错误类型，并把存储层、令牌层的错误归一化为
// 面向客户端的状态码与消息。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"accounts/internal/auth"
	"accounts/internal/entity"

	"github.com/golang-jwt/jwt/v5"
)

// Kind 错误分类
type Kind string

const (
	KindValidation      Kind = "validation"
	KindBadRequest      Kind = "bad_request"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindTooManyRequests Kind = "too_many_requests"
	KindServer          Kind = "server"
)

const (
	StatusFail  = "fail"
	StatusError = "error"
)

// GenericMessage replaces the message of non-operational errors in production.
const GenericMessage = "Something went wrong! Please try later."

const maxStackDepth = 32

// Error is an error whose message is safe to show to the client.
// Operational is false for errors that were not anticipated by the code
// that produced them.
type Error struct {
	Kind        Kind
	StatusCode  int
	Message     string
	Err         error
	Operational bool

	stack []uintptr
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns "fail" for 4xx and "error" for everything else.
func (e *Error) Status() string {
	return StatusFor(e.StatusCode)
}

// Stack renders the call stack captured when the error was created.
func (e *Error) Stack() string {
	if e == nil || len(e.stack) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// StatusFor maps an HTTP status code to the response status string.
func StatusFor(code int) string {
	if code >= 400 && code < 500 {
		return StatusFail
	}
	return StatusError
}

// New creates an operational error.
func New(kind Kind, statusCode int, message string) *Error {
	return newError(kind, statusCode, message, nil, true)
}

// Wrap creates an operational error that keeps the cause reachable.
func Wrap(err error, kind Kind, statusCode int, message string) *Error {
	return newError(kind, statusCode, message, err, true)
}

func BadRequest(message string) *Error {
	return newError(KindBadRequest, http.StatusBadRequest, message, nil, true)
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, message, nil, true)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, http.StatusForbidden, message, nil, true)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil, true)
}

func TooManyRequests(message string) *Error {
	return newError(KindTooManyRequests, http.StatusTooManyRequests, message, nil, true)
}

// Internal is an anticipated server side failure whose message may be shown.
func Internal(message string, err error) *Error {
	return newError(KindServer, http.StatusInternalServerError, message, err, true)
}

func newError(kind Kind, statusCode int, message string, err error, operational bool) *Error {
	pcs := make([]uintptr, maxStackDepth)
	// 跳过 runtime.Callers、newError 以及导出的构造函数
	n := runtime.Callers(3, pcs)
	return &Error{
		Kind:        kind,
		StatusCode:  statusCode,
		Message:     message,
		Err:         err,
		Operational: operational,
		stack:       pcs[:n],
	}
}

// Normalize classifies any error into an *Error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var castErr *entity.CastError
	if errors.As(err, &castErr) {
		return Wrap(err, KindBadRequest, http.StatusBadRequest,
			fmt.Sprintf("Invalid %s: %s.", castErr.Field, castErr.Value))
	}

	var dupErr *entity.DuplicateKeyError
	if errors.As(err, &dupErr) {
		return Wrap(err, KindBadRequest, http.StatusBadRequest,
			fmt.Sprintf("Duplicate field value: %q. Please use another value!", dupErr.Value))
	}

	var validationErr *entity.ValidationError
	if errors.As(err, &validationErr) {
		return Wrap(err, KindValidation, http.StatusBadRequest,
			"Invalid input data. "+strings.Join(validationErr.Messages(), ". "))
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return Wrap(err, KindUnauthorized, http.StatusUnauthorized, "Your token has expired! Please log in again.")
	}
	if errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return Wrap(err, KindUnauthorized, http.StatusUnauthorized, "Invalid token. Please log in again!")
	}

	if errors.Is(err, entity.ErrUserNotFound) {
		return Wrap(err, KindNotFound, http.StatusNotFound, "No user found with that ID")
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return Wrap(err, KindBadRequest, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body too large. The limit is %d bytes.", maxBytesErr.Limit))
	}

	return newError(KindServer, http.StatusInternalServerError, err.Error(), err, false)
}
