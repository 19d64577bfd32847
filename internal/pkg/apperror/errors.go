package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
	ErrCodeBanned        ErrorCode = "BANNED"
)

// AppError — ошибка приложения с кодом, HTTP статусом и опциональными деталями.
// ReasonCode содержит машиночитаемую причину отказа (например, PENDING_CAP),
// Fields — ошибки валидации по полям.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	ReasonCode string
	Fields     map[string]string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с привязкой к полю.
func Validation(field, message string) *AppError {
	err := New(ErrCodeValidation, message)
	err.Fields = map[string]string{field: message}
	return err
}

// ValidationFields объединяет несколько ошибок полей в одну.
func ValidationFields(fields map[string]string) *AppError {
	err := New(ErrCodeValidation, "некорректные данные запроса")
	err.Fields = fields
	return err
}

// RateLimited — отказ из-за лимита ожидающих жалоб.
func RateLimited(reasonCode, message string) *AppError {
	err := New(ErrCodeRateLimited, message)
	err.ReasonCode = reasonCode
	return err
}

// Banned — отказ из-за временной или постоянной блокировки.
func Banned(reasonCode, message string) *AppError {
	err := New(ErrCodeBanned, message)
	err.ReasonCode = reasonCode
	return err
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeRateLimited, ErrCodeBanned:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeValidation
}

func IsConflict(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeConflict
}

// ReasonCodeOf возвращает машиночитаемую причину отказа, если она есть.
func ReasonCodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ReasonCode
	}
	return ""
}

var (
	ErrReportNotFound = New(ErrCodeNotFound, "жалоба не найдена")
	ErrTargetNotFound = New(ErrCodeNotFound, "объект жалобы не найден")
	ErrForbidden      = New(ErrCodeForbidden, "недостаточно прав")
	ErrAlreadyDecided = New(ErrCodeConflict, "по жалобе уже принято решение")

	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
)
