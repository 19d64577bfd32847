package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:      http.StatusNotFound,
		ErrCodeValidation:    http.StatusBadRequest,
		ErrCodeRateLimited:   http.StatusForbidden,
		ErrCodeBanned:        http.StatusForbidden,
		ErrCodeConflict:      http.StatusConflict,
		ErrCodeDatabaseError: http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, string(code))
	}
}

func TestReasonCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", RateLimited("PENDING_CAP", "слишком много жалоб"))

	assert.Equal(t, "PENDING_CAP", ReasonCodeOf(err))
	assert.Empty(t, ReasonCodeOf(errors.New("plain")))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("reason", "неизвестная причина")

	assert.True(t, IsValidation(err))
	assert.Equal(t, "неизвестная причина", err.Fields["reason"])
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось сохранить жалобу")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, IsNotFound(err))
	assert.True(t, IsConflict(ErrAlreadyDecided))
}
