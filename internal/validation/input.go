package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Константы валидации
const (
	MaxReportDescriptionLength = 1000
	MaxAdminNoteLength         = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateReportDescription проверяет необязательное описание жалобы.
func ValidateReportDescription(description *string) error {
	if description == nil {
		return nil
	}
	return ValidateLength("описание", *description, 0, MaxReportDescriptionLength)
}

// ValidateAdminNote проверяет необязательный комментарий администратора.
func ValidateAdminNote(note *string) error {
	if note == nil {
		return nil
	}
	return ValidateLength("комментарий администратора", *note, 0, MaxAdminNoteLength)
}

// NormalizeOptional обрезает пробелы и превращает пустую строку в nil.
func NormalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ParseOptionalUUID разбирает необязательный идентификатор.
// Пустая строка и nil означают отсутствие значения.
func ParseOptionalUUID(fieldName string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%s должен быть валидным UUID", fieldName)
	}
	return &id, nil
}
