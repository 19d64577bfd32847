package common

import (
	"errors"

	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые разбирают репозитории.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// IsCheckViolation сообщает, нарушено ли CHECK-ограничение.
func IsCheckViolation(err error) bool {
	return pgCode(err) == pgCheckViolation
}
