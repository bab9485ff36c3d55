package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product with this id already exists")
	// ErrConflict - SKU или ID уже принадлежит другому товару
	ErrConflict = errors.New("product conflicts with an existing record")
	// ErrIDMismatch - ID в теле запроса не совпадает с ID в пути
	ErrIDMismatch = errors.New("product id in body does not match path")
	// ErrMissingLookupKey - в поиске по id/sku не передан ни один ключ
	ErrMissingLookupKey = errors.New("either id or sku must be provided")
)

// IngestionErrorKind - класс ошибки загрузки фида
type IngestionErrorKind string

const (
	// TransportUnavailable - фид недоступен после всех попыток
	TransportUnavailable IngestionErrorKind = "TRANSPORT_UNAVAILABLE"
	// MalformedPayload - ответ фида не соответствует формату или правилам валидации
	MalformedPayload IngestionErrorKind = "MALFORMED_PAYLOAD"
	// ReconciliationConflict - пакет нарушает уникальность ID/SKU и отклонён целиком
	ReconciliationConflict IngestionErrorKind = "RECONCILIATION_CONFLICT"
	// IngestionInternal - прочие сбои хранилища
	IngestionInternal IngestionErrorKind = "INTERNAL"
)

// IngestionError - типизированный итог неуспешной загрузки
type IngestionError struct {
	RunID    string
	Kind     IngestionErrorKind
	Attempts int
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IngestionErrorKindOf возвращает класс ошибки или пустую строку
func IngestionErrorKindOf(err error) IngestionErrorKind {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind
	}
	return ""
}
