// Package apperr определяет классификацию ошибок бизнес-логики.
// Сервисы возвращают ошибки с видом (Kind), API-слой отображает вид
// в HTTP-статус. Обертывание через fmt.Errorf("%w") сохраняет вид.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind представляет машиночитаемый вид ошибки
type Kind string

const (
	KindValidation Kind = "validation_error" // некорректные входные данные, 400
	KindNotFound   Kind = "not_found"        // объект не найден, 404
	KindConflict   Kind = "conflict"         // нарушение состояния/дубликат, 409
	KindForbidden  Kind = "forbidden"        // чужой объект или нет прав, 403
	KindUpstream   Kind = "upstream_error"   // внешний сервис недоступен, 502
)

// Error представляет классифицированную ошибку с человекочитаемым сообщением
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind возвращает вид ошибки
func (e *Error) Kind() Kind { return e.kind }

// Message возвращает сообщение без технических деталей
func (e *Error) Message() string { return e.msg }

// HTTPStatus возвращает HTTP-статус, соответствующий виду ошибки
func (e *Error) HTTPStatus() int {
	switch e.kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation создает ошибку валидации входных данных
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound создает ошибку отсутствия объекта
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflict создает ошибку нарушения состояния
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// Forbidden создает ошибку доступа к чужому объекту
func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

// Upstream создает ошибку внешнего сервиса с сохранением причины
func Upstream(err error, format string, args ...any) *Error {
	e := newError(KindUpstream, format, args...)
	e.err = err
	return e
}

// From извлекает классифицированную ошибку из цепочки.
// Возвращает nil, если в цепочке нет *Error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind сообщает, относится ли ошибка к указанному виду
func IsKind(err error, kind Kind) bool {
	e := From(err)
	return e != nil && e.kind == kind
}
