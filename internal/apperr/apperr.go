// Package apperr classifies the errors the story core surfaces to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse classification used for propagation and status mapping.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindUpstreamStorage Kind = "upstream_storage"
	KindConflict        Kind = "conflict"
)

// Reason refines a validation failure raised by the media validator.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonUnsupportedMediaType Reason = "unsupported_media_type"
	ReasonPayloadTooLarge      Reason = "payload_too_large"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity, e.g. NotFound("story", id).
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

func UnsupportedMediaType(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: ReasonUnsupportedMediaType, Message: fmt.Sprintf(format, args...)}
}

func PayloadTooLarge(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: ReasonPayloadTooLarge, Message: fmt.Sprintf(format, args...)}
}

// UpstreamStorage wraps a failed object-storage call.
func UpstreamStorage(op string, err error) error {
	return &Error{Kind: KindUpstreamStorage, Message: "object storage " + op + " failed", Err: err}
}

func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func kindOf(err error) (Kind, Reason, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, e.Reason, true
	}
	return "", ReasonNone, false
}

func IsValidation(err error) bool {
	k, _, ok := kindOf(err)
	return ok && k == KindValidation
}

func IsNotFound(err error) bool {
	k, _, ok := kindOf(err)
	return ok && k == KindNotFound
}

func IsUpstreamStorage(err error) bool {
	k, _, ok := kindOf(err)
	return ok && k == KindUpstreamStorage
}

func IsConflict(err error) bool {
	k, _, ok := kindOf(err)
	return ok && k == KindConflict
}

// ReasonOf returns the validation reason carried by err, if any.
func ReasonOf(err error) Reason {
	_, r, _ := kindOf(err)
	return r
}

// HTTPStatus maps err onto the status code the transport should answer with.
func HTTPStatus(err error) int {
	k, r, ok := kindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case KindValidation:
		switch r {
		case ReasonUnsupportedMediaType:
			return http.StatusUnsupportedMediaType
		case ReasonPayloadTooLarge:
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamStorage:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
