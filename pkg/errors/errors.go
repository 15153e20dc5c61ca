package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Pipeline error codes. The first five map one-to-one onto per-record
// delivery outcomes; the rest are infrastructure-level.
const (
	ErrTemplateNotFound ErrorCode = iota + 2000
	ErrTemplateInactive
	ErrTemplateInvalid
	ErrMissingRecipient
	ErrTransport
	ErrStoreConflict
	ErrNotFound
	ErrBadRequest
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is makes two AppErrors match on code alone, so callers can compare
// against the sentinel constructors below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the ErrorCode from err, or ErrInternal if err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrInternal
}

// IsRecordError reports whether err is a per-record delivery failure
// rather than an infrastructure failure. Per-record failures mark a
// single notification failed and never abort a batch.
func IsRecordError(err error) bool {
	switch CodeOf(err) {
	case ErrTemplateNotFound, ErrTemplateInactive, ErrTemplateInvalid,
		ErrMissingRecipient, ErrTransport:
		return true
	}
	return false
}

func TemplateNotFound(notificationType string) *AppError {
	return &AppError{
		Code:    ErrTemplateNotFound,
		Message: fmt.Sprintf("no template for notification type %q", notificationType),
	}
}

func TemplateInactive(notificationType string) *AppError {
	return &AppError{
		Code:    ErrTemplateInactive,
		Message: fmt.Sprintf("template for notification type %q is inactive", notificationType),
	}
}

// TemplateInvalid wraps a template syntax error (nested or unclosed
// conditional block). Recoverable only by fixing the template.
func TemplateInvalid(notificationType string, err error) *AppError {
	return &AppError{
		Code:    ErrTemplateInvalid,
		Message: fmt.Sprintf("template for notification type %q is invalid", notificationType),
		Err:     err,
	}
}

func MissingRecipient(trackingCode string) *AppError {
	return &AppError{
		Code:    ErrMissingRecipient,
		Message: fmt.Sprintf("notification %s has no usable recipient address", trackingCode),
	}
}

func Transport(err error) *AppError {
	return &AppError{
		Code:    ErrTransport,
		Message: "transport send failed",
		Err:     err,
	}
}

// StoreConflict marks a record already claimed or completed by a
// concurrent writer. Treated as a silent skip by the dispatcher.
func StoreConflict(id string) *AppError {
	return &AppError{
		Code:    ErrStoreConflict,
		Message: fmt.Sprintf("record %s already claimed by a concurrent run", id),
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}
