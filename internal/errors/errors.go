// Package errors provides coded application errors for the tracker.
// Codes map onto gRPC status codes so remote OCR failures keep their meaning.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code identifies a failure class.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInternal        Code = "INTERNAL"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeCancelled       Code = "CANCELLED"
	CodeProcessNotFound Code = "PROCESS_NOT_FOUND"
	CodeCaptureFailed   Code = "CAPTURE_FAILED"
	CodeOCRFailed       Code = "OCR_FAILED"
	CodeOCRUnavailable  Code = "OCR_UNAVAILABLE"
	CodeOCREmpty        Code = "OCR_EMPTY"
	CodeStoreFailed     Code = "STORE_FAILED"
	CodeConfigInvalid   Code = "CONFIG_INVALID"
)

func (c Code) String() string { return string(c) }

var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:         codes.Unknown,
	CodeInternal:        codes.Internal,
	CodeInvalidArgument: codes.InvalidArgument,
	CodeUnavailable:     codes.Unavailable,
	CodeTimeout:         codes.DeadlineExceeded,
	CodeCancelled:       codes.Canceled,
	CodeProcessNotFound: codes.NotFound,
	CodeCaptureFailed:   codes.Internal,
	CodeOCRFailed:       codes.Internal,
	CodeOCRUnavailable:  codes.Unavailable,
	CodeOCREmpty:        codes.InvalidArgument,
	CodeStoreFailed:     codes.Internal,
	CodeConfigInvalid:   codes.InvalidArgument,
}

// AppError carries a code, a message, optional metadata and the cause.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus lets status.FromError recognise an AppError returned by a handler.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Message)
}

// WithMetadata adds a metadata pair and returns the same error.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// FromGRPCError converts an error returned by a gRPC call into an AppError.
// Unavailable maps to CodeOCRUnavailable: the OCR engine is the only remote peer.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidArgument
	case codes.NotFound:
		return CodeProcessNotFound
	case codes.Unavailable, codes.ResourceExhausted:
		return CodeOCRUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeOCRFailed
	default:
		return CodeUnknown
	}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether err's chain contains an AppError with the given code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout, CodeOCRUnavailable:
		return true
	default:
		return false
	}
}
