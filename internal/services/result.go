package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/logger"
)

// Result is the uniform outcome of a property service operation.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	cause error
}

// Err returns the failure cause, nil on success. Transport layers map it to a status code.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.cause == nil {
		return apperrors.NewInternal(r.Error, nil)
	}
	return r.cause
}

// Page is a slice of results with its pagination window.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func succeed[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Error: handleServiceError(err), cause: err}
}

// handleServiceError turns anything raised inside a service into the message
// reported to callers. Errors contribute their message (the public one for
// AppErrors); any other value yields a fixed fallback.
func handleServiceError(v any) string {
	var appErr *apperrors.AppError
	switch e := v.(type) {
	case nil:
		return MsgUnexpectedError
	case error:
		if errors.As(e, &appErr) {
			return appErr.Message
		}
		return e.Error()
	default:
		return MsgUnexpectedError
	}
}

// recoverResult converts a panic inside a service method into a failed Result.
// Use as: defer recoverResult(&res, "operation").
func recoverResult[T any](res *Result[T], operation string) {
	r := recover()
	if r == nil {
		return
	}

	var cause error
	if err, ok := r.(error); ok {
		cause = apperrors.NewInternal(err.Error(), err)
	} else {
		cause = apperrors.NewInternal(MsgUnexpectedError, fmt.Errorf("panic: %v", r))
	}
	logger.WithModule("services").Error("service operation panicked",
		zap.String("operation", operation),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	*res = Result[T]{Error: handleServiceError(r), cause: cause}
}
