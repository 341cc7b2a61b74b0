package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/pbaille/campusecho/internal/embedding"
	"github.com/pbaille/campusecho/internal/generation"
	"github.com/pbaille/campusecho/internal/store"
	"github.com/pbaille/campusecho/internal/summarize"
	"github.com/pbaille/campusecho/internal/weather"
)

// Code classifies a handler failure for logs and metrics.
type Code string

const (
	CodeStorageUnavailable  Code = "storage_unavailable"
	CodeExternalUnavailable Code = "external_unavailable"
	CodeTimeout             Code = "timeout"
	CodeHandlerFailure      Code = "handler_failure"
	CodePanic               Code = "panic"
)

// panicError carries a value recovered from a handler.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

func codeOf(err error) Code {
	var (
		netErr net.Error
		pe     *panicError
	)
	switch {
	case errors.As(err, &pe):
		return CodePanic
	case errors.Is(err, store.ErrUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.Is(err, weather.ErrNotConfigured),
		errors.Is(err, generation.ErrNotConfigured),
		errors.Is(err, embedding.ErrNotConfigured),
		errors.Is(err, summarize.ErrNotReady),
		netErr != nil:
		return CodeExternalUnavailable
	default:
		return CodeHandlerFailure
	}
}
