package errors

import (
	"context"
	stderrors "errors"

	"github.com/vango-dev/wiretap/pkg/protocol"
	"github.com/vango-dev/wiretap/pkg/session"
	"github.com/vango-dev/wiretap/pkg/store"
	"github.com/vango-dev/wiretap/pkg/tap"
)

// Classify maps an error returned by the wiretap packages to a coded
// WiretapError. Errors without a specific code become fallback.
func Classify(err error, fallback string) *WiretapError {
	if err == nil {
		return nil
	}
	var we *WiretapError
	if stderrors.As(err, &we) {
		return we
	}

	code := fallback
	switch {
	case stderrors.Is(err, session.ErrTransportUnavailable),
		stderrors.Is(err, tap.ErrClosed):
		code = "W001"
	case stderrors.Is(err, session.ErrStateUnavailable),
		stderrors.Is(err, context.DeadlineExceeded):
		code = "W002"
	case stderrors.Is(err, session.ErrEmptyStateCode),
		stderrors.Is(err, store.ErrEmptyStateCode):
		code = "W006"
	case stderrors.Is(err, protocol.ErrShortBuffer):
		code = "W040"
	case stderrors.Is(err, protocol.ErrInvalidLength),
		stderrors.Is(err, protocol.ErrFrameTooLarge):
		code = "W041"
	case stderrors.Is(err, protocol.ErrStringTooLong):
		code = "W042"
	case stderrors.Is(err, store.ErrNotFound):
		code = "W120"
	}
	return New(code).Wrap(err)
}
