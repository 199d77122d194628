package core

import (
	"context"
	stderrors "errors"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// WrapDriverError wraps a driver error as errType, or as a cancellation when
// ctx is done. Errors that are already classified keep their class.
func WrapDriverError(ctx context.Context, err error, errType errors.ErrorType, msg string) *errors.Error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.ErrorTypeCancelled, msg)
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return errors.Wrap(err, e.Type, msg)
	}
	return errors.Wrap(err, errType, msg)
}
