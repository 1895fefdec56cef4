package apperr

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs an error that cannot be returned to a caller. Values attached
// with goerr.V are logged as separate attributes.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	logger := ctxlog.From(ctx)
	attrs := []any{"error", err}
	for k, v := range goerr.Values(err) {
		attrs = append(attrs, k, v)
	}
	logger.Error("application error", attrs...)
}
