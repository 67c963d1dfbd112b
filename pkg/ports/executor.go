package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// APIExecutor performs the read-only call of an api executor.
// Implementations must refuse anything but GET with domain.ErrMethodNotAllowed.
type APIExecutor interface {
	// Fetch calls the endpoint with its query params and returns the decoded JSON body.
	Fetch(ctx context.Context, cfg domain.APIConfig) (any, error)
}

// APIExecutorFunc adapts a function to APIExecutor.
type APIExecutorFunc func(ctx context.Context, cfg domain.APIConfig) (any, error)

func (f APIExecutorFunc) Fetch(ctx context.Context, cfg domain.APIConfig) (any, error) {
	return f(ctx, cfg)
}
