// Package middleware wraps a session StateStore with at-rest protections for
// captured answers: AES-GCM encryption and key-based redaction.
package middleware

import "github.com/aretw0/tendril/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
