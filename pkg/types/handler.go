// Package types defines core contracts shared by all policies
package types

import (
	"context"
	"net/http"
)

// Handler performs a single HTTP exchange. It is the contract every
// policy wraps and the contract the underlying transport must satisfy.
// The request's context is carried separately so policies can narrow it
// without rebuilding the request.
type Handler func(ctx context.Context, req *http.Request) (*http.Response, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(Handler) Handler

// Chain composes middlewares around a final handler. The first
// middleware becomes the outermost layer.
func Chain(final Handler, mws ...Middleware) Handler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// TransportHandler adapts an http.RoundTripper to a Handler.
func TransportHandler(rt http.RoundTripper) Handler {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return rt.RoundTrip(req.WithContext(ctx))
	}
}
