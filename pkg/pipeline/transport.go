package pipeline

import (
	"net/http"

	"github.com/jzx17/resilience/pkg/types"
)

// roundTripper adapts the composed chain to http.RoundTripper so the
// pipeline can serve as an http.Client transport.
type roundTripper struct {
	handler types.Handler
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.handler(req.Context(), req)
}

// RoundTripper adapts the pipeline to http.RoundTripper.
func (p *Pipeline) RoundTripper() http.RoundTripper {
	return roundTripper{handler: p.handler}
}

// NewTransport composes a pipeline around an existing RoundTripper and
// returns it as a RoundTripper. Pass http.DefaultTransport for the
// common case.
func NewTransport(cfg Config, base http.RoundTripper, opts ...Option) (http.RoundTripper, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	p, err := New(cfg, types.TransportHandler(base), opts...)
	if err != nil {
		return nil, err
	}
	return p.RoundTripper(), nil
}
