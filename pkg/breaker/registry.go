package breaker

import (
	"context"
	"net/http"
	"sync"

	"github.com/jzx17/resilience/pkg/types"
)

// Registry maintains one independent circuit instance per destination
// host. Instances are created lazily on first request to a host and
// live for the process lifetime; failures against one host never affect
// another host's circuit.
type Registry struct {
	settings Settings
	opts     []Option

	mu    sync.RWMutex
	hosts map[string]*Breaker
}

// NewRegistry creates a per-host breaker registry. Every created
// instance shares the same settings and options.
func NewRegistry(settings Settings, opts ...Option) (*Registry, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		settings: settings,
		opts:     opts,
		hosts:    make(map[string]*Breaker),
	}, nil
}

// ForHost returns the circuit instance for host, creating it on first
// access. Concurrent first access yields exactly one instance.
func (r *Registry) ForHost(host string) *Breaker {
	r.mu.RLock()
	b, ok := r.hosts[host]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.hosts[host]; ok {
		return b
	}
	b = newBreaker(r.settings, r.opts...)
	r.hosts[host] = b
	return b
}

// Size returns the number of hosts with a circuit instance.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hosts)
}

// Wrap returns a handler that scopes circuit breaking to the request's
// destination host.
func (r *Registry) Wrap(next types.Handler) types.Handler {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return r.ForHost(hostKey(req)).do(ctx, req, next)
	}
}

func hostKey(req *http.Request) string {
	if req.URL != nil && req.URL.Host != "" {
		return req.URL.Host
	}
	return req.Host
}
