package registry

import (
	"fmt"
	"strings"

	"github.com/nimbusvault/gateway/pkg/config"
)

// Backend is one upstream service the gateway forwards to.
type Backend struct {
	Name       string
	Address    string
	HealthPath string
}

// Host returns the backend address without scheme, for the Host header.
func (b *Backend) Host() string {
	addr := strings.TrimPrefix(b.Address, "http://")
	return strings.TrimPrefix(addr, "https://")
}

// Registry is the static mapping of logical service name to address,
// resolved once from configuration.
type Registry struct {
	backends map[string]*Backend
	ordered  []*Backend
}

func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{backends: make(map[string]*Backend, len(cfg.Backends))}
	for _, bc := range cfg.Backends {
		if _, ok := r.backends[bc.Name]; ok {
			return nil, fmt.Errorf("registry: duplicate backend name %q", bc.Name)
		}
		address := bc.Address
		if !strings.Contains(address, "://") {
			address = "http://" + address
		}
		b := &Backend{
			Name:       bc.Name,
			Address:    strings.TrimSuffix(address, "/"),
			HealthPath: bc.HealthPath,
		}
		r.backends[b.Name] = b
		r.ordered = append(r.ordered, b)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// All returns backends in configuration order.
func (r *Registry) All() []*Backend {
	return r.ordered
}
