package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nimbusvault/gateway/pkg/config"
	"github.com/nimbusvault/gateway/pkg/registry"
)

// Route binds one path prefix to one backend, with its auth requirement
// and optional rate-limit policy. Immutable after table construction.
type Route struct {
	Prefix      string
	Backend     *registry.Backend
	RequireAuth bool
	Policy      *config.RatePolicy
}

// Table matches request paths to routes by longest prefix. Built once at
// startup, read concurrently afterwards without locking.
type Table struct {
	routes []*Route
}

func NewTable(cfg *config.Config, reg *registry.Registry) (*Table, error) {
	seen := make(map[string]struct{}, len(cfg.Backends))
	routes := make([]*Route, 0, len(cfg.Backends))

	for _, bc := range cfg.Backends {
		prefix := strings.TrimSuffix(bc.Prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		if _, ok := seen[prefix]; ok {
			return nil, fmt.Errorf("routing: ambiguous table, prefix %q appears twice", prefix)
		}
		seen[prefix] = struct{}{}

		backend, ok := reg.Get(bc.Name)
		if !ok {
			return nil, fmt.Errorf("routing: unknown backend %q for prefix %q", bc.Name, prefix)
		}

		route := &Route{
			Prefix:      prefix,
			Backend:     backend,
			RequireAuth: bc.RequireAuth,
		}
		if policy, ok := cfg.RateLimit[bc.Prefix]; ok {
			p := policy
			route.Policy = &p
		}
		routes = append(routes, route)
	}

	// Longest prefix first so Match can return the first hit.
	sort.Slice(routes, func(i, j int) bool {
		return len(routes[i].Prefix) > len(routes[j].Prefix)
	})

	return &Table{routes: routes}, nil
}

// Match returns the route whose prefix is the longest prefix of path on a
// segment boundary, or nil when nothing matches.
func (t *Table) Match(path string) *Route {
	for _, route := range t.routes {
		if matchesPrefix(path, route.Prefix) {
			return route
		}
	}
	return nil
}

// Routes returns the table in match order.
func (t *Table) Routes() []*Route {
	return t.routes
}

// StripPrefix removes the route prefix from path, always returning a path
// that starts with "/" for the backend.
func (r *Route) StripPrefix(path string) string {
	rest := strings.TrimPrefix(path, r.Prefix)
	if rest == "" || rest[0] != '/' {
		rest = "/" + rest
	}
	return rest
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// "/api/authx" must not match the "/api/auth" route.
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
