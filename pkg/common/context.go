package common

type contextKey string

const (
	RequestIDContextKey contextKey = "request_id"
	PrincipalContextKey contextKey = "principal"
	ClientKeyContextKey contextKey = "client_key"
	RouteContextKey     contextKey = "route"
	LatencyContextKey   contextKey = "__start_time"
)

// String returns the key as a plain string for use with fiber Locals.
func (k contextKey) String() string {
	return string(k)
}
