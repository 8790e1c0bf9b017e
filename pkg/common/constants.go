package common

const (
	RequestIDHeader     = "X-Request-ID"
	ForwardedForHeader  = "X-Forwarded-For"
	ForwardedHostHeader = "X-Forwarded-Host"
	RetryAfterHeader    = "Retry-After"
)
