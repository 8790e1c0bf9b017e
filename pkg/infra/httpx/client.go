package httpx

import (
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	defaultMaxIdleConnDuration = 60 * time.Second
	defaultReadBufferSize      = 8192
	defaultWriteBufferSize     = 8192
)

// ClientPool hands out one fasthttp client per backend so that a slow or
// dead backend exhausts only its own connection budget, never another
// backend's.
type ClientPool struct {
	mu              sync.RWMutex
	clients         map[string]*fasthttp.Client
	requestTimeout  time.Duration
	maxConnsPerHost int
	maxResponseBody int
}

func NewClientPool(requestTimeout time.Duration, maxConnsPerHost, maxResponseBody int) *ClientPool {
	return &ClientPool{
		clients:         make(map[string]*fasthttp.Client),
		requestTimeout:  requestTimeout,
		maxConnsPerHost: maxConnsPerHost,
		maxResponseBody: maxResponseBody,
	}
}

// ForBackend returns the client dedicated to the named backend, creating
// it on first use.
func (p *ClientPool) ForBackend(name string) *fasthttp.Client {
	p.mu.RLock()
	client, ok := p.clients[name]
	p.mu.RUnlock()
	if ok {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok = p.clients[name]; ok {
		return client
	}

	client = &fasthttp.Client{
		ReadTimeout:                   p.requestTimeout,
		WriteTimeout:                  p.requestTimeout,
		MaxConnsPerHost:               p.maxConnsPerHost,
		MaxIdleConnDuration:           defaultMaxIdleConnDuration,
		MaxResponseBodySize:           p.maxResponseBody,
		ReadBufferSize:                defaultReadBufferSize,
		WriteBufferSize:               defaultWriteBufferSize,
		NoDefaultUserAgentHeader:      true,
		DisablePathNormalizing:        true,
		DisableHeaderNamesNormalizing: false,
	}
	p.clients[name] = client
	return client
}

// Timeout is the per-request bound applied to every forwarded call.
func (p *ClientPool) Timeout() time.Duration {
	return p.requestTimeout
}
