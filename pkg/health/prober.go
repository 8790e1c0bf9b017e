package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"

	"github.com/nimbusvault/gateway/pkg/infra/prometheus"
	"github.com/nimbusvault/gateway/pkg/registry"
)

// Status is the last known state of one backend. Instances are immutable;
// updates swap a fresh value into the backend's slot.
type Status struct {
	Name      string
	Address   string
	Healthy   bool
	LatencyMs int64
	LastCheck time.Time
	LastError string
}

type slot struct {
	backend          *registry.Backend
	status           atomic.Pointer[Status]
	consecutiveFails atomic.Int32
}

// Prober actively polls every backend's liveness endpoint on a fixed
// interval and accepts passive failure reports from the forwarding path.
// Active polling is authoritative; passive reports only accelerate the
// unhealthy transition between sweeps.
type Prober struct {
	logger           *logrus.Logger
	client           *fasthttp.Client
	slots            map[string]*slot
	ordered          []*slot
	interval         time.Duration
	timeout          time.Duration
	failureThreshold int32
	parserPool       fastjson.ParserPool
}

type ProberOpts struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int
}

func NewProber(logger *logrus.Logger, reg *registry.Registry, opts ProberOpts) *Prober {
	p := &Prober{
		logger: logger,
		client: &fasthttp.Client{
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
			MaxConnsPerHost:     4,
			MaxIdleConnDuration: 2 * opts.Interval,
		},
		slots:            make(map[string]*slot),
		interval:         opts.Interval,
		timeout:          opts.Timeout,
		failureThreshold: int32(opts.FailureThreshold),
	}

	for _, b := range reg.All() {
		s := &slot{backend: b}
		s.status.Store(&Status{Name: b.Name, Address: b.Address, Healthy: false})
		p.slots[b.Name] = s
		p.ordered = append(p.ordered, s)
	}

	return p
}

// Run probes all backends once immediately, then on every tick until the
// context is cancelled.
func (p *Prober) Run(ctx context.Context) {
	p.Sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep probes every backend concurrently and swaps in fresh statuses.
func (p *Prober) Sweep(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range p.ordered {
		s := s
		g.Go(func() error {
			p.probe(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Prober) probe(ctx context.Context, s *slot) {
	if ctx.Err() != nil {
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(s.backend.Address + s.backend.HealthPath)

	start := time.Now()
	err := p.client.DoTimeout(req, resp, p.timeout)
	latency := time.Since(start)

	if err != nil {
		p.markUnhealthy(s, fmt.Sprintf("probe failed: %v", err))
		return
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		p.markUnhealthy(s, fmt.Sprintf("probe returned status %d", code))
		return
	}

	if !p.acceptableBody(resp.Body()) {
		p.markUnhealthy(s, "probe body reported an error status")
		return
	}

	p.markHealthy(s, latency)
}

// acceptableBody treats an empty or non-JSON body as healthy (the status
// code already said so) and only rejects an explicit error marker.
func (p *Prober) acceptableBody(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	parser := p.parserPool.Get()
	defer p.parserPool.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil {
		return true
	}
	status := string(v.GetStringBytes("status"))
	return status != "error" && status != "down"
}

func (p *Prober) markHealthy(s *slot, latency time.Duration) {
	s.consecutiveFails.Store(0)
	ms := latency.Milliseconds()

	prev := s.status.Load()
	s.status.Store(&Status{
		Name:      s.backend.Name,
		Address:   s.backend.Address,
		Healthy:   true,
		LatencyMs: ms,
		LastCheck: time.Now(),
	})

	prometheus.BackendUp.WithLabelValues(s.backend.Name).Set(1)
	prometheus.ProbeLatency.WithLabelValues(s.backend.Name).Observe(float64(ms))

	if prev != nil && !prev.Healthy {
		p.logger.WithFields(logrus.Fields{
			"backend":    s.backend.Name,
			"latency_ms": ms,
		}).Info("backend recovered")
	}
}

func (p *Prober) markUnhealthy(s *slot, reason string) {
	prev := s.status.Load()
	s.status.Store(&Status{
		Name:      s.backend.Name,
		Address:   s.backend.Address,
		Healthy:   false,
		LastCheck: time.Now(),
		LastError: reason,
	})

	prometheus.BackendUp.WithLabelValues(s.backend.Name).Set(0)

	if prev == nil || prev.Healthy {
		p.logger.WithFields(logrus.Fields{
			"backend": s.backend.Name,
			"reason":  reason,
		}).Warn("backend unhealthy")
	}
}

// ReportSuccess feeds a forwarded-request outcome back into the prober.
func (p *Prober) ReportSuccess(name string) {
	s, ok := p.slots[name]
	if !ok {
		return
	}
	s.consecutiveFails.Store(0)
}

// ReportFailure counts a forwarding failure against the backend; a run of
// failureThreshold flips it unhealthy ahead of the next sweep.
func (p *Prober) ReportFailure(name string, err error) {
	s, ok := p.slots[name]
	if !ok {
		return
	}
	fails := s.consecutiveFails.Add(1)
	if fails < p.failureThreshold {
		return
	}

	current := s.status.Load()
	if current != nil && !current.Healthy {
		return
	}
	p.markUnhealthy(s, fmt.Sprintf("passive: %d consecutive forwarding failures (last: %v)", fails, err))
}

// Healthy reports the backend's last known state.
func (p *Prober) Healthy(name string) bool {
	s, ok := p.slots[name]
	if !ok {
		return false
	}
	status := s.status.Load()
	return status != nil && status.Healthy
}

// Snapshot returns the current status of every backend in configuration
// order. The statuses are immutable copies; callers may hold them freely.
func (p *Prober) Snapshot() []*Status {
	out := make([]*Status, 0, len(p.ordered))
	for _, s := range p.ordered {
		out = append(out, s.status.Load())
	}
	return out
}
