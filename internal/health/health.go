// Package health tracks dependency health and exposes it over the standard
// gRPC health protocol and an HTTP probe.
package health

import (
	"context"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"mcn-dashboard/internal/logging"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check probes one dependency. Optional checks report but never mark the
// service unhealthy.
type Check struct {
	Name     string
	Probe    func(ctx context.Context) error
	Optional bool
}

type Monitor struct {
	checks   []Check
	interval time.Duration
	timeout  time.Duration
	server   *health.Server

	mu     sync.RWMutex
	status map[string]string
}

func NewMonitor(interval time.Duration, checks ...Check) *Monitor {
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return &Monitor{
		checks:   checks,
		interval: interval,
		timeout:  3 * time.Second,
		server:   health.NewServer(),
		status:   map[string]string{},
	}
}

// Server is the gRPC health service kept in sync with the checks.
func (m *Monitor) Server() *health.Server {
	return m.server
}

// CheckNow runs every probe once and publishes the result.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	healthy := true
	status := make(map[string]string, len(m.checks))
	for _, c := range m.checks {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := c.Probe(pctx)
		cancel()

		if err != nil {
			status[c.Name] = "down"
			logging.Warn().Err(err).Str("check", c.Name).Msg("health check failed")
			if !c.Optional {
				healthy = false
			}
			continue
		}
		status[c.Name] = "up"
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	serving := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.server.SetServingStatus("", serving)
	return healthy
}

// Run re-checks on every tick until ctx is done, then reports NOT_SERVING so
// load balancers drain the instance.
func (m *Monitor) Run(ctx context.Context) {
	m.CheckNow(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

func (m *Monitor) snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}

// Handler serves the last published result: 200 when serving, 503 otherwise.
func (m *Monitor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := m.server.Check(c.Request.Context(), &healthpb.HealthCheckRequest{})
		code, state := http.StatusOK, "ok"
		if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			code, state = http.StatusServiceUnavailable, "unavailable"
		}
		c.JSON(code, gin.H{"status": state, "checks": m.snapshot()})
	}
}

// Serve starts a gRPC server exposing only the health service on addr.
func Serve(addr string, m *Monitor) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, m.server)

	go func() {
		logging.Info().Str("addr", addr).Msg("grpc health server listening")
		if err := srv.Serve(lis); err != nil {
			logging.Error().Err(err).Msg("grpc health server stopped")
		}
	}()
	return srv, nil
}
