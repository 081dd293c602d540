// Package grpcapi exposes the standard grpc.health.v1.Health service so
// orchestrators can probe the server over gRPC. Serving status follows a
// periodic store ping.
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "drugbox.v1.Dispenser"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr string
	// ProbeInterval between store pings. Defaults to 10s.
	ProbeInterval time.Duration
}

type HealthServer struct {
	addr     string
	interval time.Duration
	pinger   Pinger
	logger   *slog.Logger

	grpcServer *grpc.Server
	health     *health.Server

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	serving bool
}

func NewHealthServer(cfg Config, pinger Pinger, logger *slog.Logger) *HealthServer {
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &HealthServer{
		addr:       cfg.Addr,
		interval:   interval,
		pinger:     pinger,
		logger:     logger,
		grpcServer: gs,
		health:     hs,
		done:       make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Stop.
func (s *HealthServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve runs the prober and serves on lis. It blocks until Stop is called
// or the listener fails.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.Probe(ctx)
	go s.loop(ctx)

	s.logger.Info("grpc health listening", "addr", lis.Addr().String())
	err := s.grpcServer.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop halts the prober, flips every service to NOT_SERVING so watchers
// see the shutdown, and drains in-flight RPCs.
func (s *HealthServer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	}
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *HealthServer) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings the store once and updates the serving status. Transitions
// are logged; steady state is not.
func (s *HealthServer) Probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := s.pinger.Ping(pctx)
	cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	changed := s.serving != (err == nil)
	s.serving = err == nil
	s.mu.Unlock()

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	if changed {
		if err != nil {
			s.logger.Warn("store unreachable, health NOT_SERVING", "err", err)
		} else {
			s.logger.Info("store reachable, health SERVING")
		}
	}
}
