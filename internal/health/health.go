// Package health serves the standard gRPC health protocol so
// orchestrators can probe the advisor without speaking HTTP.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name reported for the advisor itself.
const Service = "krishi.advisor"

// Pinger is satisfied by store.Repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps a gRPC server exposing grpc.health.v1.Health.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	db     Pinger
}

// NewServer registers the health service. Status starts NOT_SERVING
// until the first successful probe or SetServing call.
func NewServer(db Pinger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: grpchealth.NewServer(),
		db:     db,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setAll(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

// SetServing marks the advisor serving or not serving.
func (s *Server) SetServing(serving bool) {
	if serving {
		s.setAll(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
}

// Probe pings the database once and updates the status.
func (s *Server) Probe(ctx context.Context) error {
	if s.db == nil {
		s.SetServing(true)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.SetServing(false)
		return fmt.Errorf("ping database: %w", err)
	}
	s.SetServing(true)
	return nil
}

// Watch probes every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Probe(ctx); err != nil {
			slog.Warn("Health probe failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Serve blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serve grpc: %w", err)
	}
	return nil
}

// Stop reports NOT_SERVING to watchers and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
