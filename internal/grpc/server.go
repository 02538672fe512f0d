package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/weiawesome/majex-chat/pkg/log"
)

// ServiceName is the health-check name reported for the chat service.
const ServiceName = "majex.chat.ChatService"

// Server exposes the standard gRPC health service for the chat process.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(logger zerolog.Logger) *Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(log.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(log.StreamServerInterceptor(logger)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	srv := &Server{grpc: s, health: hs}
	srv.SetServing(true)
	return srv
}

// SetServing flips both the overall and the chat service status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service as not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func StartGRPCServer(addr string, logger zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := NewServer(logger)

	go func() {
		l := log.L()
		l.Info().Str("address", addr).Msg("chat grpc server listening")
		if err := s.Serve(lis); err != nil {
			l.Error().Err(err).Msg("grpc server error")
		}
	}()

	return s, nil
}
