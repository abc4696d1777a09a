// Package grpc serves the standard gRPC health protocol in the open and
// server reflection behind the session guard.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// TokenStoreService is the health service name reflecting token store reachability.
const TokenStoreService = "gophauth.TokenStore"

const healthServicePrefix = "/grpc.health.v1.Health/"

// Pinger is pinged to drive the health status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	logger        logging.Logger
	guard         *Guard
	health        *health.Server
	store         Pinger
	pingInterval time.Duration
}

type Option func(*GRPCServer)

// WithPingInterval sets how often the store is pinged for health.
func WithPingInterval(d time.Duration) Option {
	return func(s *GRPCServer) { s.pingInterval = d }
}

func NewGRPCServer(a string, l logging.Logger, sessions Validator, store Pinger, opts ...Option) *GRPCServer {
	logger := l.With("module", "grpc_server")
	s := &GRPCServer{
		address:       a,
		logger:        logger,
		guard:         NewGuard(sessions, logger, healthServicePrefix),
		health:        health.NewServer(),
		store:         store,
		pingInterval: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.guard.Unary),
		grpc.ChainStreamInterceptor(s.guard.Stream),
	)

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.checkStore(ctx)
	go s.pingLoop(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *GRPCServer) checkStore(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.store != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.store.Ping(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "token store ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(TokenStoreService, st)
}

func (s *GRPCServer) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkStore(ctx)
		}
	}
}
