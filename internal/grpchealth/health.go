// Package grpchealth exposes grpc.health.v1 for the API process. The serving
// status follows the database: NOT_SERVING while the pool cannot be pinged.
package grpchealth

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"clinic-api/internal/logger"
)

// Service is the name clients may ask about besides the overall "" entry.
const Service = "clinic.v1.API"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	srv      *health.Server
	db       Pinger
	log      *slog.Logger
	interval time.Duration
}

func New(db Pinger, log *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		srv:      health.NewServer(),
		db:       db,
		log:      log,
		interval: interval,
	}
}

func (c *Checker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, c.srv)
}

// Check pings once and updates the status of both entries.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := c.db.Ping(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		c.log.Warn("database ping failed", logger.Err(err))
	}
	c.srv.SetServingStatus("", st)
	c.srv.SetServingStatus(Service, st)
	return st
}

// Run checks every interval until ctx is done, then marks everything as not
// serving so watchers see the shutdown.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}
