package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/veesix-networks/osdhcpd/pkg/component"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
	"github.com/veesix-networks/osdhcpd/pkg/metrics"
)

// Sweeper periodically reclaims expired leases.
type Sweeper struct {
	*component.Base
	logger   *slog.Logger
	server   *Server
	interval time.Duration
	metrics  *metrics.Metrics
}

func NewSweeper(srv *Server, interval time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		Base:     component.NewBase("sweeper"),
		logger:   logger.Component(logger.Sweep),
		server:   srv,
		interval: interval,
		metrics:  m,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.StartContext(ctx)
	s.logger.Info("Starting lease expiry sweeper", "interval", s.interval)

	s.Go(func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.Ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	})

	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.logger.Info("Stopping lease expiry sweeper")
	s.StopContext()
	return nil
}

func (s *Sweeper) sweep() {
	reclaimed := s.server.ReleaseExpiredLeases()
	if reclaimed > 0 {
		s.logger.Info("Reclaimed expired leases", "count", reclaimed)
		if s.metrics != nil {
			s.metrics.ExpiredLeasesTotal.Add(float64(reclaimed))
		}
	}
}
