package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/veesix-networks/osdhcpd/pkg/component"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
)

// Component serves the Prometheus registry over HTTP.
type Component struct {
	*component.Base
	logger  *slog.Logger
	metrics *Metrics
	addr    string
	server  *http.Server
}

func NewComponent(m *Metrics, addr string) *Component {
	return &Component{
		Base:    component.NewBase("metrics"),
		logger:  logger.Component(logger.Metrics),
		metrics: m,
		addr:    addr,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting metrics exporter", "addr", c.addr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.metrics.Handler())
	c.server = &http.Server{
		Addr:    c.addr,
		Handler: mux,
	}

	c.Go(func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("Metrics HTTP server error", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping metrics exporter")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}
