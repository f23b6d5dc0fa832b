package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/veesix-networks/osdhcpd/internal/server"
	"github.com/veesix-networks/osdhcpd/pkg/component"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
)

// Component serves the admin API over HTTP.
type Component struct {
	*component.Base
	logger *slog.Logger
	api    *API
	addr   string
	server *http.Server
}

func NewComponent(srv *server.Server, addr string) *Component {
	return &Component{
		Base:   component.NewBase("admin"),
		logger: logger.Component(logger.Admin),
		api:    NewAPI(srv),
		addr:   addr,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting admin API", "addr", c.addr)

	c.server = &http.Server{
		Addr:    c.addr,
		Handler: c.api.Routes(),
	}

	c.Go(func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("Admin HTTP server error", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping admin API")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}
