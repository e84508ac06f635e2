// Package httpapi exposes the time-clock operations as a JSON API over gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/probe"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Services are the operations the API dispatches to.
type Services struct {
	Users   *services.UserService
	Punch   *services.PunchService
	History *services.HistoryService
	Sync    *services.SyncService
	Admin   *services.AdminService
	Reports *services.ReportService
	Status  probe.Status
}

type HTTPServer struct {
	address string
	svc     Services
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, svc Services) *HTTPServer {
	return &HTTPServer{
		address: address,
		svc:     svc,
		logger:  l.With("module", "http_server"),
	}
}

// Router builds the gin engine with every route registered.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestLogger())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/online", s.online)
	api.POST("/register", s.register)
	api.POST("/login", s.login)

	user := api.Group("", s.authRequired())
	user.POST("/punch", s.punch)
	user.GET("/history", s.history)
	user.POST("/sync", s.sync)
	user.GET("/user/report", s.userReport)

	admin := api.Group("/admin", s.authRequired(), s.adminOnly())
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.POST("/users/bulk-delete", s.bulkDelete)
	admin.PUT("/users/:id", s.updateUser)
	admin.DELETE("/users/:id", s.deleteUser)
	admin.GET("/report", s.adminReport)
	admin.GET("/export", s.adminReport)
	admin.POST("/sync_all", s.syncAll)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
