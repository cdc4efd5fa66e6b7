// Package restserver serves the model run catalog over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/khlaifiabilel/dem4water/internal/catalog"
	"github.com/khlaifiabilel/dem4water/internal/log"
	"github.com/khlaifiabilel/dem4water/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	config   config.ServerData
	Server   http.Server
	store    catalog.Store
	logger   *zap.SugaredLogger
	handlers *Handlers
	errs     chan error
	addr     string
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, store catalog.Store, sc config.ServerData, logger *zap.SugaredLogger) *Controller {
	if sc.ListenAddr == "" {
		logger.Info("server.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		sc.ListenAddr = "0.0.0.0"
	}
	if sc.Port == 0 {
		logger.Info("server.port not provided; defaulting to 8080")
		sc.Port = 8080
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		config: sc,
		store:  store,
		logger: logger,
		errs:   make(chan error, 1),
	}
	ctrl.handlers = NewHandlers(store, logger)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", sc.ListenAddr, sc.Port)
	ctrl.Server.Handler = ctrl.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl
}

// StartController binds the listen address and serves in the background
// until the context ends. A bind failure is returned right away; a later
// serve failure is delivered on Err.
func (c *Controller) StartController() error {
	c.logger.Infof("Starting catalog REST server on %s...", c.Server.Addr)

	ln, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return fmt.Errorf("REST server: %w", err)
	}
	c.addr = ln.Addr().String()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
			c.errs <- fmt.Errorf("REST server: %w", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Err delivers the error that stopped the server, if it stopped on its own
func (c *Controller) Err() <-chan error { return c.errs }

// Addr returns the bound address once the controller is started
func (c *Controller) Addr() string { return c.addr }

// Router configures the HTTP router with all endpoints
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", c.handlers.ListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/windows", c.handlers.GetRunWindows).Methods(http.MethodGet)
	api.HandleFunc("/dams/{dam}/model", c.handlers.GetDamModel).Methods(http.MethodGet)

	router.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)

	return router
}
