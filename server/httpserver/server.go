// Package httpserver is the receiving side of the iclock push protocol: it
// accepts terminal handshakes and attendance pushes and stores the records.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/helper"
	"github.com/THPTUHA/iclocksim/pkg/logger"
	"github.com/THPTUHA/iclocksim/server/httpserver/config"
	"github.com/THPTUHA/iclocksim/server/httpserver/controllers"
	"github.com/THPTUHA/iclocksim/server/httpserver/routes"
	"github.com/THPTUHA/iclocksim/server/messaging"
	"github.com/THPTUHA/iclocksim/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type HttpServer struct {
	Router    *gin.Engine
	Config    *config.Configs
	Store     storage.Storage
	Publisher messaging.Publisher

	log *logrus.Entry
}

// NewHTTPServer opens the configured store and publisher and builds the router.
func NewHTTPServer(conf *config.Configs) (*HttpServer, error) {
	log := logger.InitLogger(conf.LogLevel, "iclock-server")

	if err := conf.NormalizeAddr(); err != nil {
		return nil, err
	}
	loc, err := helper.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(conf.Storage, log.WithField("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	pub, err := messaging.NewPublisher(conf.Nats, log.WithField("component", "messaging"))
	if err != nil {
		store.Close()
		return nil, err
	}

	return NewWith(conf, store, pub, loc, log), nil
}

// NewWith builds a server around an already opened store and publisher.
func NewWith(conf *config.Configs, store storage.Storage, pub messaging.Publisher, loc *time.Location, log *logrus.Entry) *HttpServer {
	ctr := controllers.NewController(&controllers.ControllerConfig{
		Store:     store,
		Publisher: pub,
		Location:  loc,
		Logger:    log,
	})
	return &HttpServer{
		Router:    routes.Build(ctr, log),
		Config:    conf,
		Store:     store,
		Publisher: pub,
		log:       log,
	}
}

// Start serves until ctx is done or the process receives SIGINT/SIGTERM.
func (server *HttpServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", server.Config.HTTPAddr)
	if err != nil {
		return err
	}
	return server.Serve(ctx, ln)
}

func (server *HttpServer) Serve(ctx context.Context, ln net.Listener) error {
	defer server.close()

	srv := &http.Server{
		Handler: server.Router,
	}

	var g run.Group
	g.Add(func() error {
		server.log.Infof("Starting the server on %s...", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		server.log.Warn("Shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			server.log.Error(err)
		}
	})

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.Add(func() error {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			server.log.Infof("received %s", sig)
		case <-rctx.Done():
		}
		return nil
	}, func(error) {
		cancel()
	})

	return g.Run()
}

func (server *HttpServer) close() {
	if err := server.Publisher.Close(); err != nil {
		server.log.Error(err)
	}
	if err := server.Store.Close(); err != nil {
		server.log.Error(err)
	}
}
