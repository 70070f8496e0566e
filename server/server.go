package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/rfpstack/api"
	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/cron"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, rfpDB *gorm.DB, log logger.Logger) (*Server, error) {
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, log)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(rfpDB)

	svcs, err := services.InitServices(cfg, log, repos)
	if err != nil {
		closer.Close()
		return nil, err
	}

	var poller interfaces.MailboxPoller
	if svcs.Poller != nil {
		poller = svcs.Poller
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          log,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cron.NewCronManager(cfg, log, kubernetesClient(log), poller),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster, which puts cron in local mode.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("Not running in kubernetes: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Unable to create kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Initialize() {
	api.RegisterRoutes(s.router, s.services.RfpService, api.RouteConfig{
		APIKey:    s.config.AppConfig.APIKey,
		AppSource: s.config.AppConfig.AppSource,
	}, s.log)
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	s.Initialize()

	podName, _ := os.Hostname()
	if err := s.cronManager.Start(podName, os.Getenv("POD_NAMESPACE")); err != nil {
		return err
	}

	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("RFPStack is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	stopDone := make(chan struct{})
	go s.wrapGoroutine("cron_shutdown", func() {
		defer close(stopDone)
		s.cronManager.Stop()
	})

	select {
	case <-stopDone:
		s.log.Info("Cron jobs stopped gracefully")
	case <-shutdownCtx.Done():
		s.log.Warn("Cron stop timed out, forcing exit")
	}

	if err := s.services.Close(); err != nil {
		s.log.Warnf("Events publisher close error: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
