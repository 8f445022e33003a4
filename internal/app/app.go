package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sshtunnel/internal/config"
	"github.com/sshtunnel/internal/history"
	"github.com/sshtunnel/internal/http"
	"github.com/sshtunnel/internal/http/handler"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/monitoring"
	"github.com/sshtunnel/internal/monitoring/tracing"
	"github.com/sshtunnel/internal/probe"
	"github.com/sshtunnel/internal/service"
	"github.com/sshtunnel/internal/tunnel"
)

const (
	operationName           = "bootstrap"
	ctxKeyStartTime         = "app.startTime"
	gracefulShutdownTimeout = 10 * time.Second
	metricsUpdateInterval   = 15 * time.Second
)

// App is the long-running serve mode: the HTTP API over the same
// store, manager and checker the CLI commands use.
type App interface {
	Start()
	Wait()
	Stop()
}

type ExtendedApp interface {
	App
	GetServiceContext() service.Context
	GetServices() *AppServices
}

type Initializer interface {
	InitServiceHome(context.Context, log.Logger) (context.Context, service.Home)
	InitServices(service.Context) *AppServices
}

type app struct {
	ctx      service.Context
	logger   log.Logger
	services *AppServices
}

type AppServices struct {
	HttpServer     http.Server
	SystemHandler  handler.SystemHandler
	TunnelHandler  handler.TunnelHandler
	Manager        tunnel.Manager
	Checker        *probe.Checker
	HistoryService history.Service
	SystemMetrics  *monitoring.SystemMetricsCollector
}

type initializer struct{}

func (a *app) GetServiceContext() service.Context {
	return a.ctx
}

func (a *app) GetServices() *AppServices {
	return a.services
}

func (i *initializer) InitServiceHome(ctx context.Context, logger log.Logger) (context.Context, service.Home) {
	return ctx, service.NewServiceHome(ctx)
}

func (i *initializer) InitServices(svcCtx service.Context) *AppServices {
	return newServices(svcCtx)
}

func NewApp(ctx context.Context, logger log.Logger) App {
	return NewAppWithInitializer(ctx, logger, &initializer{})
}

func NewAppWithInitializer(ctx context.Context, logger log.Logger, serviceInitializer Initializer) ExtendedApp {
	ctx = context.WithValue(ctx, ctxKeyStartTime, time.Now())
	tracer := tracing.NewTracer(service.Type, logger)
	ctx, spanClose := tracer.StartSpanFromContext(ctx, operationName)
	defer spanClose()

	ctx, serviceHome := serviceInitializer.InitServiceHome(ctx, logger)

	logStartup(logger, serviceHome)
	configService := config.NewService(ctx, logger, serviceHome)
	loggingConfig := log.LoggingConfig{
		Level:    configService.Get().Logging.Level,
		Format:   configService.Get().Logging.Format,
		Console:  configService.Get().Logging.Console,
		FilePath: configService.Get().Logging.FilePath,
	}
	loggerFactory := log.NewLoggerFactory(logger, loggingConfig)
	logger = loggerFactory.GetLogger(operationName)

	nodeInfo := service.NewNodeInfo()
	svcCtx := service.NewContext(ctx, serviceHome, configService, nodeInfo, tracer, loggerFactory)
	logNodeInfo(logger, nodeInfo, configService)

	services := serviceInitializer.InitServices(svcCtx)
	return &app{
		ctx:      svcCtx,
		logger:   svcCtx.LoggerFactory().GetLogger("app"),
		services: services,
	}
}

func (a *app) Start() {
	if a.services.SystemMetrics != nil {
		a.services.SystemMetrics.StartPeriodicUpdates(metricsUpdateInterval)
	}

	httpAddr, err := a.services.HttpServer.Listen(a.ctx)
	if err != nil {
		a.logger.Fatalf("Failed to initialize HTTP listener: %v", err)
	}
	a.logger.Infof("HTTP server listening on %v", httpAddr)

	a.logInitCompleted()
	go a.startHttpServer()
}

func (a *app) startHttpServer() {
	err := a.services.HttpServer.Serve(&http.ServeConfig{
		InitRoutes: func(engine *gin.Engine) []io.Closer {
			http.RegisterHandlers(engine, a.services.SystemHandler, a.services.TunnelHandler)
			return []io.Closer{}
		},
	})
	if err != nil {
		a.logger.Errorf("Error while serving HTTP: %v", err)
	}
}

func (a *app) Wait() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	sig := <-stopChan
	a.logger.Infof("Received OS signal: %v", sig)
}

func (a *app) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	a.logger.Infof("Starting graceful shutdown (timeout: %v)...", gracefulShutdownTimeout)
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go a.services.HttpServer.GracefulStop(ctx, wg)
	a.awaitShutdown(ctx, wg)

	if a.services.HistoryService != nil {
		if err := a.services.HistoryService.Close(); err != nil {
			a.logger.Errorf("Error closing history store: %v", err)
		}
	}
	if err := a.ctx.Close(); err != nil {
		a.logger.Errorf("Error closing service context: %v", err)
	}
}

func (a *app) awaitShutdown(ctx context.Context, wg *sync.WaitGroup) {
	gracefulStopChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(gracefulStopChan)
	}()
	select {
	case <-ctx.Done():
		a.logger.Warnf("%s stopped ungracefully", service.PrettyName)
	case <-gracefulStopChan:
		a.logger.Infof("%s stopped gracefully", service.PrettyName)
	}
}

func logStartup(logger log.Logger, serviceHome service.Home) {
	logger.Infof("%s initialization started. PID: %d Config: %s",
		service.PrettyName, os.Getpid(), serviceHome.ConfigDir())
}

func logNodeInfo(logger log.Logger, nodeInfo service.NodeInfo, configService config.Service) {
	logger.Infof("%s Node ID: %s", service.PrettyName, nodeInfo.GetNodeId())
	logger.Infof("%s listening host: %s", service.PrettyName, configService.Get().Server.Host)
}

func (a *app) logInitCompleted() {
	startupDuration := time.Since(a.ctx.Value(ctxKeyStartTime).(time.Time))
	a.logger.Infof("%s initialization completed in %.3f seconds",
		service.PrettyName, startupDuration.Seconds())
}

func newServices(ctx service.Context) *AppServices {
	logger := ctx.LoggerFactory().GetLogger("app")
	cfg := ctx.Config().Get()

	store := tunnel.NewStore(ctx.Home())
	manager := tunnel.NewManager(ctx.Home(), store, logger)
	prober := probe.NewProber(
		time.Duration(cfg.Checker.DialTimeoutSecs)*time.Second,
		time.Duration(cfg.Checker.PingTimeoutSecs)*time.Second,
		cfg.Checker.PingCount,
	)
	checker := probe.NewChecker(store, prober, logger)

	// History is a feature toggle: serve mode works without Postgres.
	var historyService history.Service
	if cfg.History.Enabled {
		svc, err := history.NewService(ctx, cfg.History, logger)
		if err != nil {
			logger.Warnf("History disabled, store unavailable: %v", err)
		} else {
			historyService = svc
			logger.Infof("History store connected")
		}
	}

	var systemMetrics *monitoring.SystemMetricsCollector
	if cfg.Metrics.Enabled {
		systemMetrics = monitoring.NewSystemMetricsCollector()
	}

	return &AppServices{
		HttpServer:     http.NewServer(ctx),
		SystemHandler:  handler.NewSystemHandler(ctx),
		TunnelHandler:  handler.NewTunnelHandler(ctx, manager, checker, historyService),
		Manager:        manager,
		Checker:        checker,
		HistoryService: historyService,
		SystemMetrics:  systemMetrics,
	}
}
