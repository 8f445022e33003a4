package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sshtunnel/internal/config"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/monitoring/tracing"
)

// Context bundles everything a manager component needs: the directory
// layout, service configuration, node identity, tracer and loggers. It
// is also a context.Context so it can be passed straight into blocking
// calls.
type Context interface {
	context.Context
	Home() Home
	Config() config.Service
	NodeInfo() NodeInfo
	Tracer() tracing.Tracer
	LoggerFactory() log.LoggerFactory
	io.Closer
}

type serviceContext struct {
	cancelFunction context.CancelFunc
	innerCtx       context.Context
	home           Home
	configService  config.Service
	nodeInfo       NodeInfo
	tracer         tracing.Tracer
	loggerFactory  log.LoggerFactory
}

func NewContext(
	ctx context.Context,
	home Home,
	configService config.Service,
	nodeInfo NodeInfo,
	tracer tracing.Tracer,
	loggerFactory log.LoggerFactory,
) Context {
	innerCtx, cancel := context.WithCancel(ctx)
	return &serviceContext{
		cancelFunction: cancel,
		innerCtx:       innerCtx,
		home:           home,
		configService:  configService,
		nodeInfo:       nodeInfo,
		tracer:         tracer,
		loggerFactory:  loggerFactory,
	}
}

func (c *serviceContext) Home() Home {
	return c.home
}

func (c *serviceContext) Config() config.Service {
	return c.configService
}

func (c *serviceContext) NodeInfo() NodeInfo {
	return c.nodeInfo
}

func (c *serviceContext) Tracer() tracing.Tracer {
	return c.tracer
}

func (c *serviceContext) LoggerFactory() log.LoggerFactory {
	return c.loggerFactory
}

func (c *serviceContext) Deadline() (deadline time.Time, ok bool) {
	return c.innerCtx.Deadline()
}

func (c *serviceContext) Done() <-chan struct{} {
	return c.innerCtx.Done()
}

func (c *serviceContext) Err() error {
	return c.innerCtx.Err()
}

func (c *serviceContext) Close() error {
	c.cancelFunction()
	if err := c.tracer.Close(); err != nil {
		return fmt.Errorf("context close: %w", err)
	}
	return nil
}

func (c *serviceContext) Value(key interface{}) interface{} {
	return c.innerCtx.Value(key)
}
