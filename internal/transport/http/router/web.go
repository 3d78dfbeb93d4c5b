package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gin-gorm-employees/internal/core/server"
	mdw "gin-gorm-employees/internal/transport/http/middleware"
	"gin-gorm-employees/internal/transport/http/view"
)

type Options struct {
	Development    bool
	CORSEnabled    bool
	AllowedOrigins []string

	RPS            float64
	Burst          int
	MaxInFlight    int64
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	// Ping 用于 /health 检查存储；为空时只报告进程存活
	Ping func(ctx context.Context) error
}

func (o *Options) defaults() {
	if o.RPS <= 0 {
		o.RPS = 200
	}
	if o.Burst <= 0 {
		o.Burst = 400
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
}

func NewWebEngine(l *zap.Logger, o Options, mods ...WebModule) (*gin.Engine, error) {
	o.defaults()
	onPanic := mdw.PanicPage(o.Development)
	r := server.NewRouter(l, server.Options{
		Development:    o.Development,
		CORSEnabled:    o.CORSEnabled,
		AllowedOrigins: o.AllowedOrigins,
		OnPanic:        onPanic,
	})
	if err := view.Install(r); err != nil {
		return nil, err
	}

	// 顺序：Recovery 和 ErrorPages 必须在 Metrics/AccessLog 之内，才能让它们看到最终状态码。
	// NewRouter 挂的外层 Recovery 只兜底这几个中间件自身的 panic。
	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		server.Recovery(l, onPanic),
		mdw.ErrorPages(l, o.Development),
		mdw.RateLimit(rate.Limit(o.RPS), o.Burst),
		mdw.ConcurrencyLimit(o.MaxInFlight),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.RequestTimeout),
	)

	r.GET("/health", health(o.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	mountAll(&r.RouterGroup, mods)
	return r, nil
}

func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	}
}
