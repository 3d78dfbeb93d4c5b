package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Development    bool
	CORSEnabled    bool
	AllowedOrigins []string
	// OnPanic 在 recover 后负责写出响应
	OnPanic gin.RecoveryFunc
}

func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(Recovery(l, o.OnPanic))
	if o.CORSEnabled {
		cfg := cors.DefaultConfig()
		if len(o.AllowedOrigins) > 0 {
			cfg.AllowOrigins = o.AllowedOrigins
		} else {
			cfg.AllowAllOrigins = true
		}
		r.Use(cors.New(cfg))
	}
	return r
}

// Recovery 记录 panic 堆栈并交给 onPanic 写响应；onPanic 为空时返回 500。
// 可在链中再挂一层，让外层的日志、指标看到 500。
func Recovery(l *zap.Logger, onPanic gin.RecoveryFunc) gin.HandlerFunc {
	if onPanic == nil {
		onPanic = func(c *gin.Context, _ any) { c.AbortWithStatus(http.StatusInternalServerError) }
	}
	return ginzap.CustomRecoveryWithZap(l, true, onPanic)
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
