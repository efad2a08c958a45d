package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/connecta-server/internal/config"
)

// NewRouter builds the gin engine with every route.
// metrics may be nil, in which case /debug/vars is not served.
func NewRouter(hub Hub, cfg config.Config, metrics stdhttp.Handler, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	r.GET("/health", healthHandler)
	r.GET("/stats", statsHandler(hub))
	r.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))
	if metrics != nil {
		r.GET("/debug/vars", gin.WrapH(metrics))
	}
	if cfg.StaticDir != "" {
		r.NoRoute(gin.WrapH(stdhttp.FileServer(stdhttp.Dir(cfg.StaticDir))))
	}

	return r
}

// NewServer builds an HTTP server around NewRouter.
func NewServer(hub Hub, cfg config.Config, metrics stdhttp.Handler, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, cfg, metrics, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}

const statsTimeout = 2 * time.Second

// statsHandler serves the hub's own view of connections, online users and
// retained public messages.
func statsHandler(hub Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
		defer cancel()

		snap, err := hub.Stats(ctx)
		if err != nil {
			c.JSON(stdhttp.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(stdhttp.StatusOK, gin.H{
			"connections":     snap.Connections,
			"online_users":    snap.OnlineUsers,
			"public_messages": snap.PublicMessages,
		})
	}
}
