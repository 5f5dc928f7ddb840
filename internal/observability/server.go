package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewStatusRouter exposes health, prometheus metrics and the latest
// engine stats snapshot for one node.
func NewStatusRouter(node string, logger zerolog.Logger, board *Board) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	startedAt := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware(node))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": node,
		})
	})
	r.GET("/stats", func(c *gin.Context) {
		snapshot, ok := board.Snapshot()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	})
	RegisterMetrics()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// ServeStatus runs handler on addr until ctx is done.
func ServeStatus(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	logger.Info().Str("addr", ln.Addr().String()).Msg("status server listening")

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
