// Package dashboard serves a read-only JSON status API over the state store.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB   *gorm.DB
	Port int
	Out  io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := newRouter(opts.DB)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter sets up all dashboard routes.
func newRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/runs", handleList(db, func(db *gorm.DB) (interface{}, error) {
		return RecentRuns(db, 50)
	}))
	router.GET("/api/caches", handleList(db, func(db *gorm.DB) (interface{}, error) {
		return CacheSummary(db)
	}))
	router.GET("/api/tools", handleList(db, func(db *gorm.DB) (interface{}, error) {
		return RecentToolInstalls(db, 50)
	}))
	router.GET("/api/checks", handleList(db, func(db *gorm.DB) (interface{}, error) {
		return LatestChecks(db)
	}))
	return router
}

func handleList(db *gorm.DB, query func(*gorm.DB) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := query(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
