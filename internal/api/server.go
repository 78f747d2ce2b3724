// Package api exposes the record store and image ingestion service as REST
// endpoints and serves stored images back. It owns request parsing and the
// mapping of error kinds to status codes; nothing below it sees HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/garage/internal/store"
	"github.com/zulandar/garage/internal/uploads"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB         *gorm.DB
	UploadsDir string
	Port       int
	Out        io.Writer
}

// Start launches the API HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := newRouter(opts.DB, opts.UploadsDir)
	if err != nil {
		return err
	}

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
		fmt.Fprintf(opts.Out, "Garage API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// newRouter wires the store, the ingestion service and the static asset
// passthrough onto a gin engine.
func newRouter(db *gorm.DB, uploadsDir string) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	up, err := uploads.New(uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	registerRoutes(router, store.New(db), up)
	return router, nil
}
