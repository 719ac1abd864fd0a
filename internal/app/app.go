// Package app wires configuration, database, storage and HTTP routes into
// the runnable careers server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/db"
	"github.com/clarion-legal/careers/internal/http/api/admin"
	"github.com/clarion-legal/careers/internal/http/api/public"
	"github.com/clarion-legal/careers/internal/http/api/session"
	"github.com/clarion-legal/careers/internal/logging"
	"github.com/clarion-legal/careers/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and applies schema migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := Database(cfg)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the careers API server and blocks until ctx is cancelled
// or the listener fails.
func RunServer(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.Logging)

	conn, errOpen := Database(cfg)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	store, errStore := Storage(cfg)
	if errStore != nil {
		return errStore
	}

	engine := NewEngine(cfg, conn, store)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("careers server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// NewEngine builds the gin engine with all route groups mounted.
func NewEngine(cfg *config.Config, conn *gorm.DB, store storage.ObjectStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public.Register(engine, conn, store)
	session.Register(engine, conn, cfg.Session, admin.RequireSession(conn, cfg.Session))
	admin.Register(engine, conn, store, cfg.Session)

	return engine
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
