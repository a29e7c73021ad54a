package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kai426/Dignus-sub001/internal/config"
	"github.com/kai426/Dignus-sub001/internal/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
	tokenRetention  = 24 * time.Hour
)

// Run builds the container and serves HTTP until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer log.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	go container.purgeLoop(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

func (c *Container) purgeLoop(ctx context.Context) {
	ticker := c.Clock.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := c.PurgeExpiredTokens(ctx, tokenRetention)
			if err != nil {
				c.Logger.Error("failed to purge expired access codes", zap.Error(err))
				continue
			}
			if n > 0 {
				c.Logger.Info("purged expired access codes", zap.Int64("count", n))
			}
		}
	}
}
