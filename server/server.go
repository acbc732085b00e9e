package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chaos-io/bgremover/rembg"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Addr        string
	OutputDir   string
	ResultTTL   time.Duration
	CleanupSpec string
	Defaults    rembg.Options
	MaxSize     int
	Format      string

	// 上传限制，0 取默认值
	MaxUploadBytes int64
	MaxPixels      int
}

const (
	DefaultMaxUploadBytes = 32 << 20
	DefaultMaxPixels      = 1 << 25
)

type Server struct {
	cfg    Config
	store  *Store
	engine *gin.Engine
	cron   *cron.Cron
}

func New(cfg Config) (*Server, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}

	store, err := NewStore(cfg.OutputDir, cfg.ResultTTL)
	if err != nil {
		return nil, err
	}

	c := cron.New()
	if cfg.CleanupSpec != "" {
		_, err = c.AddFunc(cfg.CleanupSpec, func() {
			if n := store.Purge(time.Now()); n > 0 {
				slog.Info("purged expired results", "count", n)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("schedule cleanup %q: %w", cfg.CleanupSpec, err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{cfg: cfg, store: store, engine: engine, cron: c}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.POST("/remove", s.handleRemove)
	api.GET("/results/:id", s.handleResult)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Store() *Store {
	return s.store
}

// Run 启动清理任务并监听，ctx 结束时优雅退出
func (s *Server) Run(ctx context.Context) error {
	s.cron.Start()
	defer s.Close()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close 停止清理任务，等待正在执行的任务结束
func (s *Server) Close() {
	<-s.cron.Stop().Done()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
