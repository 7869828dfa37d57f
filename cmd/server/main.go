package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/api/handlers"
	"github.com/feichai0017/content-analyzer/api/routes"
	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/agent/ocr"
	"github.com/feichai0017/content-analyzer/internal/service/extraction"
	"github.com/feichai0017/content-analyzer/internal/utils/validator"
	"github.com/feichai0017/content-analyzer/pkg/logger"
	"github.com/feichai0017/content-analyzer/pkg/progress"
)

func main() {
	cfg, err := config.GetAppConfig()
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(cfg.Log.OutputPaths),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	engine, err := ocr.NewEngine(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create ocr engine", logger.Error(err))
	}
	if closer, ok := engine.(io.Closer); ok {
		defer closer.Close()
	}

	pipelineCfg, err := extraction.ConfigFrom(cfg)
	if err != nil {
		log.Fatal("Invalid extraction config", logger.Error(err))
	}
	pipeline := extraction.NewPipeline(agent.NewSourceFactory(log), engine, pipelineCfg, log)

	var sink handlers.ProgressSink
	if cfg.Redis.Enabled {
		publisher, err := progress.NewRedisPublisher(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect progress publisher", logger.Error(err))
		}
		defer publisher.Close()
		sink = publisher
	}

	documentValidator := validator.NewDocumentValidator(log, &validator.ValidatorConfig{
		MaxFileSize: cfg.Server.MaxUploadSize,
	})

	// init handlers
	h := handlers.NewHandlers(pipeline, documentValidator, sink, log)
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize
	routes.SetupRoutes(r, h, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting",
			logger.String("addr", cfg.Server.Addr),
			logger.String("ocrEngine", engine.Name()),
			logger.Bool("redis", cfg.Redis.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// OCR pages can take a while; give an in-flight run time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
