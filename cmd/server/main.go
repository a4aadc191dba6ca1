package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ia-avocats/backend/internal/api"
	"github.com/ia-avocats/backend/internal/classify"
	"github.com/ia-avocats/backend/internal/config"
	"github.com/ia-avocats/backend/internal/docx"
	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/llm"
	"github.com/ia-avocats/backend/internal/llm/gemini"
	"github.com/ia-avocats/backend/internal/llm/vertex"
	"github.com/ia-avocats/backend/internal/logger"
	"github.com/ia-avocats/backend/internal/ocr"
	"github.com/ia-avocats/backend/internal/pipeline"
	"github.com/ia-avocats/backend/internal/render"
	"github.com/ia-avocats/backend/internal/storage"
	"github.com/ia-avocats/backend/internal/upload"
	"github.com/ia-avocats/backend/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.EnsureDirectories(); err != nil {
		log.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, closeGen, err := buildGenerator(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize language model", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	defer closeGen()

	assistant := llm.NewAssistant(gen)
	word := docx.NewWriter(cfg.Storage.TempDirectory)

	p := pipeline.New(pipeline.Deps{
		Renderer:   render.New(cfg.Storage.TempDirectory, log),
		OCR:        buildOCR(cfg.OCR.Provider, gen),
		Classifier: classify.New(assistant, cfg.Pipeline.ClassificationThreshold, log),
		Text:       assistant,
		Word:       word,
	}, pipeline.Options{
		PageConcurrency: cfg.Pipeline.PageConcurrency,
		ChunkTokens:     cfg.Pipeline.ChunkTokens,
		CharsPerToken:   cfg.Pipeline.CharsPerToken,
		NaturalOrder:    cfg.Pipeline.NaturalOrder,
	}, log)

	results, err := storage.NewResultStore(cfg.Storage.ResultsDirectory)
	if err != nil {
		log.Error("failed to initialize result store", "error", err)
		os.Exit(1)
	}

	jobMgr := jobs.NewManager(jobs.Options{
		MaxConcurrent: cfg.Processing.MaxConcurrentJobs,
		QueueSize:     cfg.Jobs.QueueSize,
		KeepAlive:     time.Duration(cfg.Jobs.KeepAliveSeconds) * time.Second,
	}, log)

	uploads := upload.NewBuffer(upload.Limits{
		MaxFiles:     cfg.Processing.MaxFilesPerJob,
		MaxFileBytes: cfg.Processing.MaxFileBytes,
		MaxJobBytes:  cfg.Processing.MaxJobBytes,
	}, log)

	// Start background cleanup of finished jobs, stale uploads and old results
	go func() {
		retention := time.Duration(cfg.Processing.JobRetentionMinutes) * time.Minute
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				jobMgr.CleanupOldJobs(retention)
				uploads.CleanupOldUploads(retention)
				if n := results.CleanupOlderThan(retention); n > 0 {
					log.Info("expired results removed", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, strings.EqualFold(cfg.Logging.Level, "debug"))

	isStream := func(c echo.Context) bool {
		path := c.Request().URL.Path
		return strings.HasSuffix(path, "/stream") ||
			strings.HasSuffix(path, "/ws") ||
			c.Request().Header.Get("Accept") == "text/event-stream"
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !cfg.Server.EnableRequestLogging || c.Request().URL.Path == "/api/health"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
		Skipper: func(c echo.Context) bool {
			return isStream(c) || strings.HasSuffix(c.Request().URL.Path, "/files")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: isStream,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Jobs:    jobMgr,
		Uploads: uploads,
		Results: results,
		Runner:  p,
		Word:    word,
		Version: Version,
		Logger:  log,
	}))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn("failed to register static routes", "error", err)
		}
	}

	s := &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Exhibit Summarizer Server                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  LLM:        %-45s║\n", cfg.LLM.Provider+" / "+cfg.LLM.TextModel)
	fmt.Printf("║  OCR:        %-45s║\n", cfg.OCR.Provider)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := jobMgr.Shutdown(shutdownCtx); err != nil {
		log.Warn("jobs did not stop in time", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown failed", "error", err)
	}
}

// buildGenerator creates the configured language model client and a
// function releasing it.
func buildGenerator(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (llm.Generator, func(), error) {
	switch cfg.LLM.Provider {
	case "vertex":
		client, err := vertex.New(ctx, vertex.Config{
			ProjectID:   cfg.LLM.ProjectID,
			Region:      cfg.LLM.Region,
			TextModel:   cfg.LLM.TextModel,
			VisionModel: cfg.LLM.VisionModel,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	default:
		client, err := gemini.New(ctx, gemini.Config{
			APIKeys:     cfg.LLM.APIKeys,
			TextModel:   cfg.LLM.TextModel,
			VisionModel: cfg.LLM.VisionModel,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

// buildOCR selects page text extraction: the PDF text layer, the vision
// model, or the text layer with vision fallback.
func buildOCR(provider string, gen llm.Generator) pipeline.OCR {
	switch provider {
	case "textlayer":
		return ocr.NewTextLayer()
	case "vision":
		return ocr.NewVision(gen)
	default:
		return ocr.NewHybrid(ocr.NewTextLayer(), ocr.NewVision(gen))
	}
}
