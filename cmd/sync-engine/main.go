package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"scribeview/sync-engine/config"
	"scribeview/sync-engine/handlers"
	"scribeview/sync-engine/internal/apiclient"
	"scribeview/sync-engine/internal/engine"
	"scribeview/sync-engine/internal/worker"
	"scribeview/sync-engine/internal/ws"
	"scribeview/sync-engine/middleware"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.InitLogger(cfg.Logging.Level)
	logger := config.Log

	watcher, err := config.WatchFile(*configPath)
	if err != nil {
		logger.WithError(err).Warn("config hot reload unavailable")
	} else {
		defer watcher.Stop()
	}

	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Token, logger)
	eng := engine.New(api, logger, engine.Options{LLMConfigured: cfg.Engine.LLMConfigured})

	push := ws.NewClient(nil, time.Duration(cfg.Backend.ReconnectSeconds)*time.Second, logger)
	push.OnNotification(eng.HandleNotification)
	push.OnStateChange(eng.HandleConnectionState)
	if err := push.Connect(cfg.Backend.PushURL, cfg.Backend.Token); err != nil {
		logger.WithError(err).Error("initial push channel connect failed")
	}

	exports := worker.NewDispatcher(cfg.Export.Workers, cfg.Export.QueueSize, logger)
	exports.Run()

	h := handlers.NewApplicationHandler(
		eng, api, push, exports,
		cfg.Export.Dir, cfg.Backend.PushURL, cfg.Backend.Token,
		logger,
	)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Sync engine is healthy",
		})
	})

	app.Get("/tracks/:name", h.GetCaptionTrack)

	apiV1 := app.Group("/api/v1")

	files := apiV1.Group("/files/:fileId")
	files.Get("", h.GetFileState)
	files.Post("/open", h.OpenFile)
	files.Post("/reprocess", h.ReprocessFile)
	files.Post("/summarize", h.SummarizeFile)
	files.Get("/summary", h.GetSummary)
	files.Delete("/cache", h.ClearFileCache)
	files.Patch("/segments/:segmentId", h.UpdateSegment)
	files.Patch("/speakers", h.RenameSpeaker)
	files.Post("/comments", h.AddComment)
	files.Get("/export/:format", h.DownloadExport)
	files.Post("/exports", h.ExportAll)

	apiV1.Post("/session/close", h.CloseFile)
	apiV1.Post("/playback/tick", h.PlaybackTick)
	apiV1.Post("/playback/seek", h.PlaybackSeek)
	apiV1.Get("/notifications", h.ListNotifications)
	apiV1.Post("/notifications/:id/read", h.MarkNotificationRead)
	apiV1.Get("/connection", h.GetConnection)
	apiV1.Post("/connection/reconnect", h.Reconnect)

	go func() {
		logger.WithField("listen", cfg.Server.Listen).Info("sync engine listening")
		if err := app.Listen(cfg.Server.Listen); err != nil {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.WithError(err).Warn("server shutdown error")
	}
	push.Close()
	exports.Stop()
	eng.Close()
	logger.Info("sync engine stopped")
}
