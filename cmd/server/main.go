package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/api/option"

	"github.com/castlemilk/salahtime/backend/internal/archive"
	"github.com/castlemilk/salahtime/backend/internal/auth"
	"github.com/castlemilk/salahtime/backend/internal/config"
	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/extraction/tesseract"
	"github.com/castlemilk/salahtime/backend/internal/notify"
	"github.com/castlemilk/salahtime/backend/internal/service"
	"github.com/castlemilk/salahtime/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "salahtime").Logger()
}

func run(ctx context.Context, cfg *config.Config) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var googleOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		googleOpts = append(googleOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	extCfg := extraction.Config{
		Vision: extraction.NewVisionExtractor(cfg.GeminiAPIKey,
			extraction.WithGeminiModel(cfg.GeminiModel),
			extraction.WithGeminiBaseURL(cfg.GeminiBaseURL),
			extraction.WithRateLimit(cfg.GeminiRPS, 1),
		),
		Store:  st,
		JobTTL: cfg.JobTTL,
	}

	switch cfg.OCREngine {
	case config.OCRTesseract:
		extCfg.Recognizer = extraction.NewRecognizer(tesseract.NewFactory(cfg.OCRLanguages...), extraction.NewImageNormalizer())
	case config.OCRRemote:
		client := extraction.NewOCRClient(cfg.OCRServiceURL)
		if _, err := client.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Str("url", cfg.OCRServiceURL).Msg("OCR service is not healthy yet")
		}
		extCfg.Recognizer = extraction.NewRecognizer(client.EngineFactory(), extraction.NewImageNormalizer())
	}

	switch cfg.Archive {
	case config.ArchiveLocal:
		extCfg.Archive = archive.NewLocalArchive(cfg.ArchiveDir, cfg.ArchiveBaseURL)
	case config.ArchiveGCS:
		client, err := storage.NewClient(ctx, googleOpts...)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		extCfg.Archive = archive.NewGCSArchive(client, cfg.GCSBucket)
	case config.ArchiveSpaces:
		spaces, err := archive.NewSpacesArchive(archive.SpacesConfig(cfg.Spaces))
		if err != nil {
			return err
		}
		extCfg.Archive = spaces
	}

	if cfg.MQTTBrokerURL != "" {
		publisher, err := notify.Connect(cfg.MQTTBrokerURL, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		closers = append(closers, publisher.Close)
		extCfg.Publisher = publisher
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	extCfg.Metrics = extraction.NewMetrics(reg)

	svc := extraction.NewService(extCfg)
	closers = append(closers, svc.Close)

	authMiddleware := auth.LocalDevMiddleware()
	if cfg.AuthMode == config.AuthFirebase {
		firebaseAuth, err := auth.NewFirebaseAuth(ctx, cfg.GoogleCloudProject, cfg.GoogleCredentialsFile)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase Auth: %w", err)
		}
		authMiddleware = auth.Middleware(firebaseAuth)
	} else {
		log.Warn().Msg("AUTH_MODE=local: every request acts as the local user")
	}

	mux := service.NewHandler(svc, st).Routes()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-Id",
		},
		ExposedHeaders:   []string{"Location", "X-Request-Id"},
		AllowCredentials: true,
	})

	handler := c.Handler(service.WithRequestLogging(log.Logger, authMiddleware(mux)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Bool("ai", svc.IsAIAvailable()).
			Bool("ocr", svc.IsOCRAvailable()).
			Str("store", cfg.Store).
			Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
