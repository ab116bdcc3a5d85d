package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/carepath-ai/platform/pkg/account"
	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/common/config"
	"github.com/carepath-ai/platform/pkg/common/database"
	"github.com/carepath-ai/platform/pkg/common/kafka"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/conversation"
	"github.com/carepath-ai/platform/pkg/feedback"
	"github.com/carepath-ai/platform/pkg/intake"
	"github.com/carepath-ai/platform/pkg/intake/middleware"
	"github.com/carepath-ai/platform/pkg/redact"
	"github.com/carepath-ai/platform/pkg/resources"
	"github.com/carepath-ai/platform/pkg/session"
	"github.com/carepath-ai/platform/pkg/speech"
	"github.com/carepath-ai/platform/pkg/vocabulary"
)

func main() {
	logger.Init()
	cfg := config.Load()

	redisClient := database.NewRedis(cfg)
	store := session.NewRedisStore(redisClient, cfg.SessionTTL)

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres(db)

	catalog, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load region catalog, using built-in vocabulary")
		catalog = vocabulary.DefaultCatalog()
	}

	rules, err := redact.LoadRules(cfg.RedactRulePath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load redaction rules, using defaults")
	}
	redactor, err := redact.NewRedactor(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid redaction rules")
	}

	producer := kafka.NewProducer(cfg, cfg.EventsTopic)
	defer producer.Close()

	assistClient := assist.NewClient(cfg.AssistBaseURL, cfg.AssistRequestTimeout, catalog)
	transcriber := speech.NewTranscriber(cfg.SpeechBaseURL, cfg.SpeechRequestTimeout)
	synthesizer := speech.NewSynthesizer(cfg.SpeechBaseURL, cfg.SpeechRequestTimeout)

	var authenticator *account.Authenticator
	if auth, err := account.NewAuthenticator(cfg); err == nil {
		authenticator = auth
	} else {
		logger.Log.Info("OIDC login disabled, sessions stay anonymous")
	}

	feedbackRepo := feedback.NewRepository(db)
	if err := feedbackRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate feedback tables")
	}
	feedbackService := feedback.NewService(feedbackRepo, producer, redactor)
	feedbackHandler := feedback.NewHandler(feedbackService)

	resourceRepo := resources.NewRepository(db)
	if err := resourceRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate resource tables")
	}
	if err := resourceRepo.Seed(context.Background()); err != nil {
		logger.Log.WithError(err).Warn("failed to seed resource catalog")
	}
	resourceHandler := resources.NewHandler(resourceRepo)

	registry := intake.NewRegistry(store, intake.Clients{
		Conversation: assistClient,
		Simulation:   assistClient,
	}, conversation.Options{
		Synthesizer: synthesizer,
		Language:    cfg.SpeechLanguage,
		VoiceType:   cfg.SpeechVoiceType,
	})

	intakeHandler := intake.NewHandler(registry, intake.HandlerOptions{
		Diagnosis:     assistClient,
		Transcriber:   transcriber,
		Synthesizer:   synthesizer,
		Publisher:     producer,
		Redactor:      redactor,
		Authenticator: authenticator,
		Language:      cfg.SpeechLanguage,
		VoiceType:     cfg.SpeechVoiceType,
	})

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Session)
	intakeHandler.Register(api)
	feedbackHandler.Register(api)
	resourceHandler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Intake service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start intake service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down intake service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Intake service forced to shutdown")
	}
	logger.Log.Info("Intake service stopped")
}
