package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sentryguard/internal/api"
	"sentryguard/internal/audit"
	"sentryguard/internal/classify"
	"sentryguard/internal/config"
	"sentryguard/internal/dispatch"
	"sentryguard/internal/history"
	"sentryguard/internal/ingest"
	"sentryguard/internal/logging"
	"sentryguard/internal/model"
	"sentryguard/internal/settings"
	"sentryguard/internal/stats"
	"sentryguard/internal/storage"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to config file (json or yaml); defaults are used when empty")
	flag.Parse()

	var manager *config.Manager
	if *configPath != "" {
		m, err := config.NewManager(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		manager = m
	} else {
		manager = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := manager.Get()

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("sentryguard starting", "version", version, "config", *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage open failed", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}
	if err := db.Init(ctx); err != nil {
		logger.Error("storage init failed", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	defaults := model.AlertSettings{
		Enabled:     cfg.Sentry.DefaultEnabled,
		ThreatLevel: model.ThreatLevel(strings.ToLower(cfg.Sentry.DefaultThreshold)),
	}
	settingsStore := settings.NewStore(defaults, db, logging.Component(logger, "settings"))
	settingsStore.Load(ctx)

	historyStore := history.NewStore(cfg.Alerts.HistoryLimit, db, logging.Component(logger, "history"))
	historyStore.Load(ctx)

	auditLog := audit.NewLog(db, logging.Component(logger, "audit"))
	statsStore := stats.NewStore()

	var dispatchOpts []dispatch.Option
	if cfg.Alerts.AutoAckDelay > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithAutoAck(cfg.Alerts.AutoAckDelay))
	}
	dispatcher := dispatch.NewDispatcher(settingsStore, historyStore, auditLog, statsStore,
		logging.Component(logger, "dispatch"), dispatchOpts...)

	contacts := classify.NewContactSet(cfg.Sentry.KnownContacts)
	classifier := classify.NewClassifier(dispatcher, contacts, statsStore, logging.Component(logger, "classify"))

	events := make(chan model.MessageEvent, cfg.Ingest.ChannelBuffer)
	dedupe := ingest.NewDeduper(cfg.Ingest.DedupeSize)
	ingestLogger := logging.Component(logger, "ingest")
	ingest.StartREST(ctx, manager, dedupe, events, ingestLogger)
	ingest.StartKafka(ctx, manager, dedupe, events, ingestLogger)
	ingest.StartFileTail(ctx, manager, dedupe, events, ingestLogger)

	classifier.Start(ctx, events)

	api.Start(ctx, api.Deps{
		Config:     manager,
		Settings:   settingsStore,
		History:    historyStore,
		Dispatcher: dispatcher,
		Classifier: classifier,
		Stats:      statsStore,
		Audit:      auditLog,
		Logger:     logging.Component(logger, "api"),
		Version:    version,
	})

	if *configPath != "" {
		go manager.Watch(3*time.Second, func(next *config.Config) {
			logger.Info("config reloaded", "log_level", next.LogLevel)
		}, func(err error) {
			logger.Warn("config reload failed", "err", err)
		}, ctx.Done())
	}

	<-ctx.Done()
	logger.Info("shutting down")
	dispatcher.Wait()
}
