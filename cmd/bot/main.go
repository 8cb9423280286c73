package main

import (
	"context"
	"log"
	"os"
	stdsignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/analyzer"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/bot"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/config"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/logger"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/market"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/monitor"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/notifier"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/scheduler"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/signal"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/store"
)

func main() {
	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zap.L().Sync()

	zap.L().Info("crypto signal bot starting")

	// Market data source
	var fetcher market.Fetcher
	if os.Getenv("USE_MOCK_DATA") == "true" {
		fetcher = &market.MockFetcher{Price: 50000}
	} else {
		fetcher = market.NewBinanceFetcher(cfg.Exchange.BaseURL, cfg.Proxy, cfg.Signal.MaxRetries, cfg.Signal.TransportBackoff.Std())
	}
	zap.L().Info("market data source ready", zap.String("source", fetcher.Name()))

	// Pipeline
	llm := analyzer.NewClient(cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL, cfg.Proxy)
	st := store.New(cfg.Signal.HistorySize)
	validator := &signal.Validator{
		PendingThreshold:    cfg.Signal.PendingThreshold,
		ConfidenceNoteBelow: cfg.Signal.ConfidenceNoteBelow,
	}
	gen := signal.NewGenerator(fetcher, llm, validator, st)
	gen.Timeframe = cfg.Exchange.Timeframe
	gen.CandleLimit = cfg.Exchange.CandleLimit
	gen.MaxRetries = cfg.Signal.MaxRetries
	gen.Backoff = cfg.Signal.SemanticBackoff.Std()

	// Delivery and monitoring
	tg := notifier.NewClient(cfg.Telegram.BotToken, cfg.Proxy)
	b := bot.New(tg, gen, st, cfg.Exchange.Symbols, cfg.Monitor.AlertConfidence)
	mon := monitor.New(st, fetcher, gen, b)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, mon, b)
	if err := sched.RegisterAll(cfg.Monitor.TickInterval.Std(), cfg.Monitor.ScanInterval.Std()); err != nil {
		zap.L().Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	go tg.StartPolling(ctx, b)
	zap.L().Info("telegram polling started")

	zap.L().Info("crypto signal bot is running")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	stdsignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zap.L().Info("shutdown signal received, stopping")
	cancel()
	zap.L().Info("crypto signal bot stopped")
}
