package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	appconfig "signalflow/config"
	"signalflow/internal/channel"
	"signalflow/internal/dispatch"
	"signalflow/internal/engine"
	"signalflow/internal/exchange"
	"signalflow/internal/metrics"
	"signalflow/internal/stream"
	"signalflow/internal/telegram"
	"signalflow/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	flag.Parse()

	// Optional; secrets may come from the real environment instead.
	_ = godotenv.Load()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.GetLogger().Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger().WithComponent("main")
	log.WithFields(logger.Fields{
		"name":    cfg.Signalflow.Name,
		"version": cfg.Signalflow.Version,
	}).Info("starting signalflow")

	if cfg.Metrics.Enabled {
		metrics.Init(cfg.Metrics.Address)
	}
	if cfg.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.CloudWatch.Region, cfg.CloudWatch.Namespace)
	}

	notifier, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		log.WithError(err).Fatal("telegram connectivity check failed")
	}

	var venue exchange.Exchange = exchange.NewBinance(cfg.Exchange.Binance)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	symbols, err := venue.ListSymbols(ctx, cfg.Filters.QuoteAsset)
	if err != nil {
		log.WithError(err).Fatal("failed to fetch symbol list")
	}
	if len(symbols) == 0 {
		log.Fatal("no tradable symbols returned by exchange")
	}
	log.WithFields(logger.Fields{
		"exchange": venue.Name(),
		"symbols":  len(symbols),
	}).Info("symbol universe loaded")

	channels := channel.NewManager(cfg.Channels)
	streams := stream.NewManager(cfg.Exchange.Binance.WsURL, cfg.WebSocket, channels)
	signalEngine := engine.NewSignalEngine(cfg, venue.Name())
	subscriptions := stream.NewSubscriptionManager(streams)
	dispatcher := dispatch.NewDispatcher(cfg.Telegram, notifier)

	if err := notifier.SendText(fmt.Sprintf(
		"🤖 <b>%s %s started</b>\nTracking %d %s pairs on %s",
		cfg.Signalflow.Name, cfg.Signalflow.Version,
		len(symbols), cfg.Filters.QuoteAsset, venue.Name())); err != nil {
		log.WithError(err).Warn("failed to send startup notice")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		streams.RunTickerStream(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		signalEngine.Run(ctx, channels)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		subscriptions.Run(ctx, channels.Tier1Reader())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, channels.AlertReader())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutdown signal received")

	cancel()
	wg.Wait()
	log.Info("signalflow stopped")
}
