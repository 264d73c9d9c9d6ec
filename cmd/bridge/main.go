package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/config"
	"tradingbridge/internal/core"
	"tradingbridge/internal/executor"
	"tradingbridge/internal/ledger"
	"tradingbridge/internal/logging"
	"tradingbridge/internal/metrics"
	"tradingbridge/internal/models"
	"tradingbridge/internal/notify"
	"tradingbridge/internal/session"
	"tradingbridge/internal/tracker"
	"tradingbridge/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("CRITICAL: configuration error: %v", err)
	}

	zlog, err := logging.New(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)
	if err != nil {
		log.Fatalf("CRITICAL: logging setup failed: %v", err)
	}
	zlog.Info().Msg("trading bridge starting")

	clock, err := session.NewClock(cfg.PreMarketStart, cfg.MarketOpen, cfg.MarketClose, cfg.PostMarketEnd, cfg.ExchangeTZ)
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid market hours configuration")
	}

	link := broker.NewAlpacaLink(cfg.BrokerKeyID, cfg.BrokerSecretKey, cfg.BrokerBaseURL, zlog)
	led := ledger.New(link, zlog)
	exec := executor.New(link, clock, cfg.EnablePreMarket, cfg.EnablePostMarket, zlog)
	trk := tracker.New(link, time.Duration(cfg.LimitOrderTimeoutMinutes)*time.Minute, cfg.MaxResubmissions, zlog)

	streamURL := cfg.BrokerBaseURL + "/stream"
	stream := broker.NewSupervisor(streamURL, cfg.BrokerKeyID, cfg.BrokerSecretKey, zlog)

	notifier, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID, zlog)
	if err != nil {
		zlog.Fatal().Err(err).Msg("notifier setup failed")
	}

	ctrl := core.New(core.Config{
		Link: link, Ledger: led, Executor: exec, Tracker: trk, Stream: stream,
		MaxPositionSize: cfg.MaxPositionSize,
		SweepInterval:   time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		Log:             zlog,
		OnTerminal: func(order models.Order, status string) {
			metrics.RecordSignalOutcome(status)
			notifier.OrderTerminal(order, status)
		},
		OnCapped: func(p models.PendingOrder) {
			metrics.Resubmissions.Inc()
			notifier.ResubmissionCapped(p)
		},
	})

	if err := led.RefreshAll(); err != nil {
		zlog.Warn().Err(err).Msg("initial ledger refresh from broker failed")
	}

	ctx, cancel := context.WithCancel(context.Background())

	webhookServer := webhook.New(ctrl, trk, clock, cfg.WebhookSecret, cfg.AllowedIPs,
		cfg.DefaultQuantity, cfg.EnablePreMarket, cfg.EnablePostMarket, zlog)

	httpSrv := &http.Server{Addr: portAddr(cfg.HTTPPort), Handler: webhookServer.Handler()}
	metricsSrv := &http.Server{Addr: portAddr(cfg.MetricsPort), Handler: metrics.Handler()}

	go func() {
		zlog.Info().Int("port", cfg.HTTPPort).Msg("webhook server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("webhook server stopped")
		}
	}()
	go func() {
		zlog.Info().Int("port", cfg.MetricsPort).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go func() {
		if err := ctrl.Run(ctx); err != nil {
			zlog.Error().Err(err).Msg("trading core stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	zlog.Warn().Msg("shutdown signal received, stopping")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	zlog.Info().Msg("trading bridge stopped")
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
