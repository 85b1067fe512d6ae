package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Zetan9/birzhAIbot/config"
	"github.com/Zetan9/birzhAIbot/internal/allocation"
	"github.com/Zetan9/birzhAIbot/internal/api"
	"github.com/Zetan9/birzhAIbot/internal/feed"
	"github.com/Zetan9/birzhAIbot/internal/indicator"
	"github.com/Zetan9/birzhAIbot/internal/journal"
	"github.com/Zetan9/birzhAIbot/internal/logger"
	"github.com/Zetan9/birzhAIbot/internal/markethours"
	"github.com/Zetan9/birzhAIbot/internal/metrics"
	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/notification"
	"github.com/Zetan9/birzhAIbot/internal/risk"
	"github.com/Zetan9/birzhAIbot/internal/signal"
	"github.com/Zetan9/birzhAIbot/internal/state"
	"github.com/Zetan9/birzhAIbot/internal/trader"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("trader", slog.LevelInfo)
	log.Println("[trader] starting...")

	cfg := config.Load()
	log.Printf("[trader] %s", markethours.StatusString(time.Now()))

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics ----
	prom := metrics.New()
	go metrics.Serve(cfg.MetricsAddr)

	// ---- Trade journal (SQLite) ----
	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[trader] journal init failed: %v", err)
	}
	defer jrnl.Close()
	log.Println("[trader] trade journal ready")

	// ---- State store ----
	store, err := state.NewFileStore(cfg.StatePath)
	if err != nil {
		log.Fatalf("[trader] state store init failed: %v", err)
	}

	// ---- Advisor + price feed (Redis) ----
	advisor, err := feed.NewRedisFeed(cfg.RedisAddr, cfg.RedisPassword, 2*cfg.CycleInterval)
	if err != nil {
		log.Fatalf("[trader] redis init failed: %v", err)
	}
	defer advisor.Close()
	log.Println("[trader] advisor feed ready")

	// ---- Optional realtime quote stream (WebSocket) ----
	priceChain := feed.ChainPrices{advisor}
	if cfg.QuoteStreamURL != "" {
		quotes := feed.NewQuoteStream(cfg.QuoteStreamURL)
		go quotes.Run(ctx)
		// Realtime quotes win over the advisor's cycle-old snapshot prices.
		priceChain = feed.ChainPrices{quotes, advisor}
		log.Printf("[trader] quote stream enabled: %s", cfg.QuoteStreamURL)
	}

	// ---- History provider (REST) ----
	var history model.HistoryProvider
	if cfg.HistoryToken != "" {
		history = feed.NewHistoryClient(cfg.HistoryBaseURL, cfg.HistoryToken)
	} else {
		log.Println("[trader] WARNING: no history token, technical filter disabled")
	}

	// ---- Alerts ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.TelegramAlertsOn && cfg.TelegramBotToken != "" {
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		log.Println("[trader] telegram alerts enabled")
	}

	// ---- Trading pipeline ----
	tc := cfg.Trading
	indicators := indicator.NewEngine(tc.MAShortWindow, tc.MALongWindow, tc.RSIPeriod, cfg.IndicatorTTL)
	aggregator := signal.New(signal.Config{
		MaxCandidates:       tc.MaxCandidates,
		MinConfidence:       tc.MinConfidence,
		ReinforceConfidence: tc.ReinforceConfidence,
	})
	allocator := allocation.New(allocation.Config{
		InvestFraction:    tc.InvestFraction,
		ReinforceFraction: tc.ReinforceFraction,
		MinInvestCapital:  tc.MinInvestCapital,
	})
	tiers := make([]risk.ProfitTier, len(tc.ProfitTiers))
	for i, t := range tc.ProfitTiers {
		tiers[i] = risk.ProfitTier{LevelPct: t.LevelPct, Fraction: t.Fraction}
	}
	riskMgr := risk.New(risk.Config{
		StopLossPct:     tc.StopLossPct,
		TrailingPct:     tc.TrailingPct,
		RSIOverbought:   tc.RSIOverbought,
		MAShortFraction: tc.MAShortFraction,
		RSIFraction:     tc.RSIFraction,
		ProfitTiers:     tiers,
	})

	engine := trader.New(trader.Config{
		InitialBalance:      cfg.InitialBalance,
		FeeRate:             tc.FeeRate,
		MaxPositionFraction: tc.MaxPositionFraction,
		MinLotMultiplier:    tc.MinLotMultiplier,
		SafetyFactor:        tc.SafetyFactor,
		RSIEntryLimit:       tc.RSIEntryLimit,
		LookbackDays:        cfg.LookbackDays,
		CycleInterval:       cfg.CycleInterval,
		MarketHoursOnly:     cfg.MarketHoursOnly,
		WatchTickers:        cfg.WatchTickers,
	}, trader.Deps{
		Prices:     priceChain,
		History:    history,
		Advisor:    advisor,
		State:      store,
		Journal:    jrnl,
		Notifier:   notifier,
		Indicators: indicators,
		Aggregator: aggregator,
		Allocator:  allocator,
		Risk:       riskMgr,
		Metrics:    prom,
	})

	// ---- Control API ----
	apiSrv := api.NewServer(engine, cfg.OTPSecret)
	go func() {
		if err := apiSrv.Serve(cfg.APIAddr); err != nil {
			log.Fatalf("[trader] api server failed: %v", err)
		}
	}()

	// ---- Run until signalled ----
	go engine.Run(ctx)
	log.Printf("[trader] running, cycle interval %v", cfg.CycleInterval)

	sig := <-sigCh
	log.Printf("[trader] received %v, shutting down", sig)
	cancel()
	time.Sleep(500 * time.Millisecond) // let the scheduler persist state
	log.Println("[trader] bye")
}
