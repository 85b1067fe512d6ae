package config

import (
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	JournalPath   string
	StatePath     string
	MetricsAddr   string
	APIAddr       string

	// Collaborators
	QuoteStreamURL string // WebSocket quote feed, empty = disabled
	HistoryBaseURL string // REST daily-candle endpoint
	HistoryToken   string // bearer token for the history API

	// Control surface
	OTPSecret string // TOTP secret for mutating API endpoints, empty = open

	// Alerts
	TelegramBotToken string
	TelegramChatID   string

	// Trading
	Trading TradingConfig

	// WatchTickers are always priced each cycle even when neither held
	// nor recommended.
	WatchTickers []string

	// Scheduler
	CycleInterval    time.Duration
	MarketHoursOnly  bool
	IndicatorTTL     time.Duration
	LookbackDays     int
	InitialBalance   float64
	TelegramAlertsOn bool
}

// TradingConfig names every numeric threshold of the trading ruleset.
// Values follow the aggressive ruleset of the advisor pipeline; all of them
// can be overridden from the environment.
type TradingConfig struct {
	FeeRate             float64 // commission per trade side
	MinConfidence       float64 // minimum confidence for a BUY candidate
	ReinforceConfidence float64 // minimum confidence to reinforce a HOLD
	InvestFraction      float64 // share of free balance invested per cycle
	ReinforceFraction   float64 // share of invest capital reserved for reinforcement
	MinInvestCapital    float64 // below this, the cycle makes no entries
	MaxPositionFraction float64 // position cap as share of portfolio value
	MinLotMultiplier    float64 // minimum order value in multiples of price
	SafetyFactor        float64 // balance share used when funds are short
	MaxCandidates       int     // candidate set bound per cycle

	// Exit rules
	StopLossPct     float64 // static stop-loss, percent
	TrailingPct     float64 // trailing stop distance from high-water mark, percent
	RSIOverbought   float64 // RSI level triggering partial unwind
	RSIEntryLimit   float64 // RSI level above which new entries are rejected
	MAShortFraction float64 // share sold on MA_short break
	RSIFraction     float64 // share sold on RSI overbought
	ProfitTiers     []ProfitTier

	// Indicator windows
	MAShortWindow int
	MALongWindow  int
	RSIPeriod     int
}

// ProfitTier is one level of the tiered take-profit ladder.
// At LevelPct percent unrealized profit, Fraction of the position is sold.
type ProfitTier struct {
	LevelPct float64
	Fraction float64
}

// DefaultTrading returns the canonical ruleset thresholds.
func DefaultTrading() TradingConfig {
	return TradingConfig{
		FeeRate:             0.003,
		MinConfidence:       0.5,
		ReinforceConfidence: 0.8,
		InvestFraction:      0.7,
		ReinforceFraction:   0.2,
		MinInvestCapital:    1000,
		MaxPositionFraction: 0.4,
		MinLotMultiplier:    10,
		SafetyFactor:        0.9,
		MaxCandidates:       5,

		StopLossPct:     5.0,
		TrailingPct:     5.0,
		RSIOverbought:   80,
		RSIEntryLimit:   70,
		MAShortFraction: 0.4,
		RSIFraction:     0.3,
		ProfitTiers: []ProfitTier{
			{LevelPct: 10, Fraction: 0.3},
			{LevelPct: 15, Fraction: 0.3},
			{LevelPct: 20, Fraction: 0.4},
		},

		MAShortWindow: 5,
		MALongWindow:  20,
		RSIPeriod:     14,
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	trading := DefaultTrading()
	trading.FeeRate = getFloat("TRADE_FEE_RATE", trading.FeeRate)
	trading.MinConfidence = getFloat("MIN_CONFIDENCE", trading.MinConfidence)
	trading.InvestFraction = getFloat("INVEST_FRACTION", trading.InvestFraction)
	trading.MaxPositionFraction = getFloat("MAX_POSITION_FRACTION", trading.MaxPositionFraction)
	trading.StopLossPct = getFloat("STOP_LOSS_PCT", trading.StopLossPct)
	trading.TrailingPct = getFloat("TRAILING_STOP_PCT", trading.TrailingPct)
	if tiers := os.Getenv("PROFIT_TIERS"); tiers != "" {
		trading.ProfitTiers = ParseProfitTiers(tiers)
	}

	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/trades.db"),
		StatePath:     getEnv("STATE_PATH", "data/trader_state.json"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),

		QuoteStreamURL: getEnv("QUOTE_STREAM_URL", ""),
		HistoryBaseURL: getEnv("HISTORY_BASE_URL", "https://invest-public-api.tbank.ru/rest"),
		HistoryToken:   getEnv("HISTORY_TOKEN", ""),

		OTPSecret: getEnv("API_OTP_SECRET", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		Trading: trading,

		WatchTickers: splitList(getEnv("WATCH_TICKERS", "")),

		CycleInterval:    getDuration("CYCLE_INTERVAL", time.Hour),
		MarketHoursOnly:  getBool("MARKET_HOURS_ONLY", true),
		IndicatorTTL:     getDuration("INDICATOR_TTL", time.Hour),
		LookbackDays:     getInt("LOOKBACK_DAYS", 30),
		InitialBalance:   getFloat("INITIAL_BALANCE", 1000000),
		TelegramAlertsOn: getBool("TELEGRAM_ALERTS", false),
	}
}

// ParseProfitTiers parses a "level:fraction,level:fraction" spec,
// e.g. "10:0.3,15:0.3,20:0.4". Invalid entries are skipped.
// Tiers are returned sorted ascending by level.
func ParseProfitTiers(s string) []ProfitTier {
	var tiers []ProfitTier
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			continue
		}
		level, err1 := strconv.ParseFloat(strings.TrimSpace(kv[0]), 64)
		frac, err2 := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err1 != nil || err2 != nil || level <= 0 || frac <= 0 || frac > 1 {
			log.Printf("[config] skipping invalid profit tier: %q", part)
			continue
		}
		tiers = append(tiers, ProfitTier{LevelPct: level, Fraction: frac})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].LevelPct < tiers[j].LevelPct })
	return tiers
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid duration for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
