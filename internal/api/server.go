// Package api exposes the trader's control and read-only endpoints over HTTP.
//
// Mutating endpoints (start/stop) are gated by a TOTP code supplied in the
// X-OTP header; leaving the secret unset disables the gate (local dev).
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/Zetan9/birzhAIbot/internal/markethours"
	"github.com/Zetan9/birzhAIbot/internal/trader"
)

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-OTP")
}

// Server wires the trading engine to HTTP handlers.
type Server struct {
	engine    *trader.Engine
	otpSecret string
}

func NewServer(engine *trader.Engine, otpSecret string) *Server {
	return &Server{engine: engine, otpSecret: otpSecret}
}

// authorized validates the X-OTP header against the configured secret.
// An empty secret leaves the endpoint open.
func (s *Server) authorized(r *http.Request) bool {
	if s.otpSecret == "" {
		return true
	}
	return totp.Validate(r.Header.Get("X-OTP"), s.otpSecret)
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"trading": s.engine.TradingEnabled(),
			"market":  markethours.StatusString(time.Now()),
		})
	})

	mux.HandleFunc("/api/v1/portfolio", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.engine.GetPortfolioSummary())
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		trades := s.engine.RecentTrades(limit)
		if trades == nil {
			json.NewEncoder(w).Encode([]interface{}{})
			return
		}
		json.NewEncoder(w).Encode(trades)
	})

	mux.HandleFunc("/api/v1/trader/start", s.controlHandler("start", func() { s.engine.StartTrading() }))
	mux.HandleFunc("/api/v1/trader/stop", s.controlHandler("stop", func() { s.engine.StopTrading() }))
}

func (s *Server) controlHandler(name string, action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		if !s.authorized(r) {
			log.Printf("[api] rejected %s: bad or missing OTP from %s", name, r.RemoteAddr)
			http.Error(w, `{"error":"invalid OTP"}`, http.StatusUnauthorized)
			return
		}

		action()
		log.Printf("[api] trader %s via API", name)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"trading": s.engine.TradingEnabled(),
		})
	}
}

// Serve blocks on ListenAndServe with sane timeouts.
func (s *Server) Serve(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("[api] listening on %s", addr)
	return srv.ListenAndServe()
}
