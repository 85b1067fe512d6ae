package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/Zetan9/birzhAIbot/internal/trader"
)

// testSecret is a valid base32 TOTP secret for handler tests.
const testSecret = "JBSWY3DPEHPK3PXP"

func testMux(t *testing.T, otpSecret string) (*http.ServeMux, *trader.Engine) {
	t.Helper()
	engine := trader.New(trader.Config{InitialBalance: 100000}, trader.Deps{})
	mux := http.NewServeMux()
	NewServer(engine, otpSecret).RegisterRoutes(mux)
	return mux, engine
}

func TestHealth(t *testing.T) {
	mux, _ := testMux(t, "")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: %v", body["status"])
	}
	if body["trading"] != false {
		t.Errorf("fresh engine must report trading=false: %v", body["trading"])
	}
}

func TestPortfolio(t *testing.T) {
	mux, _ := testMux(t, "")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/portfolio", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var body struct {
		Balance    float64 `json:"balance"`
		TotalValue float64 `json:"total_value"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Balance != 100000 || body.TotalValue != 100000 {
		t.Errorf("fresh portfolio: %+v", body)
	}
}

func TestTrades_EmptyIsJSONArray(t *testing.T) {
	mux, _ := testMux(t, "")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/trades?limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("empty trade log must encode as []: %q", got)
	}
}

// ────────────────────────────────────────────────────────────
// Control endpoints and the OTP gate
// ────────────────────────────────────────────────────────────

func TestStartStop_OpenWhenNoSecret(t *testing.T) {
	mux, engine := testMux(t, "")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/trader/start", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("start: status %d", rr.Code)
	}
	if !engine.TradingEnabled() {
		t.Error("start must enable trading")
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/trader/stop", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("stop: status %d", rr.Code)
	}
	if engine.TradingEnabled() {
		t.Error("stop must disable trading")
	}
}

func TestStart_RejectsMissingOTP(t *testing.T) {
	mux, engine := testMux(t, testSecret)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/trader/start", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if engine.TradingEnabled() {
		t.Error("rejected start must not enable trading")
	}
}

func TestStart_AcceptsValidOTP(t *testing.T) {
	mux, engine := testMux(t, testSecret)

	code, err := totp.GenerateCode(testSecret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/v1/trader/start", nil)
	req.Header.Set("X-OTP", code)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid OTP, got %d: %s", rr.Code, rr.Body.String())
	}
	if !engine.TradingEnabled() {
		t.Error("valid OTP must enable trading")
	}
}

func TestControl_RejectsGET(t *testing.T) {
	mux, _ := testMux(t, "")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/trader/start", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on a control endpoint: got %d, want 405", rr.Code)
	}
}
