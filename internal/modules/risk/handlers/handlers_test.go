package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/fundcore/internal/modules/risk"
	testingpkg "github.com/aristath/fundcore/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*chi.Mux, *testingpkg.FundFixture) {
	t.Helper()
	f := testingpkg.NewFundFixture(t, map[string]float64{"BTC": 0.5})
	// A single position breaches the concentration limit
	f.Seed(t, 0, testingpkg.Position("BTC", 10, 100))

	router := chi.NewRouter()
	NewHandler(f.Supervisor, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)
	return router, f
}

func do(t *testing.T, router http.Handler, method, path string, body []byte) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object")
	return d
}

func TestHandleCheck_StoresSnapshot(t *testing.T) {
	router, _ := setupRouter(t)

	code, _ := do(t, router, "GET", "/risk/metrics", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, router, "POST", "/risk/check", nil)
	require.Equal(t, http.StatusOK, code)
	limits := data(t, body)["limits"].(map[string]interface{})
	assert.Equal(t, false, limits["passed"])
	assert.NotEmpty(t, limits["violations"])

	code, body = do(t, router, "GET", "/risk/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fund-1", data(t, body)["fund_id"])
	assert.Equal(t, float64(1), data(t, body)["version"])
}

func TestHandleAlerts_Acknowledge(t *testing.T) {
	router, _ := setupRouter(t)
	code, _ := do(t, router, "POST", "/risk/check", nil)
	require.Equal(t, http.StatusOK, code)

	_, body := do(t, router, "GET", "/risk/alerts", nil)
	alerts := data(t, body)["alerts"].([]interface{})
	require.NotEmpty(t, alerts)
	id := alerts[0].(map[string]interface{})["id"].(string)

	code, _ = do(t, router, "POST", "/risk/alerts/"+id+"/ack", nil)
	assert.Equal(t, http.StatusOK, code)

	_, body = do(t, router, "GET", "/risk/alerts", nil)
	assert.Equal(t, float64(len(alerts)-1), data(t, body)["count"])
	_, body = do(t, router, "GET", "/risk/alerts?all=true", nil)
	assert.Equal(t, float64(len(alerts)), data(t, body)["count"])

	code, _ = do(t, router, "POST", "/risk/alerts/missing/ack", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandleStress(t *testing.T) {
	router, f := setupRouter(t)

	code, body := do(t, router, "GET", "/risk/stress", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(len(f.Supervisor.Risk().Scenarios())), data(t, body)["count"])

	code, body = do(t, router, "POST", "/risk/stress/flash_crash", nil)
	require.Equal(t, http.StatusOK, code)
	scenario := data(t, body)["scenario"].(map[string]interface{})
	assert.Equal(t, "flash_crash", scenario["id"])

	code, _ = do(t, router, "POST", "/risk/stress/asteroid", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandlePutLimits(t *testing.T) {
	router, f := setupRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"max_drawdown":`, http.StatusBadRequest},
		{"out of range", `{"max_drawdown": -0.1}`, http.StatusBadRequest},
		{"valid", `{"max_drawdown": 0.1, "max_leverage": 1.5, "max_var": 0.05}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, router, "PUT", "/risk/limits", []byte(tt.body))
			assert.Equal(t, tt.code, code)
		})
	}

	assert.Equal(t, risk.Limits{MaxDrawdown: 0.1, MaxLeverage: 1.5, MaxVaR: 0.05}, f.Supervisor.Risk().Limits())
}

func TestHandleGetHedging(t *testing.T) {
	router, _ := setupRouter(t)

	code, body := do(t, router, "GET", "/risk/hedging", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, data(t, body), "needed")
}

func TestHandlers_ClosedFund(t *testing.T) {
	router, f := setupRouter(t)
	require.NoError(t, f.Supervisor.Stop())

	for _, path := range []string{"/risk/check", "/risk/stress/flash_crash"} {
		code, _ := do(t, router, "POST", path, nil)
		assert.Equal(t, http.StatusConflict, code, path)
	}
	code, _ := do(t, router, "GET", "/risk/stress", nil)
	assert.Equal(t, http.StatusConflict, code)
}
