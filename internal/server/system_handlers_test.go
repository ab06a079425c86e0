package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])

	dbs, ok := body["databases"].(map[string]interface{})
	require.True(t, ok)
	ledger, ok := dbs["ledger"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, ledger["healthy"])
	assert.NotNil(t, ledger["stats"])

	host := body["host"].(map[string]interface{})
	assert.Equal(t, 12.5, host["cpu_percent"])

	fund := body["fund"].(map[string]interface{})
	assert.Equal(t, "fund-http", fund["fund_id"])

	assert.ElementsMatch(t,
		[]interface{}{"alert_cleanup", "check_wal_checkpoints", "daily_maintenance"},
		body["jobs"])

	evts := body["events"].(map[string]interface{})
	assert.Greater(t, evts["subscribers"], 0.0)
}

func TestHandleSystemStatus_DegradedWhenClosed(t *testing.T) {
	s, container := newTestServer(t)
	require.NoError(t, container.Supervisor.Stop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestHandleTriggerJob(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		job  string
		want int
	}{
		{"alert cleanup", "alert_cleanup", http.StatusOK},
		{"wal check", "check_wal_checkpoints", http.StatusOK},
		{"unknown", "reindex_universe", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/"+tt.job, nil))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusOK {
				body := decode(t, rec)
				assert.Equal(t, "success", body["status"])
				assert.Equal(t, tt.job, body["job"])
			}
		})
	}
}
