package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerProbe(t *testing.T) {
	hc := NewHealthChecker(time.Minute)
	hc.RegisterProbe("redis", func() error { return nil })
	hc.RegisterProbe("discord", func() error { return errors.New("gateway closed") })

	hc.checkProbe("redis", hc.probes["redis"])
	hc.checkProbe("discord", hc.probes["discord"])

	assert.Equal(t, "OK", hc.GetServiceStatus("redis").Status)
	bad := hc.GetServiceStatus("discord")
	assert.Equal(t, "BAD", bad.Status)
	assert.Equal(t, "gateway closed", bad.Error)
}

func TestHealthCheckerEndpointWithStatusJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "operational",
			"uptime":  "1h2m",
			"version": "1.0.0",
			"metrics": map[string]interface{}{"jobs": 3},
		})
	}))
	defer srv.Close()

	hc := NewHealthChecker(time.Minute)
	hc.RegisterService("ollama", srv.URL)
	hc.checkEndpoint("ollama", srv.URL)

	status := hc.GetServiceStatus("ollama")
	assert.Equal(t, "operational", status.Status)
	assert.Equal(t, "1h2m", status.Uptime)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Contains(t, status.Metrics, "jobs")
}

func TestHealthCheckerPlainEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	}))
	defer srv.Close()

	hc := NewHealthChecker(time.Minute)
	hc.RegisterService("tts", srv.URL)
	hc.checkEndpoint("tts", srv.URL)

	assert.Equal(t, "OK", hc.GetServiceStatus("tts").Status)
}

func TestHealthCheckerOfflineEndpoint(t *testing.T) {
	hc := NewHealthChecker(time.Minute)
	hc.RegisterService("search", "http://127.0.0.1:1")
	hc.checkEndpoint("search", "http://127.0.0.1:1")

	assert.Equal(t, "BAD", hc.GetServiceStatus("search").Status)
}

func TestStatusServerHandleStatus(t *testing.T) {
	hc := NewHealthChecker(time.Minute)
	ss := NewStatusServer(0, "test", hc)
	ss.SetGauges(func() int { return 2 }, func() int { return 1 }, nil)

	rec := httptest.NewRecorder()
	ss.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "dex-assistant-service", body["service"])

	metrics := body["metrics"].(map[string]interface{})
	assert.Equal(t, float64(2), metrics["reading_sessions"])
	assert.Equal(t, float64(1), metrics["gateway_clients"])
	assert.Equal(t, float64(0), metrics["synthesis_queue_depth"])
}
