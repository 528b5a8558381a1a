package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/EasterCompany/dex-assistant-service/utils"
)

// StatusServer exposes the service's state over local HTTP: /status with
// counters and gauges, /health for probes, /services for dependency detail.
type StatusServer struct {
	startTime     time.Time
	port          int
	version       string
	healthChecker *HealthChecker

	// Live gauges supplied by the owning subsystems.
	readingSessions func() int
	gatewayClients  func() int
	queueDepth      func() int
}

// NewStatusServer creates a status server; Start brings up the listener.
func NewStatusServer(port int, version string, healthChecker *HealthChecker) *StatusServer {
	return &StatusServer{
		startTime:     time.Now(),
		port:          port,
		version:       version,
		healthChecker: healthChecker,
	}
}

// SetGauges registers the live gauge callbacks shown under /status. Nil
// callbacks report zero.
func (ss *StatusServer) SetGauges(readingSessions, gatewayClients, queueDepth func() int) {
	ss.readingSessions = readingSessions
	ss.gatewayClients = gatewayClients
	ss.queueDepth = queueDepth
}

// Start serves the status endpoints on loopback in a background goroutine.
func (ss *StatusServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", ss.handleStatus)
	mux.HandleFunc("/health", ss.handleHealth)
	mux.HandleFunc("/services", ss.handleServices)

	addr := fmt.Sprintf("127.0.0.1:%d", ss.port)
	log.Printf("[STATUS] serving on http://%s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[STATUS] listener failed: %v", err)
		}
	}()
	return nil
}

func gauge(fn func() int) int {
	if fn == nil {
		return 0
	}
	return fn()
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[STATUS] could not encode response: %v", err)
	}
}

func (ss *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics := utils.GetMetrics()
	metrics["reading_sessions"] = gauge(ss.readingSessions)
	metrics["gateway_clients"] = gauge(ss.gatewayClients)
	metrics["synthesis_queue_depth"] = gauge(ss.queueDepth)
	metrics["goroutines"] = runtime.NumGoroutine()
	metrics["memory_alloc_mb"] = float64(m.Alloc) / 1024 / 1024
	metrics["memory_sys_mb"] = float64(m.Sys) / 1024 / 1024
	metrics["gc_runs"] = m.NumGC

	writeJSON(w, map[string]interface{}{
		"service":   "dex-assistant-service",
		"status":    "operational",
		"version":   ss.version,
		"uptime":    time.Since(ss.startTime).String(),
		"timestamp": time.Now().Format(time.RFC3339),
		"metrics":   metrics,
		"services":  ss.healthChecker.GetAllServices(),
	})
}

// handleHealth answers liveness probes with a bare ok.
func (ss *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (ss *StatusServer) handleServices(w http.ResponseWriter, r *http.Request) {
	checked := ss.healthChecker.GetAllServices()
	writeJSON(w, map[string]interface{}{
		"services": checked,
		"count":    len(checked),
	})
}
