package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// ServiceStatus is a point-in-time view of one assistant dependency.
type ServiceStatus struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"` // OK, BAD, N/A
	Uptime       string    `json:"uptime,omitempty"`
	Version      string    `json:"version,omitempty"`
	LastCheck    time.Time `json:"last_check"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	Endpoint     string    `json:"endpoint,omitempty"`
	Error        string    `json:"error,omitempty"`

	// Extra metrics, when the dependency's status endpoint reports them.
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// ProbeFunc checks a non-HTTP dependency (redis ping, discord session).
type ProbeFunc func() error

// HealthChecker monitors the assistant's dependencies: HTTP endpoints such
// as Ollama, the TTS engine and the tool providers, plus direct probes for
// redis and the Discord session.
type HealthChecker struct {
	mu            sync.RWMutex
	services      map[string]*ServiceStatus
	probes        map[string]ProbeFunc
	client        *http.Client
	checkInterval time.Duration
	stopChan      chan struct{}
}

func NewHealthChecker(checkInterval time.Duration) *HealthChecker {
	return &HealthChecker{
		services:      make(map[string]*ServiceStatus),
		probes:        make(map[string]ProbeFunc),
		client:        &http.Client{Timeout: 2 * time.Second},
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// RegisterService adds an HTTP endpoint to the monitored set.
func (hc *HealthChecker) RegisterService(name, endpoint string) {
	hc.mu.Lock()
	hc.services[name] = &ServiceStatus{
		Name:      name,
		Status:    "N/A",
		Endpoint:  endpoint,
		LastCheck: time.Now(),
	}
	hc.mu.Unlock()

	log.Printf("[HEALTH] watching endpoint %s (%s)", name, endpoint)
}

// RegisterProbe adds a direct dependency probe to the monitored set.
func (hc *HealthChecker) RegisterProbe(name string, probe ProbeFunc) {
	hc.mu.Lock()
	hc.services[name] = &ServiceStatus{
		Name:      name,
		Status:    "N/A",
		LastCheck: time.Now(),
	}
	hc.probes[name] = probe
	hc.mu.Unlock()

	log.Printf("[HEALTH] watching probe %s", name)
}

// Start launches the periodic check loop.
func (hc *HealthChecker) Start() {
	go hc.run()
	log.Println("[HEALTH] dependency checker started")
}

// Stop halts the check loop.
func (hc *HealthChecker) Stop() {
	close(hc.stopChan)
	log.Println("[HEALTH] dependency checker stopped")
}

func (hc *HealthChecker) run() {
	hc.sweep()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.sweep()
		case <-hc.stopChan:
			return
		}
	}
}

// sweep snapshots the registrations under the read lock, then checks each
// dependency concurrently.
func (hc *HealthChecker) sweep() {
	hc.mu.RLock()
	endpoints := make(map[string]string)
	probes := make(map[string]ProbeFunc)
	for name, status := range hc.services {
		if probe, ok := hc.probes[name]; ok {
			probes[name] = probe
			continue
		}
		endpoints[name] = status.Endpoint
	}
	hc.mu.RUnlock()

	for name, endpoint := range endpoints {
		go hc.checkEndpoint(name, endpoint)
	}
	for name, probe := range probes {
		go hc.checkProbe(name, probe)
	}
}

func (hc *HealthChecker) checkProbe(name string, probe ProbeFunc) {
	began := time.Now()
	err := probe()
	elapsed := time.Since(began).Milliseconds()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	status := hc.services[name]
	status.LastCheck = time.Now()
	status.ResponseTime = elapsed
	if err != nil {
		status.Status = "BAD"
		status.Error = err.Error()
		log.Printf("[HEALTH] %s probe failed: %v", name, err)
		return
	}
	status.Status = "OK"
	status.Error = ""
}

// checkEndpoint polls a single HTTP dependency. Endpoints that return our
// status JSON contribute uptime/version/metrics; anything else is OK on a
// 2xx response.
func (hc *HealthChecker) checkEndpoint(name, endpoint string) {
	began := time.Now()
	resp, err := hc.client.Get(endpoint)
	elapsed := time.Since(began).Milliseconds()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	status := hc.services[name]
	status.LastCheck = time.Now()
	status.ResponseTime = elapsed

	if err != nil {
		status.Status = "BAD"
		status.Uptime = ""
		status.Version = ""
		status.Metrics = nil
		status.Error = err.Error()
		log.Printf("[HEALTH] %s unreachable: %v", name, err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status.Status = "BAD"
		status.Error = resp.Status
		log.Printf("[HEALTH] %s degraded: HTTP %d", name, resp.StatusCode)
		return
	}

	status.Status = "OK"
	status.Error = ""
	absorbStatusBody(status, resp.Body)
}

// absorbStatusBody folds a peer's status JSON into the record. Bodies that
// are not our status shape are ignored.
func absorbStatusBody(status *ServiceStatus, body io.Reader) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	if s, ok := payload["status"].(string); ok && s != "" {
		status.Status = s
	}
	if uptime, ok := payload["uptime"].(string); ok {
		status.Uptime = uptime
	}
	if version, ok := payload["version"].(string); ok {
		status.Version = version
	}
	if metrics, ok := payload["metrics"].(map[string]interface{}); ok {
		status.Metrics = metrics
	}
}

// GetServiceStatus returns a copy of one dependency's record, or nil when
// the name is unknown.
func (hc *HealthChecker) GetServiceStatus(name string) *ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status, ok := hc.services[name]
	if !ok {
		return nil
	}
	cp := *status
	return &cp
}

// GetAllServices returns copies of every dependency record keyed by name.
func (hc *HealthChecker) GetAllServices() map[string]*ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	out := make(map[string]*ServiceStatus, len(hc.services))
	for name, status := range hc.services {
		cp := *status
		out[name] = &cp
	}
	return out
}

// GetStatusEmoji maps a dependency status string to its display emoji.
func GetStatusEmoji(status string) string {
	switch status {
	case "OK":
		return "✅"
	case "BAD":
		return "❌"
	default:
		return "❓"
	}
}
