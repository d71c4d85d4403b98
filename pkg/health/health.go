package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"club-overview-console/pkg/logging"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name        string                 `json:"name"`
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    HealthSummary              `json:"summary"`
}

// HealthSummary provides aggregated health information
type HealthSummary struct {
	TotalComponents int `json:"total_components"`
	HealthyCount    int `json:"healthy_count"`
	DegradedCount   int `json:"degraded_count"`
	UnhealthyCount  int `json:"unhealthy_count"`
	UnknownCount    int `json:"unknown_count"`
}

// HealthChecker defines the interface for health check functions
type HealthChecker interface {
	Check(ctx context.Context) ComponentHealth
	Name() string
}

// HealthManager runs the registered checks and keeps the last result of each.
type HealthManager struct {
	checkers  map[string]HealthChecker
	results   map[string]ComponentHealth
	startTime time.Time
	version   string
	timeout   time.Duration
	logger    *logging.ComponentLogger
	mu        sync.RWMutex
}

// HealthConfig holds configuration for the health manager
type HealthConfig struct {
	Timeout time.Duration `json:"timeout"`
	Version string        `json:"version"`
}

// DefaultHealthConfig returns sensible defaults
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Timeout: 5 * time.Second,
		Version: "1.0.0",
	}
}

// NewHealthManager creates a new health manager
func NewHealthManager(config HealthConfig, logger *logging.Logger) *HealthManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HealthManager{
		checkers:  make(map[string]HealthChecker),
		results:   make(map[string]ComponentHealth),
		startTime: time.Now(),
		version:   config.Version,
		timeout:   config.Timeout,
		logger:    logger.WithComponent("health"),
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	name := checker.Name()
	hm.checkers[name] = checker
	hm.results[name] = ComponentHealth{Name: name, Status: HealthStatusUnknown}

	hm.logger.Info("Registered health checker", logging.String("checker", name))
}

// CheckAll runs all health checks concurrently.
func (hm *HealthManager) CheckAll(ctx context.Context) SystemHealth {
	start := time.Now()

	hm.mu.RLock()
	checkers := make([]HealthChecker, 0, len(hm.checkers))
	for _, checker := range hm.checkers {
		checkers = append(checkers, checker)
	}
	hm.mu.RUnlock()

	results := make(chan ComponentHealth, len(checkers))
	var wg sync.WaitGroup
	for _, checker := range checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
			defer cancel()
			results <- c.Check(checkCtx)
		}(checker)
	}
	wg.Wait()
	close(results)

	components := make(map[string]ComponentHealth, len(checkers))
	hm.mu.Lock()
	for result := range results {
		components[result.Name] = result
		hm.results[result.Name] = result
	}
	hm.mu.Unlock()

	systemStatus := determineSystemHealth(components)
	hm.logger.Debug("Completed health check",
		logging.String("status", string(systemStatus)),
		logging.Duration("duration", time.Since(start)),
		logging.Int("components", len(components)))

	return SystemHealth{
		Status:     systemStatus,
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.startTime),
		Components: components,
		Summary:    calculateSummary(components),
	}
}

// GetCachedHealth returns the last known health status
func (hm *HealthManager) GetCachedHealth() SystemHealth {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	components := make(map[string]ComponentHealth, len(hm.results))
	for name, result := range hm.results {
		components[name] = result
	}
	return SystemHealth{
		Status:     determineSystemHealth(components),
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.startTime),
		Components: components,
		Summary:    calculateSummary(components),
	}
}

// determineSystemHealth: any unhealthy component makes the system unhealthy, any degraded one
// makes it degraded.
func determineSystemHealth(components map[string]ComponentHealth) HealthStatus {
	if len(components) == 0 {
		return HealthStatusUnknown
	}
	s := calculateSummary(components)
	switch {
	case s.UnhealthyCount > 0:
		return HealthStatusUnhealthy
	case s.DegradedCount > 0:
		return HealthStatusDegraded
	case s.HealthyCount == len(components):
		return HealthStatusHealthy
	}
	return HealthStatusUnknown
}

func calculateSummary(components map[string]ComponentHealth) HealthSummary {
	summary := HealthSummary{TotalComponents: len(components)}
	for _, component := range components {
		switch component.Status {
		case HealthStatusHealthy:
			summary.HealthyCount++
		case HealthStatusDegraded:
			summary.DegradedCount++
		case HealthStatusUnhealthy:
			summary.UnhealthyCount++
		default:
			summary.UnknownCount++
		}
	}
	return summary
}

// Standard Health Checkers

// PingChecker reports on any dependency with a Ping method. Optional dependencies report
// degraded instead of unhealthy when the ping fails.
type PingChecker struct {
	name     string
	ping     func(ctx context.Context) error
	optional bool
	meta     func() map[string]interface{}
}

// NewPingChecker creates a checker for a required dependency.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

// Optional marks the dependency as non-critical.
func (p *PingChecker) Optional() *PingChecker {
	p.optional = true
	return p
}

// WithMetadata attaches extra fields to every result.
func (p *PingChecker) WithMetadata(fn func() map[string]interface{}) *PingChecker {
	p.meta = fn
	return p
}

func (p *PingChecker) Name() string { return p.name }

func (p *PingChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()
	result := ComponentHealth{Name: p.name, LastChecked: start}
	if p.meta != nil {
		result.Metadata = p.meta()
	}
	if err := p.ping(ctx); err != nil {
		result.Status = HealthStatusUnhealthy
		if p.optional {
			result.Status = HealthStatusDegraded
		}
		result.Error = err.Error()
		result.Message = "ping failed"
	} else {
		result.Status = HealthStatusHealthy
		result.Message = "reachable"
	}
	result.Duration = time.Since(start)
	return result
}

// NewDatabaseHealthChecker pings db and reports pool stats.
func NewDatabaseHealthChecker(db *sql.DB, name string) *PingChecker {
	return NewPingChecker(name, db.PingContext).WithMetadata(func() map[string]interface{} {
		stats := db.Stats()
		return map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration":    stats.WaitDuration.String(),
		}
	})
}

// Register mounts /health, /health/live and /health/ready on mux.
func (hm *HealthManager) Register(mux *http.ServeMux, path string) {
	if path == "" {
		path = "/health"
	}
	mux.HandleFunc(path, hm.handleHealth)
	mux.HandleFunc(path+"/live", hm.handleLiveness)
	mux.HandleFunc(path+"/ready", hm.handleReadiness)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (hm *HealthManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	var health SystemHealth
	if r.URL.Query().Get("cached") == "true" {
		health = hm.GetCachedHealth()
	} else {
		health = hm.CheckAll(r.Context())
	}
	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy || health.Status == HealthStatusUnknown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (hm *HealthManager) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(hm.startTime).String(),
	})
}

// handleReadiness: ready if healthy or degraded, but not if unhealthy.
func (hm *HealthManager) handleReadiness(w http.ResponseWriter, r *http.Request) {
	health := hm.CheckAll(r.Context())
	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status":     health.Status,
		"ready":      health.Status != HealthStatusUnhealthy,
		"timestamp":  health.Timestamp,
		"components": len(health.Components),
	})
}
