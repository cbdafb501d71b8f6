package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"husholdning/internal/config"
	"husholdning/internal/infrastructure"
	"husholdning/pkg/contracts"
)

// HubStats is the part of the WebSocket hub the health checks read
type HubStats interface {
	ClientCount() int
	Stats() map[string]any
}

// HealthService provides health check functionality
type HealthService struct {
	paths     config.PathsConfig
	store     *ResultStore
	hub       HubStats
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64        `json:"uptime_seconds"`
	StoredResults    int            `json:"stored_results"`
	WebSocketClients int            `json:"websocket_clients"`
	WebSocket        map[string]any `json:"websocket,omitempty"`
	Goroutines       int            `json:"goroutines"`
	GoVersion        string         `json:"go_version"`
}

// NewHealthService creates a health service. hub may be nil.
func NewHealthService(paths config.PathsConfig, store *ResultStore, hub HubStats, logger *slog.Logger) *HealthService {
	return &HealthService{
		paths:     paths,
		store:     store,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports not_ready when any dependency is unusable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"results":   hs.checkStore(),
			"websocket": hs.checkWebSocket(),
			"diagrams":  checkWritableDir(hs.paths.DiagramDir),
			"exports":   checkWritableDir(hs.paths.ExportDir),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness_check_failed",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns build and version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

// SystemStats returns runtime statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}
	if hs.store != nil {
		stats.StoredResults = hs.store.Len()
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
		stats.WebSocket = hs.hub.Stats()
	}
	return stats
}

func (hs *HealthService) checkStore() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "result store not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d results stored", hs.store.Len())}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount())}
}

// checkWritableDir creates dir if needed and probes it with a temp file
func checkWritableDir(dir string) ServiceHealth {
	if dir == "" {
		return ServiceHealth{Status: "not_ready", Message: "directory not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("cannot write to %s: %v", dir, err)}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return ServiceHealth{Status: "ready", Message: filepath.Clean(dir)}
}
