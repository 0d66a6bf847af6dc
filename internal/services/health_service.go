package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"enrolcli/internal/config"
	"enrolcli/internal/dataset"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     config.PathsConfig
	store     *dataset.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// VersionInfo represents build information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// NewHealthService creates a health service with injected dependencies.
func NewHealthService(version, buildTime string, paths config.PathsConfig, store *dataset.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		store:     store,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check returns the overall health status
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{},
	}

	dataDir := map[string]interface{}{"path": s.paths.DataDir}
	if _, err := os.Stat(s.paths.DataDir); err != nil {
		dataDir["status"] = "unavailable"
		dataDir["error"] = err.Error()
		status.Status = "degraded"
	} else {
		dataDir["status"] = "ok"
	}
	status.Services["data_dir"] = dataDir

	cache := map[string]interface{}{"loaded": s.store.Loaded()}
	if s.store.Loaded() {
		cache["loaded_at"] = s.store.LoadedAt()
		cache["warnings"] = len(s.store.Warnings())
	}
	status.Services["dataset_cache"] = cache

	return status
}

// Ready reports whether the service can serve dashboard requests: the
// data directory must exist and contain at least one readable extract,
// or the table must already be cached.
func (s *HealthService) Ready(ctx context.Context) (bool, string) {
	if s.store.Loaded() {
		return true, "dataset cached"
	}

	entries, err := os.ReadDir(s.paths.DataDir)
	if err != nil {
		return false, "data directory unavailable"
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return true, "data directory readable"
		}
	}
	return false, "data directory empty"
}

// Version returns build information
func (s *HealthService) Version(ctx context.Context) *VersionInfo {
	return &VersionInfo{
		Version:   s.version,
		BuildTime: s.buildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
