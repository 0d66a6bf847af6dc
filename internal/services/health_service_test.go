package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolcli/internal/config"
	"enrolcli/internal/dataset"
)

func TestHealthCheck(t *testing.T) {
	svc, dir := newService(t)
	health := NewHealthService("1.0.0", "2026-01-01", config.PathsConfig{DataDir: dir}, svc.Store(), testLogger())

	status := health.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Contains(t, status.Services, "data_dir")
}

func TestHealthCheck_MissingDataDir(t *testing.T) {
	store := dataset.NewStore(dataset.NewLoader("/nonexistent", testLogger()), testLogger())
	health := NewHealthService("1.0.0", "", config.PathsConfig{DataDir: "/nonexistent"}, store, testLogger())

	status := health.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
}

func TestReady(t *testing.T) {
	svc, dir := newService(t)
	health := NewHealthService("1.0.0", "", config.PathsConfig{DataDir: dir}, svc.Store(), testLogger())

	ready, reason := health.Ready(context.Background())
	assert.True(t, ready, reason)

	_, err := svc.Render(context.Background(), Selection{Level: dataset.LevelNational})
	require.NoError(t, err)

	ready, _ = health.Ready(context.Background())
	assert.True(t, ready)
}

func TestReady_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	store := dataset.NewStore(dataset.NewLoader(dir, testLogger()), testLogger())
	health := NewHealthService("1.0.0", "", config.PathsConfig{DataDir: dir}, store, testLogger())

	ready, reason := health.Ready(context.Background())
	assert.False(t, ready)
	assert.NotEmpty(t, reason)
}

func TestVersion(t *testing.T) {
	svc, dir := newService(t)
	health := NewHealthService("2.1.0", "2026-02-02", config.PathsConfig{DataDir: dir}, svc.Store(), testLogger())

	info := health.Version(context.Background())
	assert.Equal(t, "2.1.0", info.Version)
	assert.Equal(t, "2026-02-02", info.BuildTime)
	assert.NotEmpty(t, info.GoVersion)
}
