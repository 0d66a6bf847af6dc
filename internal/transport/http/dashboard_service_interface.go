package http

import (
	"context"

	"enrolcli/internal/dataset"
	"enrolcli/internal/services"
)

// DashboardServiceInterface defines the interface for dashboard operations
type DashboardServiceInterface interface {
	Render(ctx context.Context, sel services.Selection) (*services.DashboardData, error)
	Options(ctx context.Context, level dataset.Level, state string) (*services.Options, error)
	Reload(ctx context.Context) (int, []dataset.LoadWarning, error)
}
