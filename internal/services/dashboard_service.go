package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"enrolcli/internal/analytics"
	"enrolcli/internal/dataset"
	"enrolcli/internal/format"
	"enrolcli/internal/infrastructure"
)

// Selection identifies a geographic scope for the dashboard.
type Selection struct {
	Level    dataset.Level `json:"level"`
	State    string        `json:"state,omitempty"`
	District string        `json:"district,omitempty"`
}

// DashboardData is one snapshot of every dashboard view for a selection.
// Each view is an ordered row set ready for a chart or table call; the
// service never renders anything.
type DashboardData struct {
	Selection Selection `json:"selection"`

	// Headline carries the halved grand total (see the aggregator),
	// both raw and pre-rendered with digit grouping.
	GrandTotal          int64  `json:"grand_total"`
	GrandTotalFormatted string `json:"grand_total_formatted"`

	MonthlyTotal      []analytics.MonthlyTotalRow `json:"monthly_total"`
	MonthlyByAge      []analytics.MonthlyAgeRow   `json:"monthly_by_age"`
	SubTerritoryTotal []analytics.TerritoryRow    `json:"sub_territory_total,omitempty"`
	SubTerritoryByAge []analytics.TerritoryAgeRow `json:"sub_territory_by_age,omitempty"`
	CumulativeDaily   []analytics.CumulativeRow   `json:"cumulative_daily"`
	MonthlyShare      []analytics.ShareRow        `json:"monthly_share"`

	// PincodeTable is only populated at District level; it is empty when
	// the dataset predates pincode reporting.
	PincodeTable []analytics.PincodeRow `json:"pincode_table,omitempty"`
}

// DashboardService orchestrates the load → filter → aggregate pipeline.
type DashboardService struct {
	store      *dataset.Store
	aggregator *analytics.Aggregator
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *infrastructure.BusinessMetrics
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(store *dataset.Store, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		store:      store,
		aggregator: analytics.NewAggregator(logger),
		logger:     logger.With(slog.String("component", "dashboard_service")),
		tracer:     otel.Tracer("enrolcli.services"),
	}
}

// SetInstrumentation attaches the application tracer and instruments.
// Without it the service falls back to the globally registered tracer
// and records no counters.
func (s *DashboardService) SetInstrumentation(tracer trace.Tracer, m *infrastructure.BusinessMetrics) {
	if tracer != nil {
		s.tracer = tracer
	}
	s.metrics = m
}

// Render computes the full dashboard snapshot for a selection.
func (s *DashboardService) Render(ctx context.Context, sel Selection) (data *DashboardData, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.render", trace.WithAttributes(
		attribute.String("level", string(sel.Level)),
		attribute.String("state", sel.State),
		attribute.String("district", sel.District),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	table, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	region, err := dataset.Select(table, sel.Level, sel.State, sel.District)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "rendering dashboard",
		slog.String("level", string(sel.Level)),
		slog.String("state", sel.State),
		slog.String("district", sel.District),
		slog.Int("rows", len(region.Rows)))

	data = &DashboardData{Selection: sel}

	if data.GrandTotal, err = s.aggregator.GrandTotal(region); err != nil {
		return nil, err
	}
	data.GrandTotalFormatted = format.GroupDigits(data.GrandTotal)

	if data.MonthlyTotal, err = s.aggregator.MonthlyTotal(region); err != nil {
		return nil, fmt.Errorf("monthly total view: %w", err)
	}
	if data.MonthlyByAge, err = s.aggregator.MonthlyByAge(region); err != nil {
		return nil, fmt.Errorf("monthly by age view: %w", err)
	}
	if data.CumulativeDaily, err = s.aggregator.CumulativeDaily(region); err != nil {
		return nil, fmt.Errorf("cumulative daily view: %w", err)
	}
	if data.MonthlyShare, err = s.aggregator.MonthlyShare(region); err != nil {
		return nil, fmt.Errorf("monthly share view: %w", err)
	}

	// District level replaces the sub-territory ranking with the
	// pincode table; high cardinality makes a bar chart useless there.
	if sel.Level == dataset.LevelDistrict {
		if data.PincodeTable, err = s.aggregator.PincodeTable(region); err != nil {
			return nil, fmt.Errorf("pincode table: %w", err)
		}
	} else {
		if data.SubTerritoryTotal, err = s.aggregator.SubTerritoryTotal(region, sel.Level); err != nil {
			return nil, fmt.Errorf("sub-territory total view: %w", err)
		}
		if data.SubTerritoryByAge, err = s.aggregator.SubTerritoryByAge(region, sel.Level); err != nil {
			return nil, fmt.Errorf("sub-territory by age view: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.DashboardRenders.Add(ctx, 1, metric.WithAttributes(
			attribute.String("level", string(sel.Level))))
	}

	return data, nil
}

// Options lists the available values for the selection inputs.
type Options struct {
	Levels    []string `json:"levels"`
	States    []string `json:"states,omitempty"`
	Districts []string `json:"districts,omitempty"`
}

// Options returns the selection option lists. For State and District
// levels the state list is always included; the district list needs a
// state to scope it.
func (s *DashboardService) Options(ctx context.Context, level dataset.Level, state string) (*Options, error) {
	opts := &Options{
		Levels: []string{
			string(dataset.LevelNational),
			string(dataset.LevelState),
			string(dataset.LevelDistrict),
		},
	}

	if level == dataset.LevelNational {
		return opts, nil
	}

	table, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if opts.States, err = dataset.States(table); err != nil {
		return nil, err
	}

	if level == dataset.LevelDistrict && state != "" {
		if opts.Districts, err = dataset.Districts(table, state); err != nil {
			return nil, err
		}
	}

	return opts, nil
}

// Reload clears the cached table and loads it again. It returns the
// number of rows and the per-file warnings of the fresh load.
func (s *DashboardService) Reload(ctx context.Context) (int, []dataset.LoadWarning, error) {
	s.store.Reset()
	table, err := s.store.Load(ctx)
	if err != nil {
		return 0, nil, err
	}
	return len(table.Rows), s.store.Warnings(), nil
}

// Store exposes the dataset store, used by health checks and exports.
func (s *DashboardService) Store() *dataset.Store {
	return s.store
}
