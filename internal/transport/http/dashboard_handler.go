// Package http exposes the dashboard over a JSON API with RFC 7807
// error responses.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"enrolcli/internal/dataset"
	apierrors "enrolcli/internal/errors"
	"enrolcli/internal/exporter"
	"enrolcli/internal/infrastructure"
	"enrolcli/internal/middleware"
	"enrolcli/internal/services"
	ws "enrolcli/internal/websocket"
)

// DashboardHandler handles dashboard HTTP requests with RFC 7807 compliance
type DashboardHandler struct {
	service      DashboardServiceInterface
	hub          *ws.Hub
	csvWriter    *exporter.CSVWriter
	excelWriter  *exporter.ExcelWriter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewDashboardHandler creates a new dashboard handler with RFC 7807 error handling
func NewDashboardHandler(
	service DashboardServiceInterface,
	hub *ws.Hub,
	csvWriter *exporter.CSVWriter,
	excelWriter *exporter.ExcelWriter,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		hub:          hub,
		csvWriter:    csvWriter,
		excelWriter:  excelWriter,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the dashboard routes with proper Chi patterns
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetDashboard)
	r.Get("/options", h.GetOptions)
	r.Get("/export", h.Export)

	return r
}

// dashboardRequest carries the validated selection query parameters.
type dashboardRequest struct {
	Level    string `validate:"required,oneof=national state district"`
	State    string `validate:"max=100"`
	District string `validate:"max=100"`
	Format   string `validate:"omitempty,oneof=csv xlsx"`
}

func (h *DashboardHandler) parseRequest(r *http.Request) (*dashboardRequest, *apierrors.APIError) {
	req := &dashboardRequest{
		Level:    r.URL.Query().Get("level"),
		State:    r.URL.Query().Get("state"),
		District: r.URL.Query().Get("district"),
		Format:   r.URL.Query().Get("format"),
	}
	if req.Level == "" {
		req.Level = string(dataset.LevelNational)
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			return nil, apierrors.ErrValidation(field, fmt.Sprintf("Invalid value for %s", field))
		}
		return nil, apierrors.ErrValidation("query", "Invalid query parameters")
	}

	return req, nil
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	level, err := dataset.ParseLevel(req.Level)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("level", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "rendering dashboard",
		slog.String("request_id", reqID),
		slog.String("level", string(level)),
		slog.String("state", req.State),
		slog.String("district", req.District),
	)

	sel := services.Selection{Level: level, State: req.State, District: req.District}
	data, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.handleRenderError(w, r, sel, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// handleRenderError maps service sentinels to API responses. An empty
// selection is not a failure: the dashboard shows a friendly notice, so
// the API answers 200 with an empty marker.
func (h *DashboardHandler) handleRenderError(w http.ResponseWriter, r *http.Request, sel services.Selection, err error) {
	switch {
	case errors.Is(err, services.ErrEmptySelection):
		render.JSON(w, r, map[string]interface{}{
			"status":    "success",
			"empty":     true,
			"selection": sel,
			"message":   "No enrolment records match the selection",
		})

	case errors.Is(err, services.ErrSelectionRequired):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest,
			"SELECTION_REQUIRED",
			err.Error(),
		))

	case errors.Is(err, services.ErrNoDataFound):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusInternalServerError,
			"NO_DATA_FOUND",
			"No enrolment data files could be loaded",
		))

	case errors.Is(err, services.ErrMissingColumns):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusInternalServerError,
			"MISSING_COLUMNS",
			"Dataset carries none of the expected age columns",
		))

	default:
		h.logger.ErrorContext(r.Context(), "dashboard render failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		h.errorHandler.HandleError(w, r, err)
	}
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	level, err := dataset.ParseLevel(req.Level)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("level", err.Error()))
		return
	}

	opts, err := h.service.Options(r.Context(), level, req.State)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoOptionsAvailable):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_OPTIONS_AVAILABLE",
				err.Error(),
			))
		case errors.Is(err, services.ErrNoDataFound):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusInternalServerError,
				"NO_DATA_FOUND",
				"No enrolment data files could be loaded",
			))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   opts,
	})
}

// Export handles GET /api/dashboard/export
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}

	level, err := dataset.ParseLevel(req.Level)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("level", err.Error()))
		return
	}

	sel := services.Selection{Level: level, State: req.State, District: req.District}
	data, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.handleRenderError(w, r, sel, err)
		return
	}

	sheets := exporter.BuildSheets(data)
	filename := fmt.Sprintf("enrolment-dashboard-%s.%s", time.Now().Format("2006-01-02"), req.Format)

	h.logger.InfoContext(r.Context(), "exporting dashboard",
		slog.String("format", req.Format),
		slog.String("filename", filename),
		slog.Int("sheet_count", len(sheets)),
	)

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	switch req.Format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = h.excelWriter.WriteDashboard(w, sheets)
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = h.csvWriter.WriteDashboard(w, sheets)
	}
	if err != nil {
		// Headers are already sent; the best we can do is log.
		h.logger.ErrorContext(r.Context(), "export write failed",
			slog.String("error", err.Error()),
			slog.String("format", req.Format),
		)
	}
}

// Reload handles POST /api/dataset/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", reqID))

	rows, warnings, err := h.service.Reload(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoDataFound) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusInternalServerError,
				"NO_DATA_FOUND",
				"No enrolment data files could be loaded",
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastDatasetReloaded(rows, len(warnings), infrastructure.GetTraceID(r.Context()))
	}

	warningList := make([]map[string]string, 0, len(warnings))
	for _, warning := range warnings {
		warningList = append(warningList, map[string]string{
			"file":  warning.File,
			"error": warning.Err.Error(),
		})
	}

	render.JSON(w, r, map[string]interface{}{
		"status":   "success",
		"rows":     rows,
		"warnings": warningList,
	})
}
