package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"damage-intake/api/services"
	"damage-intake/pkg/damage"
	"damage-intake/pkg/observability"
	"damage-intake/pkg/ontology"
	"damage-intake/pkg/shared"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxReportBytes bounds a submitted report. Real forms are a few KB.
const maxReportBytes = 64 * 1024

// HealthCheck is one dependency checked by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	reports *services.ReportService
	checks  []HealthCheck
	logger  zerolog.Logger
}

func NewHandlers(reports *services.ReportService, logger zerolog.Logger, checks ...HealthCheck) *Handlers {
	return &Handlers{
		reports: reports,
		checks:  checks,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// SubmitReport accepts wire text, stores it and returns the stored report.
func (h *Handlers) SubmitReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		sendError(w, status, shared.ErrCodeBadRequest, err.Error())
		return
	}

	record, err := damage.Parse(string(body))
	if err != nil {
		code, ok := damage.ErrorCode(err)
		if !ok {
			sendError(w, http.StatusInternalServerError, shared.ErrCodeInternal, err.Error())
			return
		}
		observability.RecordCodecFailure(code)
		observability.RecordReport(shared.SourceHTTP, observability.OutcomeRejected)
		h.reports.PublishRejected(ontology.Rejection{Source: shared.SourceHTTP, Code: code, Message: err.Error()})
		sendError(w, http.StatusUnprocessableEntity, code, err.Error())
		return
	}

	id, err := h.reports.Save(r.Context(), record)
	if err != nil {
		observability.RecordReport(shared.SourceHTTP, observability.OutcomeFailed)
		h.logger.Error().Err(err).Msg("failed to store submitted report")
		sendError(w, http.StatusInternalServerError, shared.ErrCodeInternal, "failed to store report")
		return
	}

	observability.RecordReport(shared.SourceHTTP, observability.OutcomeAccepted)
	sendSuccess(w, http.StatusCreated, ontology.Report{ID: id, Record: record})
}

func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ontology.ListReportsQuery{
		OpCall: q.Get("op_call"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}

	reports, err := h.reports.List(r.Context(), query.Filter())
	if err != nil {
		if errors.Is(err, services.ErrInvalidFilter) {
			sendError(w, http.StatusBadRequest, shared.ErrCodeBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("failed to list reports")
		sendError(w, http.StatusInternalServerError, shared.ErrCodeInternal, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []ontology.Report{}
	}

	sendSuccess(w, http.StatusOK, reports)
}

// GetReport returns one report as JSON, or as wire text with ?format=wire.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		sendError(w, http.StatusBadRequest, shared.ErrCodeBadRequest, "report id must be a positive integer")
		return
	}

	report, err := h.reports.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			sendError(w, http.StatusNotFound, shared.ErrCodeNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Int64("id", id).Msg("failed to load report")
		sendError(w, http.StatusInternalServerError, shared.ErrCodeInternal, "failed to load report")
		return
	}

	if r.URL.Query().Get("format") == "wire" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, damage.Render(report.Record))
		return
	}

	sendSuccess(w, http.StatusOK, report)
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := shared.HealthStatus{
		Status:    shared.StatusHealthy,
		Service:   shared.ServiceName,
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]string),
	}

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			health.Status = shared.StatusDegraded
			health.Details[c.Name] = "unhealthy: " + err.Error()
		} else {
			health.Details[c.Name] = shared.StatusHealthy
		}
	}

	statusCode := http.StatusOK
	if health.Status != shared.StatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	sendSuccess(w, statusCode, health)
}

// Helper functions
func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: true,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes sets up all API routes
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/reports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.SubmitReport(w, r)
		case http.MethodGet:
			h.ListReports(w, r)
		default:
			sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		h.GetReport(w, r)
	})
}
