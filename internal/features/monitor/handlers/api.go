package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"apimon/internal/core"
	"apimon/internal/features/monitor/models"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// DefaultWindowHours is used when a metrics request names no window
const DefaultWindowHours = 24

type APIHandler struct {
	logger  *slog.Logger
	service MonitorService
}

func NewAPIHandler(logger *slog.Logger, service MonitorService) *APIHandler {
	return &APIHandler{
		logger:  logger,
		service: service,
	}
}

func (h *APIHandler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, h.service.ListEndpoints())
}

func (h *APIHandler) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var input models.EndpointCreate
	if !decodeJSON(w, r, &input) {
		return
	}

	endpoint, err := h.service.AddEndpoint(r.Context(), input)
	if err != nil {
		h.fail(w, "Failed to add endpoint", err)
		return
	}
	core.WriteJSON(w, http.StatusCreated, endpoint)
}

func (h *APIHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetEndpoint(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get endpoint", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, status)
}

func (h *APIHandler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var update models.EndpointUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	endpoint, err := h.service.UpdateEndpoint(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.fail(w, "Failed to update endpoint", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, endpoint)
}

func (h *APIHandler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RemoveEndpoint(r.Context(), id); err != nil {
		h.fail(w, "Failed to remove endpoint", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// CheckEndpoint runs an immediate check and returns its result
func (h *APIHandler) CheckEndpoint(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CheckNow(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to check endpoint", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}

func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	history, err := h.service.GetHistory(chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, "Failed to get history", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, history)
}

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	hours := float64(DefaultWindowHours)
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			core.HandleError(w, core.NewValidationError("hours must be a number", err))
			return
		}
		hours = parsed
	}

	m, err := h.service.GetMetrics(chi.URLParam(r, "id"), hours)
	if err != nil {
		h.fail(w, "Failed to get metrics", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, m)
}

func (h *APIHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, h.service.GetFleetStats())
}

// ListAlerts returns the alert history, collapsed into groups with ?grouped=true
func (h *APIHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		core.WriteJSON(w, http.StatusOK, h.service.GetGroupedAlerts())
		return
	}
	core.WriteJSON(w, http.StatusOK, h.service.GetAlerts())
}

func (h *APIHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.AcknowledgeAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to acknowledge alert", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, alert)
}

func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, h.service.Status())
}

// fail logs server-side errors and writes the error envelope
func (h *APIHandler) fail(w http.ResponseWriter, msg string, err error) {
	if !core.IsCode(err, core.ErrCodeValidation) && !core.IsCode(err, core.ErrCodeNotFound) {
		h.logger.Error(msg, "error", err)
	}
	core.HandleError(w, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.HandleError(w, core.NewValidationError("invalid request body", err))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(key+" must be an integer", err)
	}
	return v, nil
}
