package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/middleware"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/service"

	"github.com/gorilla/mux"
)

type EmergencyHandler struct {
	emergencyService service.IEmergencyService
	sosPerMinute     int
	log              *logger.Logger
}

func NewEmergencyHandler(emergencyService service.IEmergencyService, sosPerMinute int, log *logger.Logger) *EmergencyHandler {
	return &EmergencyHandler{
		emergencyService: emergencyService,
		sosPerMinute:     sosPerMinute,
		log:              log,
	}
}

func (h *EmergencyHandler) RegisterRoutes(r *mux.Router) {
	sos := r.PathPrefix("/sos").Subrouter()
	sos.Use(middleware.RateLimitPerUser(h.sosPerMinute))
	sos.HandleFunc("", h.TriggerSOS).Methods("POST")

	r.HandleFunc("/alerts/history", h.History).Methods("GET")
	r.HandleFunc("/alerts/{id}/resolve", h.Resolve).Methods("PUT")
	r.HandleFunc("/alerts/{id}/escalate", h.Escalate).Methods("PUT")
}

func (h *EmergencyHandler) TriggerSOS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.SOSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	alert, err := h.emergencyService.TriggerSOS(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateAlert):
			respondError(w, http.StatusConflict, "An SOS alert was already sent recently")
		case errors.Is(err, service.ErrMissingLocation):
			respondError(w, http.StatusBadRequest, "A location is required for an SOS alert")
		case errors.Is(err, service.ErrNoContacts):
			respondError(w, http.StatusPreconditionFailed, "Add at least one emergency contact before sending an SOS")
		default:
			h.log.Error("SOS failed for user %s: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to send SOS alert")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"alert":             alert,
		"contacts_notified": len(alert.ContactsNotified),
	})
}

func (h *EmergencyHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	alerts, total, err := h.emergencyService.History(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("Failed to get alert history for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load alert history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  total,
	})
}

func (h *EmergencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	alertID := mux.Vars(r)["id"]

	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.emergencyService.Resolve(r.Context(), alertID, userID, models.ResolvedByUser, req.Note); err != nil {
		respondError(w, http.StatusConflict, "Alert not found or not in a resolvable state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Alert resolved"})
}

type escalateRequest struct {
	Police    bool `json:"police"`
	Ambulance bool `json:"ambulance"`
}

func (h *EmergencyHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	alertID := mux.Vars(r)["id"]

	var req escalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Police && !req.Ambulance {
		respondError(w, http.StatusBadRequest, "Select at least one emergency service")
		return
	}

	if err := h.emergencyService.Escalate(r.Context(), alertID, userID, req.Police, req.Ambulance); err != nil {
		respondError(w, http.StatusConflict, "Alert not found or not in an escalatable state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Alert escalated"})
}
