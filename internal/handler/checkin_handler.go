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

type CheckInHandler struct {
	checkInService service.ICheckInService
	log            *logger.Logger
}

func NewCheckInHandler(checkInService service.ICheckInService, log *logger.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkInService: checkInService,
		log:            log,
	}
}

func (h *CheckInHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/checkins", h.CheckIn).Methods("POST")
	r.HandleFunc("/checkins", h.History).Methods("GET")
}

func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checkIn, streak, err := h.checkInService.CheckIn(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyCheckedIn) {
			respondError(w, http.StatusConflict, "You have already checked in today")
			return
		}
		h.log.Error("Check-in failed for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Check-in failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"check_in": checkIn,
		"streak":   streak,
	})
}

func (h *CheckInHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	limit := queryInt(r, "limit", 30)

	checkIns, err := h.checkInService.History(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("Failed to get check-in history for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load check-in history")
		return
	}

	respondJSON(w, http.StatusOK, checkIns)
}
