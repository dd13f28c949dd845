package handler

import (
	"net/http"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/middleware"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
	"github.com/noyon-ahamed/are-you-okay/internal/service"

	"github.com/gorilla/mux"
)

type EarthquakeHandler struct {
	quakes   repository.IEarthquakeRepository
	users    repository.IUserRepository
	monitor  *service.EarthquakeMonitorService
	radiusKm float64
	log      *logger.Logger
}

func NewEarthquakeHandler(
	quakes repository.IEarthquakeRepository,
	users repository.IUserRepository,
	monitor *service.EarthquakeMonitorService,
	advisoryRadiusKm float64,
	log *logger.Logger,
) *EarthquakeHandler {
	return &EarthquakeHandler{
		quakes:   quakes,
		users:    users,
		monitor:  monitor,
		radiusKm: advisoryRadiusKm,
		log:      log,
	}
}

func (h *EarthquakeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/earthquakes/latest", h.Latest).Methods("GET")
	r.HandleFunc("/earthquakes/fetch-now", h.FetchNow).Methods("POST")
}

// Latest lists recent events around the requesting user's stored location.
func (h *EarthquakeHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	center := geo.Point{}
	if user.Location != nil {
		center = *user.Location
	}

	limit := queryInt(r, "limit", 20)

	events, err := h.quakes.ListRecentNear(r.Context(), center, h.radiusKm, limit)
	if err != nil {
		h.log.Error("Failed to list earthquakes: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load earthquake data")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// FetchNow triggers an immediate feed poll outside the schedule.
func (h *EarthquakeHandler) FetchNow(w http.ResponseWriter, r *http.Request) {
	h.monitor.Run(r.Context())
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Feed poll triggered"})
}
