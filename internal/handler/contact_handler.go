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

type ContactHandler struct {
	contactService service.IContactService
	log            *logger.Logger
}

func NewContactHandler(contactService service.IContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		log:            log,
	}
}

func (h *ContactHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/contacts", h.Add).Methods("POST")
	r.HandleFunc("/contacts", h.List).Methods("GET")
	r.HandleFunc("/contacts/{id}", h.Update).Methods("PUT")
	r.HandleFunc("/contacts/{id}", h.Remove).Methods("DELETE")
	r.HandleFunc("/contacts/{id}/verify", h.SendVerification).Methods("POST")
	r.HandleFunc("/contacts/{id}/verify", h.Verify).Methods("PUT")
}

func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "Contact name and phone are required")
		return
	}

	contact, err := h.contactService.Add(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrContactLimit) {
			respondError(w, http.StatusForbidden, "Contact limit reached for your plan")
			return
		}
		h.log.Error("Failed to add contact for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to add contact")
		return
	}

	respondJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	contacts, err := h.contactService.List(r.Context(), userID)
	if err != nil {
		h.log.Error("Failed to list contacts for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load contacts")
		return
	}

	respondJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	contactID := mux.Vars(r)["id"]

	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.contactService.Update(r.Context(), userID, contactID, &req)
	if err != nil {
		h.log.Error("Failed to update contact %s: %v", contactID, err)
		respondError(w, http.StatusNotFound, "Contact not found")
		return
	}

	respondJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	contactID := mux.Vars(r)["id"]

	if err := h.contactService.Remove(r.Context(), userID, contactID); err != nil {
		respondError(w, http.StatusNotFound, "Contact not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Contact removed"})
}

func (h *ContactHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	contactID := mux.Vars(r)["id"]

	if err := h.contactService.SendVerification(r.Context(), userID, contactID); err != nil {
		h.log.Error("Failed to send verification for contact %s: %v", contactID, err)
		respondError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *ContactHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	contactID := mux.Vars(r)["id"]

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.contactService.Verify(r.Context(), userID, contactID, req.Code); err != nil {
		if errors.Is(err, service.ErrInvalidOTP) {
			respondError(w, http.StatusUnprocessableEntity, "Invalid verification code")
			return
		}
		respondError(w, http.StatusNotFound, "Contact not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Contact verified"})
}
