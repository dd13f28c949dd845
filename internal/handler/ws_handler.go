package handler

import (
	"net/http"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/middleware"
	"github.com/noyon-ahamed/are-you-okay/internal/websocket"

	"github.com/gorilla/mux"
)

type WSHandler struct {
	hub *websocket.Hub
	log *logger.Logger
}

func NewWSHandler(hub *websocket.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log}
}

func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.Serve).Methods("GET")
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	websocket.ServeWs(h.hub, userID, w, r, h.log)
}
