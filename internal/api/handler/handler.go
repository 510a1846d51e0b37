package handler

import (
	"fanlink/backend/internal/auth"
	"fanlink/backend/internal/realtime"
	"fanlink/backend/internal/storage"
)

// Handler wires the HTTP surface to the realtime components.
type Handler struct {
	Gateway  *realtime.Gateway
	Presence *realtime.PresenceRegistry
	Auth     *auth.Service
	Storage  storage.Storage
}

func NewHandler(gw *realtime.Gateway, presence *realtime.PresenceRegistry, a *auth.Service, s storage.Storage) *Handler {
	return &Handler{Gateway: gw, Presence: presence, Auth: a, Storage: s}
}
