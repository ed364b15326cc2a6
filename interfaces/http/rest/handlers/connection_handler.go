package handlers

import (
	"net/http"

	"github.com/Shani815/vctalenthub-sub000/application/services"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ConnectionHandler handles connection ledger requests
type ConnectionHandler struct {
	connections *services.ConnectionService
	errors      *pkgerrors.ErrorHandler
	logger      *zap.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connections *services.ConnectionService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		errors:      errs,
		logger:      logger,
	}
}

// RespondConnectionRequest is the body of POST /connections/{id}/respond
type RespondConnectionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=connected rejected"`
}

// RequestConnection handles POST /connections/{id} where id is the target
func (h *ConnectionHandler) RequestConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.connections.RequestConnection(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, edge)
}

// RespondToConnection handles POST /connections/{id}/respond
func (h *ConnectionHandler) RespondToConnection(w http.ResponseWriter, r *http.Request) {
	var req RespondConnectionRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	decision, err := connection.ParseDecision(req.Decision)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.connections.RespondToConnection(r.Context(), chi.URLParam(r, "id"), userID, decision)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, edge)
}

// GetStatus handles GET /connections/status/{otherId}
func (h *ConnectionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status, err := h.connections.GetStatus(r.Context(), userID, chi.URLParam(r, "otherId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, status)
}

// ListNeighbors handles GET /connections/{id}/neighbors
func (h *ConnectionHandler) ListNeighbors(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	neighbors, err := h.connections.ListNeighbors(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if neighbors == nil {
		neighbors = []services.Neighbor{}
	}

	respondJSON(w, h.logger, http.StatusOK, neighbors)
}

// ListPending handles GET /connections/pending
func (h *ConnectionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	incoming, err := h.connections.ListIncoming(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if incoming == nil {
		incoming = []services.IncomingRequest{}
	}

	respondJSON(w, h.logger, http.StatusOK, incoming)
}
