package handlers

import (
	"net/http"

	"github.com/Shani815/vctalenthub-sub000/application/services"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"go.uber.org/zap"
)

// QuotaHandler reports and checks the caller's allowances
type QuotaHandler struct {
	connections *services.ConnectionService
	quota       *services.QuotaService
	errors      *pkgerrors.ErrorHandler
	logger      *zap.Logger
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(connections *services.ConnectionService, quota *services.QuotaService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *QuotaHandler {
	return &QuotaHandler{
		connections: connections,
		quota:       quota,
		errors:      errs,
		logger:      logger,
	}
}

// QuotaResponse is the body of GET /quota
type QuotaResponse struct {
	Connections  *services.ConnectionQuota  `json:"connections"`
	Applications *services.ApplicationQuota `json:"applications"`
}

// ApplicationCheckResponse is the body of a successful POST /applications/check
type ApplicationCheckResponse struct {
	Allowed   bool `json:"allowed"`
	Unlimited bool `json:"unlimited,omitempty"`
	Remaining *int `json:"remaining,omitempty"`
}

// GetQuota handles GET /quota
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	a, err := h.connections.Actor(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	conns, err := h.quota.ConnectionQuota(r.Context(), a)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	apps, err := h.quota.ApplicationQuota(r.Context(), a)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, QuotaResponse{Connections: conns, Applications: apps})
}

// CheckApplication handles POST /applications/check
func (h *QuotaHandler) CheckApplication(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	a, err := h.connections.Actor(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	remaining, err := h.quota.CheckApplication(r.Context(), a)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	resp := ApplicationCheckResponse{Allowed: true}
	if remaining < 0 {
		resp.Unlimited = true
	} else {
		resp.Remaining = &remaining
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}
