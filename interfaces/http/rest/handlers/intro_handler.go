package handlers

import (
	"net/http"

	"github.com/Shani815/vctalenthub-sub000/application/services"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IntroHandler handles introduction requests
type IntroHandler struct {
	intros *services.IntroService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewIntroHandler creates a new intro handler
func NewIntroHandler(intros *services.IntroService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *IntroHandler {
	return &IntroHandler{
		intros: intros,
		errors: errs,
		logger: logger,
	}
}

// RespondIntroRequest is the body of PUT /intros/{id}/respond
type RespondIntroRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
}

// PendingIntroResponse is one entry of GET /intros/pending
type PendingIntroResponse struct {
	*intro.Request
	Requester actor.Summary `json:"requester"`
}

// RequestIntro handles POST /intros/{id}. A new row answers 201; an
// existing pending or accepted row answers 200 with that row.
func (h *IntroHandler) RequestIntro(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	req, created, err := h.intros.RequestIntro(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, h.logger, status, req)
}

// ListPending handles GET /intros/pending
func (h *IntroHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	pending, err := h.intros.ListPending(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out := make([]PendingIntroResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, PendingIntroResponse{Request: p.Request, Requester: p.Requester})
	}
	respondJSON(w, h.logger, http.StatusOK, out)
}

// RespondToIntro handles PUT /intros/{id}/respond
func (h *IntroHandler) RespondToIntro(w http.ResponseWriter, r *http.Request) {
	var body RespondIntroRequest
	if err := decodeBody(r, &body); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	decision, err := intro.ParseDecision(body.Decision)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	req, err := h.intros.RespondToIntro(r.Context(), chi.URLParam(r, "id"), userID, decision)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, req)
}
