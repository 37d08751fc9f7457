package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleEvaluateCancellation(w http.ResponseWriter, r *http.Request) {
	req, err := h.cancellations.Evaluate(r.Context(), chi.URLParam(r, "membershipID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type requestCancellationRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (h *Handler) handleRequestCancellation(w http.ResponseWriter, r *http.Request) {
	var req requestCancellationRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	membership, err := h.cancellations.RequestCancellation(r.Context(),
		chi.URLParam(r, "membershipID"),
		req.Reason,
		req.Description,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, membership)
}

// handleCompleteCancellation is the settlement callback: once penalty and
// refund are settled the membership moves to cancelled.
func (h *Handler) handleCompleteCancellation(w http.ResponseWriter, r *http.Request) {
	membership, err := h.cancellations.CompleteCancellation(r.Context(), chi.URLParam(r, "membershipID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}
