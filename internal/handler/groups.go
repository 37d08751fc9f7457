package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subpool/subpool/internal/middleware"
	"github.com/subpool/subpool/internal/models"
)

type createGroupRequest struct {
	Name           string `json:"name"`
	ServiceName    string `json:"service_name"`
	PriceCents     int64  `json:"price_cents"`
	FidelityMonths int    `json:"fidelity_months"`
	MaxMembers     int    `json:"max_members"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	group := &models.Group{
		AdminID:        middleware.GetUserID(r.Context()),
		Name:           req.Name,
		ServiceName:    req.ServiceName,
		PriceCents:     req.PriceCents,
		FidelityMonths: req.FidelityMonths,
		MaxMembers:     req.MaxMembers,
	}
	if err := h.store.CreateGroup(r.Context(), group); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// handleJoinGroup creates a membership slot for the authenticated user. The
// group's fidelity commitment is copied onto the membership so later group
// edits cannot change agreed terms.
func (h *Handler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}

	membership := &models.Membership{
		UserID:         middleware.GetUserID(r.Context()),
		GroupID:        group.ID,
		Status:         models.MembershipActive,
		FidelityMonths: group.FidelityMonths,
	}
	if err := h.store.CreateMembership(r.Context(), membership); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, membership)
}
