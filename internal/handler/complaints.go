package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subpool/subpool/internal/lifecycle"
	"github.com/subpool/subpool/internal/middleware"
)

type createComplaintRequest struct {
	GroupID         string `json:"group_id"`
	ProblemType     string `json:"problem_type"`
	DesiredSolution string `json:"desired_solution"`
	Description     string `json:"description"`
}

func (h *Handler) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req createComplaintRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	group, err := h.store.GetGroup(r.Context(), req.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}

	complaint, err := h.complaints.Create(r.Context(), lifecycle.CreateParams{
		UserID:          middleware.GetUserID(r.Context()),
		GroupID:         group.ID,
		AdminID:         group.AdminID,
		ProblemType:     req.ProblemType,
		DesiredSolution: req.DesiredSolution,
		Description:     req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, complaint)
}

func (h *Handler) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	complaint, err := h.complaints.Get(r.Context(), chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

type addMessageRequest struct {
	Role        string   `json:"role"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Visibility  string   `json:"visibility"`
}

func (h *Handler) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var req addMessageRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	msg, err := h.complaints.AddMessage(r.Context(), lifecycle.MessageParams{
		ComplaintID: chi.URLParam(r, "complaintID"),
		AuthorID:    middleware.GetUserID(r.Context()),
		Role:        req.Role,
		Body:        req.Body,
		Attachments: req.Attachments,
		Visibility:  req.Visibility,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.complaints.Messages(r.Context(), chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type addEvidenceRequest struct {
	Description string `json:"description"`
	FileRef     string `json:"file_ref"`
}

func (h *Handler) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	var req addEvidenceRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ev, err := h.complaints.AddEvidence(r.Context(),
		chi.URLParam(r, "complaintID"),
		middleware.GetUserID(r.Context()),
		req.Description,
		req.FileRef,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	evs, err := h.complaints.Evidence(r.Context(), chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

type resolveRequest struct {
	ResolutionType string `json:"resolution_type"`
	Details        string `json:"details"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	complaint, err := h.complaints.Resolve(r.Context(),
		chi.URLParam(r, "complaintID"),
		middleware.GetUserID(r.Context()),
		req.ResolutionType,
		req.Details,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	err := h.complaints.Close(r.Context(),
		chi.URLParam(r, "complaintID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
