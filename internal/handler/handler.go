// Package handler is the thin HTTP layer over the lifecycle engine. It
// decodes requests, delegates to services and maps domain errors to status
// codes; no business logic lives here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subpool/subpool/internal/auth"
	"github.com/subpool/subpool/internal/lifecycle"
	"github.com/subpool/subpool/internal/middleware"
	"github.com/subpool/subpool/internal/storage"
)

// Handler holds the services the HTTP surface delegates to.
type Handler struct {
	authenticator *auth.PasswordAuthenticator
	jwtManager    *auth.JWTManager
	complaints    *lifecycle.ComplaintLifecycle
	cancellations *lifecycle.CancellationPolicyEvaluator
	store         storage.Store
}

// New creates the HTTP handler.
func New(
	authenticator *auth.PasswordAuthenticator,
	jwtManager *auth.JWTManager,
	complaints *lifecycle.ComplaintLifecycle,
	cancellations *lifecycle.CancellationPolicyEvaluator,
	store storage.Store,
) *Handler {
	return &Handler{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		complaints:    complaints,
		cancellations: cancellations,
		store:         store,
	}
}

// Router wires all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)

	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtManager))

		r.Post("/groups", h.handleCreateGroup)
		r.Get("/groups/{groupID}", h.handleGetGroup)
		r.Post("/groups/{groupID}/join", h.handleJoinGroup)

		r.Post("/complaints", h.handleCreateComplaint)
		r.Get("/complaints/{complaintID}", h.handleGetComplaint)
		r.Post("/complaints/{complaintID}/messages", h.handleAddMessage)
		r.Get("/complaints/{complaintID}/messages", h.handleListMessages)
		r.Post("/complaints/{complaintID}/evidence", h.handleAddEvidence)
		r.Get("/complaints/{complaintID}/evidence", h.handleListEvidence)
		r.Post("/complaints/{complaintID}/resolve", h.handleResolve)
		r.Post("/complaints/{complaintID}/close", h.handleClose)

		r.Get("/memberships/{membershipID}/cancellation", h.handleEvaluateCancellation)
		r.Post("/memberships/{membershipID}/cancellation", h.handleRequestCancellation)
		r.Post("/memberships/{membershipID}/cancellation/complete", h.handleCompleteCancellation)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes. Blocked cancellations
// surface their specific reason so callers can present distinct guidance.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrComplaintNotFound),
		errors.Is(err, lifecycle.ErrMembershipNotFound),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrDuplicateOpenComplaint),
		errors.Is(err, lifecycle.ErrAlreadyCancelled),
		errors.Is(err, lifecycle.ErrOpenComplaintExists),
		errors.Is(err, lifecycle.ErrFidelityLocked),
		errors.Is(err, lifecycle.ErrComplaintClosed),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrEmailExists):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
