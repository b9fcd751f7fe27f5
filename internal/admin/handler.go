// Package admin serves read-only projections over the registry for back-office
// views. It never mutates lifecycle state.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lendflow/internal/application"
	"lendflow/internal/audit"
	"lendflow/internal/platform/middleware"
	"lendflow/internal/transport/shared"
	dErrors "lendflow/pkg/domain-errors"
)

// Registry is the read side of the application store.
type Registry interface {
	List(ctx context.Context) ([]*application.Application, error)
}

// AuditLog lists operator audit events per application.
type AuditLog interface {
	List(ctx context.Context, applicationID string) ([]audit.Event, error)
}

type Handler struct {
	logger   *slog.Logger
	registry Registry
	auditLog AuditLog
}

func New(registry Registry, auditLog AuditLog, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, registry: registry, auditLog: auditLog}
}

// Register mounts the admin routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(10 * time.Second))

	router.Get("/applications", h.handleListApplications)
	router.Get("/applications/{appID}/audit", h.handleApplicationAudit)

	r.Mount("/admin", router)
}

type listApplicationsResponse struct {
	Applications []*application.Application `json:"applications"`
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.registry.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listApplicationsResponse{Applications: apps})
}

type auditEventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Command   string    `json:"command,omitempty"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
}

func (h *Handler) handleApplicationAudit(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	if appID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "application id is required"))
		return
	}

	events, err := h.auditLog.List(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	out := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventResponse{
			Timestamp: e.Timestamp,
			Action:    e.Action,
			Command:   e.Command,
			Stage:     e.Stage,
			Detail:    e.Detail,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]auditEventResponse{"events": out})
}
