// Package handler exposes the lifecycle command surface over HTTP. It is a
// thin layer: decode, delegate to the engine, write the full snapshot.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lendflow/internal/application"
	"lendflow/internal/platform/middleware"
	"lendflow/internal/transport/shared"
	dErrors "lendflow/pkg/domain-errors"
	"lendflow/pkg/requestcontext"
)

// defaultConsentLanguage is the bilingual declaration shown to applicants.
const defaultConsentLanguage = "en+hi"

// Service is the engine interface the handler delegates to.
type Service interface {
	Create(ctx context.Context, sessionID, applicantName string) (*application.Application, error)
	Current(ctx context.Context, sessionID string) (*application.Application, error)
	SubmitKYC(ctx context.Context, appID, pan, aadhaar, selfieURL string) (*application.Application, error)
	SubmitIncome(ctx context.Context, appID, employerName string, avgNetSalary decimal.Decimal, salaryCreditDates []string) (*application.Application, error)
	ScoreRisk(ctx context.Context, appID string) (*application.Application, error)
	GenerateOffer(ctx context.Context, appID string) (*application.Application, error)
	AcceptOffer(ctx context.Context, appID, language string) (*application.Application, error)
	CompleteVideoKYC(ctx context.Context, appID string) (*application.Application, error)
	Disburse(ctx context.Context, appID string) (*application.Application, error)
	RecordRepayment(ctx context.Context, appID string, lateFee decimal.Decimal) (*application.Application, error)
}

// Handler handles the salary-advance lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a lifecycle Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the lifecycle routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Session)

	router.Post("/applications", h.handleCreate)
	router.Get("/applications/current", h.handleCurrent)
	router.Post("/kyc/submit", h.handleSubmitKYC)
	router.Post("/income/submit", h.handleSubmitIncome)
	router.Post("/risk/score", h.handleScoreRisk)
	router.Post("/offer/generate", h.handleGenerateOffer)
	router.Post("/offer/accept", h.handleAcceptOffer)
	router.Post("/video-kyc/complete", h.handleCompleteVideoKYC)
	router.Post("/disbursement", h.handleDisburse)
	router.Post("/repayment/record", h.handleRecordRepayment)

	r.Mount("/salary-advance", router)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := sessionFrom(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req createApplicationRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.service.Create(ctx, sessionID, req.ApplicantName)
	if err != nil {
		h.writeServiceError(ctx, w, "create application", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := sessionFrom(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.service.Current(ctx, sessionID)
	if err != nil {
		h.writeServiceError(ctx, w, "get current application", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitKYCRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAppID(req.AppID); err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.service.SubmitKYC(ctx, req.AppID, req.PAN, req.Aadhaar, req.SelfieURL)
	if err != nil {
		h.writeServiceError(ctx, w, "submit kyc", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleSubmitIncome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitIncomeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAppID(req.AppID); err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.service.SubmitIncome(ctx, req.AppID, req.EmployerName, req.AvgNetSalary, req.SalaryCreditDates)
	if err != nil {
		h.writeServiceError(ctx, w, "submit income", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleScoreRisk(w http.ResponseWriter, r *http.Request) {
	h.handleAppOnly(w, r, "score risk", h.service.ScoreRisk)
}

func (h *Handler) handleGenerateOffer(w http.ResponseWriter, r *http.Request) {
	h.handleAppOnly(w, r, "generate offer", h.service.GenerateOffer)
}

func (h *Handler) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req acceptOfferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAppID(req.AppID); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Language == "" {
		req.Language = defaultConsentLanguage
	}

	app, err := h.service.AcceptOffer(ctx, req.AppID, req.Language)
	if err != nil {
		h.writeServiceError(ctx, w, "accept offer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleCompleteVideoKYC(w http.ResponseWriter, r *http.Request) {
	h.handleAppOnly(w, r, "complete video kyc", h.service.CompleteVideoKYC)
}

func (h *Handler) handleDisburse(w http.ResponseWriter, r *http.Request) {
	h.handleAppOnly(w, r, "disburse", h.service.Disburse)
}

func (h *Handler) handleRecordRepayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req recordRepaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAppID(req.AppID); err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.service.RecordRepayment(ctx, req.AppID, req.LateFee)
	if err != nil {
		h.writeServiceError(ctx, w, "record repayment", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

// handleAppOnly serves the commands whose only input is the app id.
func (h *Handler) handleAppOnly(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, appID string) (*application.Application, error)) {
	ctx := r.Context()
	var req appOnlyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAppID(req.AppID); err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := fn(ctx, req.AppID)
	if err != nil {
		h.writeServiceError(ctx, w, action, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "command failed",
			"action", action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, "command rejected",
			"action", action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}

func sessionFrom(ctx context.Context) (string, error) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		return "", dErrors.New(dErrors.CodeValidation, "missing "+middleware.SessionHeader+" header")
	}
	return sessionID, nil
}

func validateAppID(appID string) error {
	if appID == "" {
		return dErrors.New(dErrors.CodeValidation, "app_id is required")
	}
	if !govalidator.IsUUID(appID) {
		return dErrors.New(dErrors.CodeValidation, "app_id must be a UUID")
	}
	return nil
}
