package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendflow/internal/application"
	"lendflow/internal/platform/middleware"
	"lendflow/internal/transport/shared"
	dErrors "lendflow/pkg/domain-errors"
)

const testAppID = "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"

type stubService struct {
	createFn          func(ctx context.Context, sessionID, applicantName string) (*application.Application, error)
	currentFn         func(ctx context.Context, sessionID string) (*application.Application, error)
	submitKYCFn       func(ctx context.Context, appID, pan, aadhaar, selfieURL string) (*application.Application, error)
	submitIncomeFn    func(ctx context.Context, appID, employerName string, avgNetSalary decimal.Decimal, salaryCreditDates []string) (*application.Application, error)
	acceptOfferFn     func(ctx context.Context, appID, language string) (*application.Application, error)
	appOnlyFn         func(ctx context.Context, appID string) (*application.Application, error)
	recordRepaymentFn func(ctx context.Context, appID string, lateFee decimal.Decimal) (*application.Application, error)
}

func (s *stubService) Create(ctx context.Context, sessionID, applicantName string) (*application.Application, error) {
	return s.createFn(ctx, sessionID, applicantName)
}

func (s *stubService) Current(ctx context.Context, sessionID string) (*application.Application, error) {
	return s.currentFn(ctx, sessionID)
}

func (s *stubService) SubmitKYC(ctx context.Context, appID, pan, aadhaar, selfieURL string) (*application.Application, error) {
	return s.submitKYCFn(ctx, appID, pan, aadhaar, selfieURL)
}

func (s *stubService) SubmitIncome(ctx context.Context, appID, employerName string, avgNetSalary decimal.Decimal, salaryCreditDates []string) (*application.Application, error) {
	return s.submitIncomeFn(ctx, appID, employerName, avgNetSalary, salaryCreditDates)
}

func (s *stubService) ScoreRisk(ctx context.Context, appID string) (*application.Application, error) {
	return s.appOnlyFn(ctx, appID)
}

func (s *stubService) GenerateOffer(ctx context.Context, appID string) (*application.Application, error) {
	return s.appOnlyFn(ctx, appID)
}

func (s *stubService) AcceptOffer(ctx context.Context, appID, language string) (*application.Application, error) {
	return s.acceptOfferFn(ctx, appID, language)
}

func (s *stubService) CompleteVideoKYC(ctx context.Context, appID string) (*application.Application, error) {
	return s.appOnlyFn(ctx, appID)
}

func (s *stubService) Disburse(ctx context.Context, appID string) (*application.Application, error) {
	return s.appOnlyFn(ctx, appID)
}

func (s *stubService) RecordRepayment(ctx context.Context, appID string, lateFee decimal.Decimal) (*application.Application, error) {
	return s.recordRepaymentFn(ctx, appID, lateFee)
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func snapshotAt(stage application.Stage) *application.Application {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	app := application.New("Asha", now)
	app.ID = testAppID
	app.CurrentStage = stage
	return app
}

func TestHandleCreate(t *testing.T) {
	svc := &stubService{
		createFn: func(ctx context.Context, sessionID, applicantName string) (*application.Application, error) {
			assert.Equal(t, "session-1", sessionID)
			assert.Equal(t, "Asha", applicantName)
			return snapshotAt(application.StageApply), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/salary-advance/applications", "session-1", map[string]string{"applicant_name": "Asha"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testAppID, resp["id"])
	assert.Equal(t, "apply", resp["current_stage"])
}

func TestHandleCreate_MissingSession(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(t, router, http.MethodPost, "/salary-advance/applications", "", map[string]string{"applicant_name": "Asha"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(dErrors.CodeValidation), decodeError(t, w).Error)
}

func TestHandleCurrent(t *testing.T) {
	svc := &stubService{
		currentFn: func(ctx context.Context, sessionID string) (*application.Application, error) {
			assert.Equal(t, "session-1", sessionID)
			return snapshotAt(application.StageOffer), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/salary-advance/applications/current", "session-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "offer", resp["current_stage"])
}

func TestHandleCurrent_NotFound(t *testing.T) {
	svc := &stubService{
		currentFn: func(ctx context.Context, sessionID string) (*application.Application, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no application bound to session")
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/salary-advance/applications/current", "session-1", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(dErrors.CodeNotFound), decodeError(t, w).Error)
}

func TestHandleSubmitKYC(t *testing.T) {
	svc := &stubService{
		submitKYCFn: func(ctx context.Context, appID, pan, aadhaar, selfieURL string) (*application.Application, error) {
			assert.Equal(t, testAppID, appID)
			assert.Equal(t, "abcde1234f", pan)
			assert.Equal(t, "123412341234", aadhaar)
			return snapshotAt(application.StageIncomeCheck), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/salary-advance/kyc/submit", "session-1", map[string]string{
		"app_id":  testAppID,
		"pan":     "abcde1234f",
		"aadhaar": "123412341234",
	})

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSubmitKYC_BadAppID(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(t, router, http.MethodPost, "/salary-advance/kyc/submit", "session-1", map[string]string{
		"app_id":  "not-a-uuid",
		"pan":     "ABCDE1234F",
		"aadhaar": "123412341234",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(dErrors.CodeValidation), decodeError(t, w).Error)
}

func TestHandleSubmitIncome(t *testing.T) {
	svc := &stubService{
		submitIncomeFn: func(ctx context.Context, appID, employerName string, avgNetSalary decimal.Decimal, dates []string) (*application.Application, error) {
			assert.Equal(t, "Acme Corp", employerName)
			assert.True(t, avgNetSalary.Equal(decimal.NewFromInt(52000)))
			assert.Equal(t, []string{"2026-01-01", "2026-02-01", "2026-03-01"}, dates)
			return snapshotAt(application.StageRiskScoring), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/salary-advance/income/submit", "session-1", map[string]any{
		"app_id":              testAppID,
		"employer_name":       "Acme Corp",
		"avg_net_salary":      52000,
		"salary_credit_dates": []string{"2026-01-01", "2026-02-01", "2026-03-01"},
	})

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAcceptOffer_DefaultsLanguage(t *testing.T) {
	svc := &stubService{
		acceptOfferFn: func(ctx context.Context, appID, language string) (*application.Application, error) {
			assert.Equal(t, defaultConsentLanguage, language)
			return snapshotAt(application.StageConsent), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/salary-advance/offer/accept", "session-1", map[string]string{"app_id": testAppID})

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAppOnlyRoutes(t *testing.T) {
	paths := []string{
		"/salary-advance/risk/score",
		"/salary-advance/offer/generate",
		"/salary-advance/video-kyc/complete",
		"/salary-advance/disbursement",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			called := false
			svc := &stubService{
				appOnlyFn: func(ctx context.Context, appID string) (*application.Application, error) {
					called = true
					assert.Equal(t, testAppID, appID)
					return snapshotAt(application.StageRiskScoring), nil
				},
			}
			router := newTestRouter(t, svc)

			w := doJSON(t, router, http.MethodPost, path, "session-1", map[string]string{"app_id": testAppID})

			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, called)
		})
	}
}

func TestHandleRecordRepayment(t *testing.T) {
	svc := &stubService{
		recordRepaymentFn: func(ctx context.Context, appID string, lateFee decimal.Decimal) (*application.Application, error) {
			assert.True(t, lateFee.Equal(decimal.NewFromInt(250)))
			return snapshotAt(application.StageClosed), nil
		},
	}
	router := newTestRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/salary-advance/repayment/record", "session-1", map[string]any{
		"app_id":   testAppID,
		"late_fee": 250,
	})

	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeInvalidStageTransition, http.StatusConflict},
		{dErrors.CodePreconditionFailed, http.StatusPreconditionFailed},
		{dErrors.CodeCollaboratorTimeout, http.StatusGatewayTimeout},
		{dErrors.CodeCollaboratorRejected, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			svc := &stubService{
				appOnlyFn: func(ctx context.Context, appID string) (*application.Application, error) {
					return nil, dErrors.New(tc.code, "nope")
				},
			}
			router := newTestRouter(t, svc)

			w := doJSON(t, router, http.MethodPost, "/salary-advance/disbursement", "session-1", map[string]string{"app_id": testAppID})

			require.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tc.code), resp.Error)
			assert.Equal(t, "nope", resp.Detail)
		})
	}
}

func TestInvalidBody(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/salary-advance/kyc/submit", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SessionHeader, "session-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(dErrors.CodeValidation), decodeError(t, w).Error)
}

func TestUnsupportedContentType(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/salary-advance/kyc/submit", bytes.NewBufferString("pan=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.SessionHeader, "session-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
