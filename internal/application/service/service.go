// Package service implements the stage transition engine: it validates and
// executes each lifecycle command against the aggregate's current stage,
// invokes the relevant collaborator, merges the result, advances the stage,
// and appends one timeline entry. Failed commands are atomic no-ops.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"lendflow/internal/application"
	"lendflow/internal/application/metrics"
	"lendflow/internal/audit"
	"lendflow/internal/collaborators"
	"lendflow/internal/session"
	dErrors "lendflow/pkg/domain-errors"
	"lendflow/pkg/platform/sentinel"
	"lendflow/pkg/requestcontext"
)

// processingFeeRate is the fixed fee fraction of the offer amount. The fee is
// always recomputed here, never accepted from the pricer or the caller.
var processingFeeRate = decimal.NewFromFloat(0.02)

// Collaborators bundles the external ports the engine calls. All calls are
// synchronous and bounded by the caller-supplied context deadline; the engine
// never retries.
type Collaborators struct {
	KYC    collaborators.KycVerifier
	Income collaborators.IncomeAnalyzer
	Risk   collaborators.RiskScorer
	Pricer collaborators.OfferPricer
	Video  collaborators.VideoKycProvider
	Rail   collaborators.DisbursementRail
	Ledger collaborators.RepaymentLedger
}

// AuditPublisher records lifecycle events for operators.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the stage transition engine.
type Service struct {
	store    application.Store
	sessions session.Store
	collab   Collaborators

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher

	locks *keyedMutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

// New constructs a Service.
func New(store application.Store, sessions session.Store, collab Collaborators, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sessions: sessions,
		collab:   collab,
		logger:   slog.Default(),
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new application at the apply stage with an empty timeline
// and binds it as the session's current application. The binding is written
// under the per-session lock so concurrent creates cannot leave a stale
// pointer.
func (s *Service) Create(ctx context.Context, sessionID, applicantName string) (*application.Application, error) {
	if applicantName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant name is required")
	}

	unlock := s.locks.lock("session:" + sessionID)
	defer unlock()

	app := application.New(applicantName, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}
	if err := s.sessions.Bind(ctx, sessionID, app.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind session")
	}

	s.metrics.IncrementCreated()
	s.emitAudit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        audit.ActionApplicationCreated,
		Stage:         string(app.CurrentStage),
	})
	s.logger.InfoContext(ctx, "application created",
		"app_id", app.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return app, nil
}

// Current returns the session's current application.
func (s *Service) Current(ctx context.Context, sessionID string) (*application.Application, error) {
	unlock := s.locks.lock("session:" + sessionID)
	defer unlock()

	appID, err := s.sessions.Current(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no application for this session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve session")
	}
	return s.Get(ctx, appID)
}

// Get returns one application snapshot.
func (s *Service) Get(ctx context.Context, appID string) (*application.Application, error) {
	app, err := s.store.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// List enumerates all applications in creation order (admin, read-only).
func (s *Service) List(ctx context.Context) ([]*application.Application, error) {
	apps, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// SubmitKYC validates PAN/Aadhaar format, invokes the KYC verifier, and
// records the KYC sub-record.
func (s *Service) SubmitKYC(ctx context.Context, appID, pan, aadhaar, selfieURL string) (*application.Application, error) {
	pan, err := normalizePAN(pan)
	if err != nil {
		return nil, err
	}
	aadhaar, err = validateAadhaar(aadhaar)
	if err != nil {
		return nil, err
	}

	return s.execute(ctx, application.CommandSubmitKYC, appID, nil, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		result, err := s.collab.KYC.Verify(ctx, pan, aadhaar, selfieURL)
		if err != nil {
			return "", nil, collaboratorErr("kyc verification", err)
		}
		if !result.Approved {
			return "", nil, dErrors.New(dErrors.CodeCollaboratorRejected, "kyc rejected: "+result.Reason)
		}

		app.KYC = &application.KYCRecord{
			PAN:             pan,
			PANVerified:     true,
			Aadhaar:         aadhaar,
			AadhaarVerified: true,
			SelfieURL:       selfieURL,
			SelfieCaptured:  selfieURL != "",
			FaceMatchScore:  result.FaceMatchScore,
			FaceMatchPassed: result.FaceMatchPassed,
		}
		return "verified", nil, nil
	})
}

// SubmitIncome records employer and salary details and has the income
// analyzer evaluate stability.
func (s *Service) SubmitIncome(ctx context.Context, appID, employerName string, avgNetSalary decimal.Decimal, salaryCreditDates []string) (*application.Application, error) {
	if employerName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employer name is required")
	}
	if err := validateSalary(avgNetSalary); err != nil {
		return nil, err
	}
	dates, err := validateCreditDates(salaryCreditDates)
	if err != nil {
		return nil, err
	}

	return s.execute(ctx, application.CommandSubmitIncome, appID, nil, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		result, err := s.collab.Income.Evaluate(ctx, employerName, avgNetSalary, dates)
		if err != nil {
			return "", nil, collaboratorErr("income evaluation", err)
		}
		if !result.Stable {
			return "", nil, dErrors.New(dErrors.CodeCollaboratorRejected, "income unstable: "+result.Reason)
		}

		app.Income = &application.IncomeRecord{
			EmployerName:      employerName,
			AvgNetSalary:      avgNetSalary,
			SalaryCreditDates: dates,
			StabilityScore:    result.StabilityScore,
		}
		return "evaluated", map[string]any{"stability_score": result.StabilityScore}, nil
	})
}

// ScoreRisk runs the risk collaborator over the verified KYC and income
// records. The stage is left unchanged; offer generation is a separate
// command.
func (s *Service) ScoreRisk(ctx context.Context, appID string) (*application.Application, error) {
	pre := func(app *application.Application) error {
		if app.KYC == nil || app.Income == nil {
			return dErrors.New(dErrors.CodePreconditionFailed, "kyc and income details required for risk scoring")
		}
		return nil
	}
	return s.execute(ctx, application.CommandScoreRisk, appID, pre, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		result, err := s.collab.Risk.Score(ctx, *app.KYC, *app.Income)
		if err != nil {
			return "", nil, collaboratorErr("risk scoring", err)
		}

		app.Risk = &application.RiskRecord{
			BureauScore: result.BureauScore,
			Band:        result.Band,
		}
		return string(result.Band), map[string]any{"bureau_score": result.BureauScore}, nil
	})
}

// GenerateOffer prices the advance for the scored risk. The processing fee is
// derived here as 2% of the amount, rounded to two decimals.
func (s *Service) GenerateOffer(ctx context.Context, appID string) (*application.Application, error) {
	pre := func(app *application.Application) error {
		if app.Risk == nil || app.Income == nil {
			return dErrors.New(dErrors.CodePreconditionFailed, "risk result required before offer generation")
		}
		return nil
	}
	return s.execute(ctx, application.CommandGenerateOffer, appID, pre, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		priced, err := s.collab.Pricer.Price(ctx, collaborators.RiskResult{
			BureauScore:  app.Risk.BureauScore,
			Band:         app.Risk.Band,
			AvgNetSalary: app.Income.AvgNetSalary,
		})
		if err != nil {
			return "", nil, collaboratorErr("offer pricing", err)
		}

		app.Offer = &application.OfferRecord{
			Amount:             priced.Amount,
			ProcessingFee:      priced.Amount.Mul(processingFeeRate).Round(2),
			InterestRateAnnual: priced.InterestRateAnnual,
			RepaymentDate:      priced.RepaymentDate,
		}
		return "generated", map[string]any{
			"amount":               app.Offer.Amount,
			"processing_fee":       app.Offer.ProcessingFee,
			"interest_rate_annual": app.Offer.InterestRateAnnual,
			"repayment_date":       app.Offer.RepaymentDate,
		}, nil
	})
}

// AcceptOffer records the applicant's consent to the offer and declarations.
func (s *Service) AcceptOffer(ctx context.Context, appID, language string) (*application.Application, error) {
	pre := func(app *application.Application) error {
		if app.Offer == nil {
			return dErrors.New(dErrors.CodePreconditionFailed, "offer not generated yet")
		}
		return nil
	}
	return s.execute(ctx, application.CommandAcceptOffer, appID, pre, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		app.Consent = &application.ConsentRecord{
			Accepted:   true,
			Language:   language,
			AcceptedAt: requestcontext.Now(ctx),
		}
		return "accepted", map[string]any{"language": language}, nil
	})
}

// CompleteVideoKYC runs the video re-verification session.
func (s *Service) CompleteVideoKYC(ctx context.Context, appID string) (*application.Application, error) {
	return s.execute(ctx, application.CommandCompleteVideoKYC, appID, nil, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		result, err := s.collab.Video.Complete(ctx, appID)
		if err != nil {
			return "", nil, collaboratorErr("video kyc", err)
		}
		if !result.Completed {
			return "", nil, dErrors.New(dErrors.CodeCollaboratorRejected, "video kyc not completed")
		}

		app.VideoKYC = &application.VideoKYCRecord{
			Completed:   true,
			CompletedAt: result.CompletedAt,
		}
		return "completed", nil, nil
	})
}

// Disburse executes the payout. The disbursed amount is always the offer
// amount; repayment becomes pending with the offer's repayment date.
func (s *Service) Disburse(ctx context.Context, appID string) (*application.Application, error) {
	pre := func(app *application.Application) error {
		if app.VideoKYC == nil || !app.VideoKYC.Completed {
			return dErrors.New(dErrors.CodePreconditionFailed, "video kyc not completed")
		}
		if app.Offer == nil {
			return dErrors.New(dErrors.CodePreconditionFailed, "offer not generated")
		}
		return nil
	}
	return s.execute(ctx, application.CommandDisburse, appID, pre, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		result, err := s.collab.Rail.Transfer(ctx, appID, app.Offer.Amount)
		if err != nil {
			return "", nil, collaboratorErr("disbursement", err)
		}

		now := requestcontext.Now(ctx)
		app.Disbursement = &application.DisbursementRecord{
			Status:      application.DisbursementDone,
			Amount:      app.Offer.Amount,
			ReferenceID: result.ReferenceID,
			DisbursedAt: now,
		}
		app.Repayment = &application.RepaymentRecord{
			DueDate: app.Offer.RepaymentDate,
			Status:  application.RepaymentPending,
			LateFee: decimal.Zero,
		}
		return "done", map[string]any{
			"amount":       app.Disbursement.Amount,
			"reference_id": result.ReferenceID,
		}, nil
	})
}

// RecordRepayment posts the closing repayment and closes the advance.
func (s *Service) RecordRepayment(ctx context.Context, appID string, lateFee decimal.Decimal) (*application.Application, error) {
	if lateFee.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "late fee cannot be negative")
	}

	pre := func(app *application.Application) error {
		if app.Disbursement == nil || app.Disbursement.Status != application.DisbursementDone {
			return dErrors.New(dErrors.CodePreconditionFailed, "advance not disbursed")
		}
		return nil
	}
	return s.execute(ctx, application.CommandRecordRepayment, appID, pre, func(ctx context.Context, app *application.Application) (string, map[string]any, error) {
		if err := s.collab.Ledger.Post(ctx, appID, lateFee); err != nil {
			return "", nil, collaboratorErr("repayment posting", err)
		}

		app.Repayment.Status = application.RepaymentPaid
		app.Repayment.PaidDate = requestcontext.Now(ctx)
		app.Repayment.LateFee = lateFee

		collection := application.CollectionNone
		if lateFee.IsPositive() {
			collection = application.CollectionSettled
		}
		app.Collection = &application.CollectionRecord{Status: collection}

		return "paid", map[string]any{"late_fee": lateFee}, nil
	})
}

// SweepOverdue marks pending repayments past their due date as overdue.
// Returns the number of applications transitioned. Invoked by the cron
// worker, not by the command surface.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	apps, err := s.store.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}

	swept := 0
	for _, candidate := range apps {
		if candidate.CurrentStage != application.StageRepayment {
			continue
		}
		if err := s.markOverdue(ctx, candidate.ID, now); err != nil {
			s.logger.ErrorContext(ctx, "overdue sweep failed for application",
				"app_id", candidate.ID,
				"error", err.Error(),
			)
			continue
		}
		swept++
	}
	return swept, nil
}

// markOverdue re-reads the aggregate under its lock; the listing above is an
// unsynchronized snapshot and the state may have moved on.
func (s *Service) markOverdue(ctx context.Context, appID string, now time.Time) error {
	unlock := s.locks.lock(appID)
	defer unlock()

	app, err := s.store.FindByID(ctx, appID)
	if err != nil {
		return err
	}
	if app.Repayment == nil || app.Repayment.Status != application.RepaymentPending {
		return nil
	}
	if !app.Repayment.DueDate.Before(now) {
		return nil
	}

	next := app.Clone()
	next.Repayment.Status = application.RepaymentOverdue
	next.Timeline = append(next.Timeline, application.TimelineEvent{
		Step:      audit.ActionRepaymentOverdue,
		Status:    string(application.RepaymentOverdue),
		Timestamp: now,
	})
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:     now,
		ApplicationID: appID,
		Action:        audit.ActionRepaymentOverdue,
		Stage:         string(next.CurrentStage),
	})
	return nil
}

type (
	// preCheck verifies the prerequisite records for a command. It runs
	// before the stage-legality check: a missing prior record reports
	// precondition_failed even when the stage is also wrong.
	preCheck   func(app *application.Application) error
	mutateFunc func(ctx context.Context, app *application.Application) (status string, meta map[string]any, err error)
)

// execute runs one lifecycle command under the application's lock: load,
// precondition check, stage check, mutate a clone, advance, append exactly one
// timeline entry, save. Any error before Save leaves the stored aggregate
// untouched.
func (s *Service) execute(ctx context.Context, cmd application.Command, appID string, pre preCheck, fn mutateFunc) (*application.Application, error) {
	start := time.Now()
	app, err := s.run(ctx, cmd, appID, pre, fn)
	s.metrics.ObserveCommandLatency(string(cmd), time.Since(start))
	if err != nil {
		s.metrics.IncrementTransition(string(cmd), string(dErrors.GetCode(err)))
		return nil, err
	}
	s.metrics.IncrementTransition(string(cmd), "ok")
	return app, nil
}

func (s *Service) run(ctx context.Context, cmd application.Command, appID string, pre preCheck, fn mutateFunc) (*application.Application, error) {
	unlock := s.locks.lock(appID)
	defer unlock()

	stored, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if pre != nil {
		if err := pre(stored); err != nil {
			return nil, err
		}
	}
	if err := cmd.CheckStage(stored.CurrentStage); err != nil {
		return nil, err
	}

	next := stored.Clone()
	status, meta, err := fn(ctx, next)
	if err != nil {
		return nil, err
	}

	next.Advance(cmd)
	next.AppendTimeline(cmd, status, requestcontext.Now(ctx), meta)
	if err := s.store.Save(ctx, next); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}

	s.emitAudit(ctx, audit.Event{
		ApplicationID: appID,
		Action:        audit.ActionTransitionExecuted,
		Command:       string(cmd),
		Stage:         string(next.CurrentStage),
		Detail:        status,
	})
	s.logger.InfoContext(ctx, "transition executed",
		"app_id", appID,
		"command", string(cmd),
		"stage", string(next.CurrentStage),
		"request_id", requestcontext.RequestID(ctx),
	)
	return next, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}
}

// collaboratorErr translates collaborator failures: deadline and cancellation
// become collaborator_timeout, everything else collaborator_rejected. Either
// way the aggregate is left unmodified; the caller owns retry policy.
func collaboratorErr(step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeCollaboratorTimeout, step+" timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeCollaboratorRejected, step+" failed")
}
