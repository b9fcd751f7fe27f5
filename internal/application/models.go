package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KYCRecord captures the identity documents submitted by the applicant and the
// verifier's (simulated) outcome.
type KYCRecord struct {
	PAN             string  `json:"pan"`
	PANVerified     bool    `json:"pan_verified"`
	Aadhaar         string  `json:"aadhaar"`
	AadhaarVerified bool    `json:"aadhaar_verified"`
	SelfieURL       string  `json:"selfie_url,omitempty"`
	SelfieCaptured  bool    `json:"selfie_captured"`
	FaceMatchScore  float64 `json:"face_match_score"`
	FaceMatchPassed bool    `json:"face_match_passed"`
}

// IncomeRecord holds employer and salary details. SalaryCreditDates keeps the
// order the dates were submitted in after parsing.
type IncomeRecord struct {
	EmployerName      string          `json:"employer_name"`
	AvgNetSalary      decimal.Decimal `json:"avg_net_salary"`
	SalaryCreditDates []string        `json:"salary_credit_dates"`
	StabilityScore    float64         `json:"stability_score"`
}

// RiskBand categorizes the bureau score into LOW / MEDIUM / HIGH.
type RiskBand string

const (
	RiskBandLow    RiskBand = "LOW"
	RiskBandMedium RiskBand = "MEDIUM"
	RiskBandHigh   RiskBand = "HIGH"
)

// RiskRecord is the risk collaborator's output.
type RiskRecord struct {
	BureauScore int      `json:"bureau_score"`
	Band        RiskBand `json:"risk_category"`
}

// OfferRecord describes the priced salary advance. ProcessingFee is derived by
// the transition engine as 2% of Amount; it is never supplied by the pricer or
// the caller.
type OfferRecord struct {
	Amount             decimal.Decimal `json:"amount"`
	ProcessingFee      decimal.Decimal `json:"processing_fee"`
	InterestRateAnnual decimal.Decimal `json:"interest_rate_annual"`
	RepaymentDate      time.Time       `json:"repayment_date"`
}

// ConsentRecord captures the applicant's acceptance of the offer and
// declarations, with the declaration language.
type ConsentRecord struct {
	Accepted   bool      `json:"accepted"`
	Language   string    `json:"language"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// VideoKYCRecord marks the video re-verification step.
type VideoKYCRecord struct {
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// DisbursementStatus is the payout state: pending until the rail confirms.
type DisbursementStatus string

const (
	DisbursementPending DisbursementStatus = "pending"
	DisbursementDone    DisbursementStatus = "done"
)

// DisbursementRecord captures the fund transfer.
type DisbursementRecord struct {
	Status      DisbursementStatus `json:"status"`
	Amount      decimal.Decimal    `json:"amount"`
	ReferenceID string             `json:"reference_id"`
	DisbursedAt time.Time          `json:"disbursed_at"`
}

// RepaymentStatus is the loan's repayment state. Overdue is set by the sweep
// worker when the due date passes without payment.
type RepaymentStatus string

const (
	RepaymentPending RepaymentStatus = "pending"
	RepaymentOverdue RepaymentStatus = "overdue"
	RepaymentPaid    RepaymentStatus = "paid"
)

// RepaymentRecord tracks the single repayment that closes the advance.
type RepaymentRecord struct {
	DueDate  time.Time       `json:"due_date"`
	Status   RepaymentStatus `json:"status"`
	PaidDate time.Time       `json:"paid_date,omitzero"`
	LateFee  decimal.Decimal `json:"late_fee"`
}

// CollectionStatus tracks post-due collection activity.
type CollectionStatus string

const (
	CollectionNone         CollectionStatus = "none"
	CollectionSoftReminder CollectionStatus = "soft_reminder"
	CollectionCalling      CollectionStatus = "calling"
	CollectionEscalated    CollectionStatus = "escalated"
	CollectionSettled      CollectionStatus = "settled"
)

// CollectionRecord notes collection state once repayment is late.
type CollectionRecord struct {
	Status CollectionStatus `json:"status"`
	Notes  []string         `json:"notes,omitempty"`
}

// TimelineEvent is one entry in the application's append-only audit trail.
// Entries are never reordered or mutated after append.
type TimelineEvent struct {
	Step      string         `json:"step"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Application is the aggregate root for one salary-advance journey. It is
// mutated exclusively through the stage transition engine; CurrentStage is the
// single source of truth for which commands are legal.
type Application struct {
	ID            string `json:"id"`
	ApplicantName string `json:"applicant_name"`
	CurrentStage  Stage  `json:"current_stage"`

	KYC          *KYCRecord          `json:"kyc,omitempty"`
	Income       *IncomeRecord       `json:"income,omitempty"`
	Risk         *RiskRecord         `json:"risk,omitempty"`
	Offer        *OfferRecord        `json:"offer,omitempty"`
	Consent      *ConsentRecord      `json:"consent,omitempty"`
	VideoKYC     *VideoKYCRecord     `json:"video_kyc,omitempty"`
	Disbursement *DisbursementRecord `json:"disbursement,omitempty"`
	Repayment    *RepaymentRecord    `json:"repayment,omitempty"`
	Collection   *CollectionRecord   `json:"collection,omitempty"`

	Timeline  []TimelineEvent `json:"timeline"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates an Application at the apply stage with an empty timeline.
func New(applicantName string, now time.Time) *Application {
	return &Application{
		ID:            uuid.NewString(),
		ApplicantName: applicantName,
		CurrentStage:  StageApply,
		Timeline:      []TimelineEvent{},
		CreatedAt:     now,
	}
}

// AppendTimeline records one executed transition. Insertion order is
// significant; the slice only ever grows.
func (a *Application) AppendTimeline(step Command, status string, at time.Time, meta map[string]any) {
	a.Timeline = append(a.Timeline, TimelineEvent{
		Step:      string(step),
		Status:    status,
		Timestamp: at,
		Meta:      meta,
	})
}

// Advance moves the stage forward to the command's target. A command retried
// from the terminal side of its legal window (or score_risk issued at the
// offer stage) targets a stage at or behind the current one; the stage is then
// left unchanged so progression never regresses.
func (a *Application) Advance(cmd Command) {
	if target := cmd.Target(); a.CurrentStage.Before(target) {
		a.CurrentStage = target
	}
}

// Clone returns a deep copy. The engine mutates a clone and saves it only on
// success, which keeps failed commands atomic no-ops.
func (a *Application) Clone() *Application {
	cp := *a
	if a.KYC != nil {
		kyc := *a.KYC
		cp.KYC = &kyc
	}
	if a.Income != nil {
		income := *a.Income
		income.SalaryCreditDates = append([]string(nil), a.Income.SalaryCreditDates...)
		cp.Income = &income
	}
	if a.Risk != nil {
		risk := *a.Risk
		cp.Risk = &risk
	}
	if a.Offer != nil {
		offer := *a.Offer
		cp.Offer = &offer
	}
	if a.Consent != nil {
		consent := *a.Consent
		cp.Consent = &consent
	}
	if a.VideoKYC != nil {
		video := *a.VideoKYC
		cp.VideoKYC = &video
	}
	if a.Disbursement != nil {
		disb := *a.Disbursement
		cp.Disbursement = &disb
	}
	if a.Repayment != nil {
		repay := *a.Repayment
		cp.Repayment = &repay
	}
	if a.Collection != nil {
		coll := *a.Collection
		coll.Notes = append([]string(nil), a.Collection.Notes...)
		cp.Collection = &coll
	}
	cp.Timeline = append([]TimelineEvent(nil), a.Timeline...)
	return &cp
}
