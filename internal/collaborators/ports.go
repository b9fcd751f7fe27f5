// Package collaborators defines the narrow interfaces the transition engine
// calls for external verification and money movement. Implementations are
// external systems; the engine never retries them itself, retry policy
// belongs to the caller.
package collaborators

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"lendflow/internal/application"
)

// KYCResult is the verifier's verdict on the submitted documents.
type KYCResult struct {
	Approved        bool
	Reason          string
	FaceMatchScore  float64
	FaceMatchPassed bool
}

// KycVerifier checks PAN, Aadhaar, and the optional selfie.
type KycVerifier interface {
	Verify(ctx context.Context, pan, aadhaar, selfieURL string) (KYCResult, error)
}

// IncomeResult reports salary stability.
type IncomeResult struct {
	Stable         bool
	Reason         string
	StabilityScore float64
}

// IncomeAnalyzer evaluates employer and salary-credit history.
type IncomeAnalyzer interface {
	Evaluate(ctx context.Context, employerName string, avgNetSalary decimal.Decimal, salaryCreditDates []string) (IncomeResult, error)
}

// RiskResult is the bureau pull plus internal banding. AvgNetSalary echoes
// the salary the scorer assessed so the pricer can size the advance without
// re-reading the aggregate.
type RiskResult struct {
	BureauScore  int
	Band         application.RiskBand
	AvgNetSalary decimal.Decimal
}

// RiskScorer produces a risk result from verified KYC and income records.
type RiskScorer interface {
	Score(ctx context.Context, kyc application.KYCRecord, income application.IncomeRecord) (RiskResult, error)
}

// PricedOffer is the pricer's output. The engine derives the processing fee
// itself; the pricer never supplies it.
type PricedOffer struct {
	Amount             decimal.Decimal
	InterestRateAnnual decimal.Decimal
	RepaymentDate      time.Time
}

// OfferPricer prices an advance for a given risk result.
type OfferPricer interface {
	Price(ctx context.Context, risk RiskResult) (PricedOffer, error)
}

// VideoKycResult confirms the video re-verification session.
type VideoKycResult struct {
	Completed   bool
	CompletedAt time.Time
}

// VideoKycProvider runs the video KYC session for an application.
type VideoKycProvider interface {
	Complete(ctx context.Context, applicationID string) (VideoKycResult, error)
}

// TransferResult identifies the executed payout.
type TransferResult struct {
	ReferenceID string
}

// DisbursementRail moves the approved amount to the applicant.
type DisbursementRail interface {
	Transfer(ctx context.Context, applicationID string, amount decimal.Decimal) (TransferResult, error)
}

// RepaymentLedger posts the closing repayment to the book of record.
type RepaymentLedger interface {
	Post(ctx context.Context, applicationID string, lateFee decimal.Decimal) error
}
