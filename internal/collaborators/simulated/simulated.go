// Package simulated provides deterministic collaborator implementations for
// environments without real KYC, bureau, or payment rails. The rules are
// intentionally simple and documented inline so demos stay explainable.
package simulated

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lendflow/internal/application"
	"lendflow/internal/collaborators"
	"lendflow/pkg/requestcontext"
)

const (
	faceMatchScore    = 0.92
	repaymentTermDays = 30
)

// KycVerifier approves every well-formed submission with a fixed face-match
// score. Format validation happens in the engine before this runs.
type KycVerifier struct{}

func (KycVerifier) Verify(_ context.Context, _, _, _ string) (collaborators.KYCResult, error) {
	return collaborators.KYCResult{
		Approved:        true,
		FaceMatchScore:  faceMatchScore,
		FaceMatchPassed: true,
	}, nil
}

// IncomeAnalyzer scores stability as ten points per salary credit month,
// capped at 100.
type IncomeAnalyzer struct{}

func (IncomeAnalyzer) Evaluate(_ context.Context, _ string, _ decimal.Decimal, salaryCreditDates []string) (collaborators.IncomeResult, error) {
	score := float64(len(salaryCreditDates)) * 10
	if score > 100 {
		score = 100
	}
	return collaborators.IncomeResult{Stable: true, StabilityScore: score}, nil
}

// RiskScorer maps average salary to a bureau score band:
// >=50000 -> 780, >=30000 -> 730, else 680. Scores >=750 are LOW risk,
// >=700 MEDIUM, everything below HIGH.
type RiskScorer struct{}

func (RiskScorer) Score(_ context.Context, _ application.KYCRecord, income application.IncomeRecord) (collaborators.RiskResult, error) {
	var score int
	switch {
	case income.AvgNetSalary.GreaterThanOrEqual(decimal.NewFromInt(50000)):
		score = 780
	case income.AvgNetSalary.GreaterThanOrEqual(decimal.NewFromInt(30000)):
		score = 730
	default:
		score = 680
	}

	band := application.RiskBandHigh
	switch {
	case score >= 750:
		band = application.RiskBandLow
	case score >= 700:
		band = application.RiskBandMedium
	}
	return collaborators.RiskResult{BureauScore: score, Band: band, AvgNetSalary: income.AvgNetSalary}, nil
}

// OfferPricer sizes the advance as a risk-dependent fraction of average
// salary (60% LOW, 40% MEDIUM, 25% HIGH) at 24% p.a., repayable 30 days out.
type OfferPricer struct{}

func (OfferPricer) Price(ctx context.Context, risk collaborators.RiskResult) (collaborators.PricedOffer, error) {
	multiplier := decimal.NewFromFloat(0.25)
	switch risk.Band {
	case application.RiskBandLow:
		multiplier = decimal.NewFromFloat(0.6)
	case application.RiskBandMedium:
		multiplier = decimal.NewFromFloat(0.4)
	}

	return collaborators.PricedOffer{
		Amount:             risk.AvgNetSalary.Mul(multiplier).Round(2),
		InterestRateAnnual: decimal.NewFromInt(24),
		RepaymentDate:      requestcontext.Now(ctx).Add(repaymentTermDays * 24 * time.Hour),
	}, nil
}

// VideoKycProvider marks every session completed at the request time.
type VideoKycProvider struct{}

func (VideoKycProvider) Complete(ctx context.Context, _ string) (collaborators.VideoKycResult, error) {
	return collaborators.VideoKycResult{Completed: true, CompletedAt: requestcontext.Now(ctx)}, nil
}

// DisbursementRail issues a NEFT-style reference for every transfer.
type DisbursementRail struct{}

func (DisbursementRail) Transfer(_ context.Context, _ string, _ decimal.Decimal) (collaborators.TransferResult, error) {
	return collaborators.TransferResult{ReferenceID: "NEFT-" + randomReference(10)}, nil
}

// RepaymentLedger accepts every posting.
type RepaymentLedger struct{}

func (RepaymentLedger) Post(_ context.Context, _ string, _ decimal.Decimal) error {
	return nil
}

func randomReference(n int) string {
	buf := make([]byte, (n+1)/2)
	_, _ = rand.Read(buf)
	return strings.ToUpper(hex.EncodeToString(buf))[:n]
}
