package handler

import "github.com/shopspring/decimal"

// Request bodies for the lifecycle command surface. Every command carries the
// target app_id plus its command-specific fields; responses always return the
// full application snapshot so clients re-render from a single source of
// truth.

type createApplicationRequest struct {
	ApplicantName string `json:"applicant_name"`
}

type submitKYCRequest struct {
	AppID     string `json:"app_id"`
	PAN       string `json:"pan"`
	Aadhaar   string `json:"aadhaar"`
	SelfieURL string `json:"selfie_url,omitempty"`
}

type submitIncomeRequest struct {
	AppID             string          `json:"app_id"`
	EmployerName      string          `json:"employer_name"`
	AvgNetSalary      decimal.Decimal `json:"avg_net_salary"`
	SalaryCreditDates []string        `json:"salary_credit_dates"`
}

type appOnlyRequest struct {
	AppID string `json:"app_id"`
}

type acceptOfferRequest struct {
	AppID    string `json:"app_id"`
	Language string `json:"language"`
}

type recordRepaymentRequest struct {
	AppID   string          `json:"app_id"`
	LateFee decimal.Decimal `json:"late_fee"`
}
