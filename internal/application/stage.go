package application

import (
	dErrors "lendflow/pkg/domain-errors"
)

// Stage is one discrete phase of the lending lifecycle. The fixed order below
// defines legal progression: a stage pointer only ever moves forward.
//
// Naming note: a stage denotes what is *next*, not what just happened.
// StageIncomeCheck is the stage reached after KYC submission but before income
// submission. Consumers key UI visibility off these exact labels, so they must
// not be renamed.
type Stage string

const (
	StageApply       Stage = "apply"
	StageIncomeCheck Stage = "income_check"
	StageRiskScoring Stage = "risk_scoring"
	StageOffer       Stage = "offer"
	StageConsent     Stage = "consent"
	StageVideoKYC    Stage = "video_kyc"
	StageRepayment   Stage = "repayment"
	StageClosed      Stage = "closed"
)

// stageOrder is the single source of truth for lifecycle progression.
var stageOrder = map[Stage]int{
	StageApply:       0,
	StageIncomeCheck: 1,
	StageRiskScoring: 2,
	StageOffer:       3,
	StageConsent:     4,
	StageVideoKYC:    5,
	StageRepayment:   6,
	StageClosed:      7,
}

// Order returns the stage's position in the lifecycle, or -1 for unknown values.
func (s Stage) Order() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle.
func (s Stage) Before(other Stage) bool {
	return s.Order() < other.Order()
}

// IsValid reports whether s is a known lifecycle stage.
func (s Stage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Command is a lifecycle operation issued against an application.
type Command string

const (
	CommandSubmitKYC        Command = "submit_kyc"
	CommandSubmitIncome     Command = "submit_income"
	CommandScoreRisk        Command = "score_risk"
	CommandGenerateOffer    Command = "generate_offer"
	CommandAcceptOffer      Command = "accept_offer"
	CommandCompleteVideoKYC Command = "complete_video_kyc"
	CommandDisburse         Command = "disburse"
	CommandRecordRepayment  Command = "record_repayment"
)

// commandStages maps each command to the stages in which it is legal and the
// stage a successful execution lands on.
//
// Every command except score_risk is legal in two adjacent stages: the one it
// advances from and the one it advances to. This tolerates at-least-once
// client retries across a stage boundary; a retried command re-executes and
// lands on the same stage, so progression never regresses.
var commandStages = map[Command]struct {
	legal  []Stage
	target Stage
}{
	CommandSubmitKYC:        {legal: []Stage{StageApply, StageIncomeCheck}, target: StageIncomeCheck},
	CommandSubmitIncome:     {legal: []Stage{StageIncomeCheck, StageRiskScoring}, target: StageRiskScoring},
	CommandScoreRisk:        {legal: []Stage{StageRiskScoring, StageOffer}, target: StageRiskScoring},
	CommandGenerateOffer:    {legal: []Stage{StageRiskScoring, StageOffer}, target: StageOffer},
	CommandAcceptOffer:      {legal: []Stage{StageOffer, StageConsent}, target: StageConsent},
	CommandCompleteVideoKYC: {legal: []Stage{StageConsent, StageVideoKYC}, target: StageVideoKYC},
	CommandDisburse:         {legal: []Stage{StageVideoKYC, StageRepayment}, target: StageRepayment},
	CommandRecordRepayment:  {legal: []Stage{StageRepayment, StageClosed}, target: StageClosed},
}

// LegalIn reports whether the command may be executed while the application is
// in the given stage.
func (c Command) LegalIn(s Stage) bool {
	entry, ok := commandStages[c]
	if !ok {
		return false
	}
	for _, legal := range entry.legal {
		if legal == s {
			return true
		}
	}
	return false
}

// Target returns the stage a successful execution of the command lands on.
func (c Command) Target() Stage {
	return commandStages[c].target
}

// CheckStage returns an invalid_stage_transition error when the command is not
// legal in the given stage. Callers must perform no mutation after a non-nil
// return; the failed command is an atomic no-op.
func (c Command) CheckStage(s Stage) error {
	if !c.LegalIn(s) {
		return dErrors.New(dErrors.CodeInvalidStageTransition,
			string(c)+" is not legal in stage "+string(s))
	}
	return nil
}
