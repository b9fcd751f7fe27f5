package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOrder_IsTotal(t *testing.T) {
	ordered := []Stage{
		StageApply, StageIncomeCheck, StageRiskScoring, StageOffer,
		StageConsent, StageVideoKYC, StageRepayment, StageClosed,
	}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i-1].Before(ordered[i]),
			"%s must precede %s", ordered[i-1], ordered[i])
	}
	assert.Equal(t, -1, Stage("rejected").Order())
	assert.False(t, Stage("rejected").IsValid())
}

func TestCommand_LegalStages(t *testing.T) {
	cases := []struct {
		command Command
		legal   []Stage
		target  Stage
	}{
		{CommandSubmitKYC, []Stage{StageApply, StageIncomeCheck}, StageIncomeCheck},
		{CommandSubmitIncome, []Stage{StageIncomeCheck, StageRiskScoring}, StageRiskScoring},
		{CommandScoreRisk, []Stage{StageRiskScoring, StageOffer}, StageRiskScoring},
		{CommandGenerateOffer, []Stage{StageRiskScoring, StageOffer}, StageOffer},
		{CommandAcceptOffer, []Stage{StageOffer, StageConsent}, StageConsent},
		{CommandCompleteVideoKYC, []Stage{StageConsent, StageVideoKYC}, StageVideoKYC},
		{CommandDisburse, []Stage{StageVideoKYC, StageRepayment}, StageRepayment},
		{CommandRecordRepayment, []Stage{StageRepayment, StageClosed}, StageClosed},
	}

	all := []Stage{
		StageApply, StageIncomeCheck, StageRiskScoring, StageOffer,
		StageConsent, StageVideoKYC, StageRepayment, StageClosed,
	}

	for _, tc := range cases {
		t.Run(string(tc.command), func(t *testing.T) {
			legalSet := map[Stage]bool{}
			for _, s := range tc.legal {
				legalSet[s] = true
			}
			for _, stage := range all {
				assert.Equal(t, legalSet[stage], tc.command.LegalIn(stage),
					"%s in %s", tc.command, stage)
				if legalSet[stage] {
					assert.NoError(t, tc.command.CheckStage(stage))
				} else {
					assert.Error(t, tc.command.CheckStage(stage))
				}
			}
			assert.Equal(t, tc.target, tc.command.Target())
		})
	}
}

func TestAdvance_NeverRegresses(t *testing.T) {
	app := New("Asha", time.Now())
	app.CurrentStage = StageOffer

	// score_risk is legal at the offer stage but targets risk_scoring; the
	// stage must stay put.
	app.Advance(CommandScoreRisk)
	assert.Equal(t, StageOffer, app.CurrentStage)

	app.Advance(CommandAcceptOffer)
	assert.Equal(t, StageConsent, app.CurrentStage)

	// Retried command from the terminal side of its window.
	app.Advance(CommandAcceptOffer)
	assert.Equal(t, StageConsent, app.CurrentStage)
}

func TestNew_StartsAtApplyWithEmptyTimeline(t *testing.T) {
	now := time.Now()
	app := New("Asha", now)

	require.NotEmpty(t, app.ID)
	assert.Equal(t, "Asha", app.ApplicantName)
	assert.Equal(t, StageApply, app.CurrentStage)
	assert.Empty(t, app.Timeline)
	assert.Equal(t, now, app.CreatedAt)
}

func TestClone_IsDeep(t *testing.T) {
	app := New("Asha", time.Now())
	app.Income = &IncomeRecord{
		EmployerName:      "Acme",
		SalaryCreditDates: []string{"2025-01-01"},
	}
	app.AppendTimeline(CommandSubmitKYC, "verified", time.Now(), nil)

	cp := app.Clone()
	cp.Income.EmployerName = "Other"
	cp.Income.SalaryCreditDates[0] = "2030-01-01"
	cp.AppendTimeline(CommandSubmitIncome, "evaluated", time.Now(), nil)

	assert.Equal(t, "Acme", app.Income.EmployerName)
	assert.Equal(t, "2025-01-01", app.Income.SalaryCreditDates[0])
	assert.Len(t, app.Timeline, 1)
	assert.Len(t, cp.Timeline, 2)
}
