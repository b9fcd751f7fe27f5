package service

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"

	dErrors "lendflow/pkg/domain-errors"
)

const (
	panPattern    = `^[A-Z]{5}[0-9]{4}[A-Z]$`
	aadhaarLength = 12
	dateLayout    = "2006-01-02"
)

// normalizePAN validates and canonicalizes a PAN. PANs are stored upper-cased.
func normalizePAN(pan string) (string, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !govalidator.Matches(pan, panPattern) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid PAN format")
	}
	return pan, nil
}

// validateAadhaar checks the 12-digit Aadhaar format.
func validateAadhaar(aadhaar string) (string, error) {
	aadhaar = strings.TrimSpace(aadhaar)
	if len(aadhaar) != aadhaarLength || !govalidator.IsNumeric(aadhaar) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid Aadhaar format")
	}
	return aadhaar, nil
}

// validateSalary rejects non-positive salaries.
func validateSalary(salary decimal.Decimal) error {
	if salary.LessThanOrEqual(decimal.Zero) {
		return dErrors.New(dErrors.CodeValidation, "average salary must be positive")
	}
	return nil
}

// validateCreditDates checks each salary credit date parses, preserving the
// submitted order.
func validateCreditDates(dates []string) ([]string, error) {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid salary credit date: "+d)
		}
		out = append(out, d)
	}
	return out, nil
}
