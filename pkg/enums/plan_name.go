package enums

import "fmt"

// PlanName identifies a subscription tier in the plan catalog.
type PlanName string

const (
	PlanBasic   PlanName = "BASIC"
	PlanPro     PlanName = "PRO"
	PlanPremium PlanName = "PREMIUM"
)

var validPlanNames = []PlanName{
	PlanBasic,
	PlanPro,
	PlanPremium,
}

// String implements fmt.Stringer.
func (p PlanName) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PlanName) IsValid() bool {
	for _, candidate := range validPlanNames {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlanName converts raw input into a PlanName.
func ParsePlanName(value string) (PlanName, error) {
	for _, candidate := range validPlanNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan name %q", value)
}
