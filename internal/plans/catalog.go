package plans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
)

// Unbounded marks a plan with no contact quota.
const Unbounded = -1

const (
	monthlyDuration = 30 * 24 * time.Hour
	yearlyDuration  = 365 * 24 * time.Hour
)

// Plan describes one subscription tier.
type Plan struct {
	Name         enums.PlanName
	ContactLimit int
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal
}

var catalog = map[enums.PlanName]Plan{
	enums.PlanBasic: {
		Name:         enums.PlanBasic,
		ContactLimit: 1,
		MonthlyPrice: decimal.Zero,
		YearlyPrice:  decimal.Zero,
	},
	enums.PlanPro: {
		Name:         enums.PlanPro,
		ContactLimit: 15,
		MonthlyPrice: decimal.NewFromFloat(19.99),
		YearlyPrice:  decimal.NewFromFloat(191.90),
	},
	enums.PlanPremium: {
		Name:         enums.PlanPremium,
		ContactLimit: Unbounded,
		MonthlyPrice: decimal.NewFromFloat(49.99),
		YearlyPrice:  decimal.NewFromFloat(479.90),
	},
}

// Lookup returns the plan definition for the given name.
func Lookup(name enums.PlanName) (Plan, error) {
	plan, ok := catalog[name]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeInvalidPlan, "unknown plan "+name.String())
	}
	return plan, nil
}

// ContactLimit returns the quota for the plan, Unbounded for PREMIUM.
func ContactLimit(name enums.PlanName) (int, error) {
	plan, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	return plan.ContactLimit, nil
}

// IsUnbounded reports whether the plan has no contact quota.
func (p Plan) IsUnbounded() bool {
	return p.ContactLimit == Unbounded
}

// Price returns the charge for the plan under the given billing cycle.
// BASIC and the free cycle cost nothing.
func Price(name enums.PlanName, cycle enums.BillingCycle) (decimal.Decimal, error) {
	plan, err := Lookup(name)
	if err != nil {
		return decimal.Zero, err
	}
	switch cycle {
	case enums.BillingCycleMonthly:
		return plan.MonthlyPrice, nil
	case enums.BillingCycleYearly:
		return plan.YearlyPrice, nil
	case enums.BillingCycleFree:
		return decimal.Zero, nil
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown billing cycle "+cycle.String())
	}
}

// Duration returns the subscription window for the billing cycle.
// The free cycle gets a full year, matching the registration grant.
func Duration(cycle enums.BillingCycle) (time.Duration, error) {
	switch cycle {
	case enums.BillingCycleMonthly:
		return monthlyDuration, nil
	case enums.BillingCycleYearly, enums.BillingCycleFree:
		return yearlyDuration, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown billing cycle "+cycle.String())
	}
}
