package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

type CalculationMethod string

const (
	MethodFlat        CalculationMethod = "flat"
	MethodProgressive CalculationMethod = "progressive"
	MethodGraduated   CalculationMethod = "graduated"
)

type TriggerType string

const (
	TriggerNone         TriggerType = "none"
	TriggerSessionCount TriggerType = "session_count"
	TriggerSalesVolume  TriggerType = "sales_volume"
	TriggerEitherOr     TriggerType = "either_or"
	TriggerBothAnd      TriggerType = "both_and"
)

// RequiresSalesVolume reports whether the trigger needs the sales axis loaded.
func (t TriggerType) RequiresSalesVolume() bool {
	switch t {
	case TriggerSalesVolume, TriggerEitherOr, TriggerBothAnd:
		return true
	}
	return false
}

// Period is a half-open UTC interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodFacts are the aggregated inputs for one trainer over one period.
type PeriodFacts struct {
	SessionCount      int
	TotalSessionValue decimal.Decimal
	SalesVolume       decimal.Decimal
}

// Tier is one rung of the ladder, decimal-typed for the engine. Optional
// axes are nil when unset. Per axis, percent and flat fee are mutually
// exclusive; that invariant is enforced at configuration time, not here.
type Tier struct {
	Level            int
	SessionThreshold *int
	SalesThreshold   *decimal.Decimal
	SessionPercent   *decimal.Decimal
	SessionFlatFee   *decimal.Decimal
	SalesPercent     *decimal.Decimal
	SalesFlatFee     *decimal.Decimal
	Bonus            *decimal.Decimal
}

// Profile is a trainer's resolved compensation structure. Tiers are sorted
// ascending by Level; thresholds are non-decreasing with Level.
type Profile struct {
	ID      string
	Name    string
	Method  CalculationMethod
	Trigger TriggerType
	Tiers   []Tier
}

// CommissionResult is the computed payout for one trainer and period.
// Components are rounded to two decimals; TotalCommission is their sum.
type CommissionResult struct {
	TotalSessions     int
	TierReached       int
	SessionCommission decimal.Decimal
	SalesCommission   decimal.Decimal
	TierBonus         decimal.Decimal
	TotalCommission   decimal.Decimal
}
