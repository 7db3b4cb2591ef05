package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeCommission is the pure calculation core: no I/O, no clock, no
// shared state. Qualification runs first (which tier the trainer reached
// under the profile's trigger type), then rates are applied according to the
// profile's calculation method. Intermediate bracket math stays unrounded;
// the three output components are rounded to two decimals at the end and
// TotalCommission is their sum.
func ComputeCommission(facts PeriodFacts, profile Profile) (CommissionResult, error) {
	if len(profile.Tiers) == 0 {
		return CommissionResult{}, &ConfigurationError{Profile: profile.Name, Reason: "profile has no tiers"}
	}

	reached, err := reachedTiers(facts, profile)
	if err != nil {
		return CommissionResult{}, err
	}

	tierReached := 0
	highest := -1
	for i, ok := range reached {
		if ok {
			highest = i
			tierReached = profile.Tiers[i].Level
		}
	}

	// A trainer with no activity has a well-defined zero commission, even
	// when a zero-threshold tier (or a bonus on it) qualifies.
	if facts.SessionCount == 0 && facts.TotalSessionValue.IsZero() && facts.SalesVolume.IsZero() {
		return zeroResult(tierReached), nil
	}

	sessionPart := decimal.Zero
	salesPart := decimal.Zero
	bonus := decimal.Zero

	switch profile.Method {
	case MethodFlat:
		// Single rate over the whole period, regardless of counts. Tier
		// bonuses are not part of flat compensation.
		t := profile.Tiers[0]
		sessionPart = sessionAxisWhole(t, facts)
		salesPart = salesAxisWhole(t, facts)

	case MethodProgressive:
		// Winner take all: the reached tier's rates apply to the entire
		// session value and sales volume, and only its bonus is paid.
		if highest >= 0 {
			t := profile.Tiers[highest]
			sessionPart = sessionAxisWhole(t, facts)
			salesPart = salesAxisWhole(t, facts)
			if t.Bonus != nil {
				bonus = *t.Bonus
			}
		}

	case MethodGraduated:
		// Marginal brackets: each slice of activity between one threshold
		// and the next pays at its own tier's rate. Bonuses are milestone
		// rewards, summed across every reached tier.
		sessionPart = graduatedSessionCommission(facts, profile.Tiers)
		salesPart = graduatedSalesCommission(facts, profile.Tiers)
		for i, t := range profile.Tiers {
			if reached[i] && t.Bonus != nil {
				bonus = bonus.Add(*t.Bonus)
			}
		}

	default:
		return CommissionResult{}, &ConfigurationError{
			Profile: profile.Name,
			Reason:  fmt.Sprintf("unknown calculation method %q", profile.Method),
		}
	}

	sessionPart = sessionPart.Round(2)
	salesPart = salesPart.Round(2)
	bonus = bonus.Round(2)

	return CommissionResult{
		TotalSessions:     facts.SessionCount,
		TierReached:       tierReached,
		SessionCommission: sessionPart,
		SalesCommission:   salesPart,
		TierBonus:         bonus,
		TotalCommission:   sessionPart.Add(salesPart).Add(bonus),
	}, nil
}

func zeroResult(tierReached int) CommissionResult {
	return CommissionResult{
		TierReached:       tierReached,
		SessionCommission: decimal.Zero,
		SalesCommission:   decimal.Zero,
		TierBonus:         decimal.Zero,
		TotalCommission:   decimal.Zero,
	}
}

// reachedTiers evaluates every tier against the trigger type. An unset
// threshold counts as zero, so a no-threshold first tier always qualifies.
func reachedTiers(facts PeriodFacts, profile Profile) ([]bool, error) {
	reached := make([]bool, len(profile.Tiers))
	for i, t := range profile.Tiers {
		sessionMet := t.SessionThreshold == nil || facts.SessionCount >= *t.SessionThreshold
		salesMet := t.SalesThreshold == nil || facts.SalesVolume.GreaterThanOrEqual(*t.SalesThreshold)

		switch profile.Trigger {
		case TriggerNone:
			reached[i] = t.SessionThreshold == nil && t.SalesThreshold == nil
		case TriggerSessionCount:
			reached[i] = sessionMet
		case TriggerSalesVolume:
			reached[i] = salesMet
		case TriggerEitherOr:
			// Whichever axis the tier configures; a tier may define only one.
			switch {
			case t.SessionThreshold == nil && t.SalesThreshold == nil:
				reached[i] = true
			case t.SessionThreshold != nil && facts.SessionCount >= *t.SessionThreshold:
				reached[i] = true
			case t.SalesThreshold != nil && facts.SalesVolume.GreaterThanOrEqual(*t.SalesThreshold):
				reached[i] = true
			}
		case TriggerBothAnd:
			reached[i] = sessionMet && salesMet
		default:
			return nil, &ConfigurationError{
				Profile: profile.Name,
				Reason:  fmt.Sprintf("unknown trigger type %q", profile.Trigger),
			}
		}
	}
	return reached, nil
}

// sessionAxisWhole applies one tier's session rate to the entire period
// activity (flat and progressive methods). A per-session flat fee pays on
// every session; a percentage pays on the whole session value. A tier with
// neither contributes nothing beyond its bonus.
func sessionAxisWhole(t Tier, facts PeriodFacts) decimal.Decimal {
	switch {
	case t.SessionFlatFee != nil:
		return t.SessionFlatFee.Mul(decimal.NewFromInt(int64(facts.SessionCount)))
	case t.SessionPercent != nil:
		return facts.TotalSessionValue.Mul(*t.SessionPercent).Div(hundred)
	}
	return decimal.Zero
}

// salesAxisWhole applies one tier's sales rate to the entire sales volume.
// The sales axis has no whole-unit count, so a flat fee is a lump sum.
func salesAxisWhole(t Tier, facts PeriodFacts) decimal.Decimal {
	switch {
	case t.SalesFlatFee != nil:
		return *t.SalesFlatFee
	case t.SalesPercent != nil:
		return facts.SalesVolume.Mul(*t.SalesPercent).Div(hundred)
	}
	return decimal.Zero
}

// graduatedSessionCommission allocates whole sessions into count brackets.
// A tier's bracket runs from its session threshold up to one below the next
// participating tier's threshold; value is split proportionally at the
// period's average per-session value so bracket math never rounds early.
func graduatedSessionCommission(facts PeriodFacts, tiers []Tier) decimal.Decimal {
	if facts.SessionCount == 0 {
		return decimal.Zero
	}

	// Only the first participant may omit its threshold; a later tier
	// without one has no bracket start and would re-pay earlier sessions.
	participants := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.SessionThreshold == nil && t.SessionPercent == nil && t.SessionFlatFee == nil {
			continue
		}
		if len(participants) > 0 && t.SessionThreshold == nil {
			continue
		}
		participants = append(participants, t)
	}
	if len(participants) == 0 {
		return decimal.Zero
	}

	perSession := facts.TotalSessionValue.Div(decimal.NewFromInt(int64(facts.SessionCount)))
	total := decimal.Zero

	for i, t := range participants {
		lower := 1
		if t.SessionThreshold != nil && *t.SessionThreshold > 1 {
			lower = *t.SessionThreshold
		}
		upper := facts.SessionCount
		if i+1 < len(participants) {
			if next := participants[i+1].SessionThreshold; next != nil && *next-1 < upper {
				upper = *next - 1
			}
		}

		n := upper - lower + 1
		if n <= 0 {
			continue
		}
		count := decimal.NewFromInt(int64(n))

		switch {
		case t.SessionFlatFee != nil:
			total = total.Add(t.SessionFlatFee.Mul(count))
		case t.SessionPercent != nil:
			total = total.Add(perSession.Mul(count).Mul(*t.SessionPercent).Div(hundred))
		}
	}

	return total
}

// graduatedSalesCommission allocates marginal dollars of sales volume into
// value brackets: the slice between a tier's sales threshold and the next
// tier's pays at that tier's percentage. A sales flat fee is a lump sum paid
// once per bracket the volume extends into.
func graduatedSalesCommission(facts PeriodFacts, tiers []Tier) decimal.Decimal {
	if facts.SalesVolume.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	participants := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.SalesThreshold == nil && t.SalesPercent == nil && t.SalesFlatFee == nil {
			continue
		}
		if len(participants) > 0 && t.SalesThreshold == nil {
			continue
		}
		participants = append(participants, t)
	}
	if len(participants) == 0 {
		return decimal.Zero
	}

	total := decimal.Zero
	for i, t := range participants {
		lower := decimal.Zero
		if t.SalesThreshold != nil {
			lower = *t.SalesThreshold
		}
		upper := facts.SalesVolume
		if i+1 < len(participants) {
			if next := participants[i+1].SalesThreshold; next != nil && next.LessThan(upper) {
				upper = *next
			}
		}

		slice := upper.Sub(lower)
		if slice.LessThanOrEqual(decimal.Zero) {
			continue
		}

		switch {
		case t.SalesFlatFee != nil:
			total = total.Add(*t.SalesFlatFee)
		case t.SalesPercent != nil:
			total = total.Add(slice.Mul(*t.SalesPercent).Div(hundred))
		}
	}

	return total
}
