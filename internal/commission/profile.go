package commission

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"studioflow-system/internal/database/models"
)

// ProfileResolver loads a trainer's assigned commission profile with its
// tiers ordered ascending by tier level. The profile is consumed as
// already-validated configuration; only structural problems (zero tiers,
// unparseable decimals, negative thresholds) are rejected here.
type ProfileResolver struct {
	db *gorm.DB
}

func NewProfileResolver(db *gorm.DB) *ProfileResolver {
	return &ProfileResolver{db: db}
}

func (r *ProfileResolver) ResolveProfile(ctx context.Context, trainerID string) (Profile, error) {
	var trainer models.Trainer
	err := r.db.WithContext(ctx).First(&trainer, "id = ?", trainerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Profile{}, &NoProfileAssignedError{TrainerID: trainerID}
		}
		return Profile{}, fmt.Errorf("failed to load trainer %s: %w", trainerID, err)
	}
	if trainer.CommissionProfileID == nil {
		return Profile{}, &NoProfileAssignedError{TrainerID: trainerID}
	}

	var record models.CommissionProfile
	err = r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("tier_level asc")
		}).
		First(&record, "id = ?", *trainer.CommissionProfileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Profile{}, &NoProfileAssignedError{TrainerID: trainerID}
		}
		return Profile{}, fmt.Errorf("failed to load commission profile for trainer %s: %w", trainerID, err)
	}
	if !record.IsActive {
		return Profile{}, &NoProfileAssignedError{TrainerID: trainerID}
	}

	return buildProfile(trainerID, record)
}

func buildProfile(trainerID string, record models.CommissionProfile) (Profile, error) {
	if len(record.Tiers) == 0 {
		return Profile{}, &ConfigurationError{TrainerID: trainerID, Profile: record.Name, Reason: "profile has no tiers"}
	}

	profile := Profile{
		ID:      record.ID,
		Name:    record.Name,
		Method:  CalculationMethod(record.CalculationMethod),
		Trigger: TriggerType(record.TriggerType),
		Tiers:   make([]Tier, 0, len(record.Tiers)),
	}

	for _, row := range record.Tiers {
		tier := Tier{Level: row.TierLevel}

		if row.SessionThreshold != nil {
			if *row.SessionThreshold < 0 {
				return Profile{}, &ConfigurationError{TrainerID: trainerID, Profile: record.Name, Reason: fmt.Sprintf("tier %d has a negative session threshold", row.TierLevel)}
			}
			threshold := *row.SessionThreshold
			tier.SessionThreshold = &threshold
		}

		var err error
		if tier.SalesThreshold, err = parseTierDecimal(row.SalesThreshold, trainerID, record.Name, row.TierLevel, "sales threshold"); err != nil {
			return Profile{}, err
		}
		if tier.SalesThreshold != nil && tier.SalesThreshold.IsNegative() {
			return Profile{}, &ConfigurationError{TrainerID: trainerID, Profile: record.Name, Reason: fmt.Sprintf("tier %d has a negative sales threshold", row.TierLevel)}
		}
		if tier.SessionPercent, err = parseTierDecimal(row.SessionCommissionPercent, trainerID, record.Name, row.TierLevel, "session percent"); err != nil {
			return Profile{}, err
		}
		if tier.SessionFlatFee, err = parseTierDecimal(row.SessionFlatFee, trainerID, record.Name, row.TierLevel, "session flat fee"); err != nil {
			return Profile{}, err
		}
		if tier.SalesPercent, err = parseTierDecimal(row.SalesCommissionPercent, trainerID, record.Name, row.TierLevel, "sales percent"); err != nil {
			return Profile{}, err
		}
		if tier.SalesFlatFee, err = parseTierDecimal(row.SalesFlatFee, trainerID, record.Name, row.TierLevel, "sales flat fee"); err != nil {
			return Profile{}, err
		}
		if tier.Bonus, err = parseTierDecimal(row.TierBonus, trainerID, record.Name, row.TierLevel, "tier bonus"); err != nil {
			return Profile{}, err
		}

		profile.Tiers = append(profile.Tiers, tier)
	}

	// Storage order is not trusted even though the query sorts.
	sort.SliceStable(profile.Tiers, func(i, j int) bool {
		return profile.Tiers[i].Level < profile.Tiers[j].Level
	})

	return profile, nil
}

func parseTierDecimal(raw *string, trainerID, profileName string, level int, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, &ConfigurationError{
			TrainerID: trainerID,
			Profile:   profileName,
			Reason:    fmt.Sprintf("tier %d has unparseable %s %q", level, field, *raw),
		}
	}
	return &value, nil
}
