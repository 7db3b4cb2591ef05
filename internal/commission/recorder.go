package commission

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studioflow-system/internal/database/models"
)

// CalculationRecorder persists computed results keyed by
// (trainer, period start, period end). Save is a single conditional
// insert-or-update, so two concurrent recalculations of the same period
// cannot produce two rows.
type CalculationRecorder struct {
	db *gorm.DB
}

func NewCalculationRecorder(db *gorm.DB) *CalculationRecorder {
	return &CalculationRecorder{db: db}
}

func (r *CalculationRecorder) Save(ctx context.Context, trainerID string, period Period, result CommissionResult) error {
	record := models.TrainerCommissionCalculation{
		TrainerID:         trainerID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		TotalSessions:     result.TotalSessions,
		SessionCommission: result.SessionCommission.StringFixed(2),
		SalesCommission:   result.SalesCommission.StringFixed(2),
		TierBonus:         result.TierBonus.StringFixed(2),
		TotalCommission:   result.TotalCommission.StringFixed(2),
		TierReached:       result.TierReached,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "trainer_id"},
			{Name: "period_start"},
			{Name: "period_end"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_sessions",
			"session_commission",
			"sales_commission",
			"tier_bonus",
			"total_commission",
			"tier_reached",
			"updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save commission calculation for trainer %s: %w", trainerID, err)
	}
	return nil
}

func (r *CalculationRecorder) History(ctx context.Context, trainerID string, limit int) ([]models.TrainerCommissionCalculation, error) {
	if limit <= 0 {
		limit = 12
	}

	var records []models.TrainerCommissionCalculation
	err := r.db.WithContext(ctx).
		Where("trainer_id = ?", trainerID).
		Order("period_start desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation history for trainer %s: %w", trainerID, err)
	}
	return records, nil
}
