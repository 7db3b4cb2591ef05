package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommissionProfile is the per-organization compensation structure assigned
// to trainers. Soft-deleted profiles (is_active = false) are excluded from
// assignment but retained for stored calculations.
type CommissionProfile struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	OrganizationID    string `gorm:"type:uuid;index;not null"`
	Name              string `gorm:"not null"`
	CalculationMethod string `gorm:"not null"` // flat | progressive | graduated
	TriggerType       string `gorm:"not null"` // none | session_count | sales_volume | either_or | both_and
	IsDefault         bool   `gorm:"default:false"`
	IsActive          bool   `gorm:"default:true"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`

	Tiers []CommissionTier `gorm:"foreignKey:ProfileID"`
}

// CommissionTier is one rung of a profile's ladder. Threshold and rate
// columns are nullable; an unset axis does not participate. Per axis a tier
// carries either a percentage or a flat fee, never both.
type CommissionTier struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ProfileID string `gorm:"type:uuid;index;not null"`
	TierLevel int    `gorm:"not null"`

	SessionThreshold         *int
	SalesThreshold           *string `gorm:"type:decimal(18,2)"`
	SessionCommissionPercent *string `gorm:"type:decimal(5,2)"`
	SessionFlatFee           *string `gorm:"type:decimal(18,2)"`
	SalesCommissionPercent   *string `gorm:"type:decimal(5,2)"`
	SalesFlatFee             *string `gorm:"type:decimal(18,2)"`
	TierBonus                *string `gorm:"type:decimal(18,2)"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

// TrainerCommissionCalculation is the persisted result of one period
// calculation. The (trainer_id, period_start, period_end) unique index is
// what the recorder upserts against, so re-running a period overwrites
// instead of duplicating.
type TrainerCommissionCalculation struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	TrainerID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_trainer_period,priority:1"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_trainer_period,priority:2"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_trainer_period,priority:3"`

	TotalSessions     int    `gorm:"not null"`
	SessionCommission string `gorm:"type:decimal(18,2);not null"`
	SalesCommission   string `gorm:"type:decimal(18,2);not null"`
	TierBonus         string `gorm:"type:decimal(18,2);not null"`
	TotalCommission   string `gorm:"type:decimal(18,2);not null"`
	TierReached       int    `gorm:"not null"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

func (p *CommissionProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (t *CommissionTier) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (c *TrainerCommissionCalculation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
