package commission

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"studioflow-system/internal/database/models"
)

// SalesVolumeSource supplies the sales axis for a trainer and period. Sales
// data lives outside the session store, so it is injected rather than
// queried here.
type SalesVolumeSource interface {
	SalesVolume(ctx context.Context, trainerID string, period Period) (decimal.Decimal, error)
}

// SessionAggregator reduces a trainer's qualifying sessions (validated, not
// cancelled, inside the period, optionally location-filtered) to the scalar
// facts the engine needs. Read-only.
type SessionAggregator struct {
	db    *gorm.DB
	sales SalesVolumeSource
}

func NewSessionAggregator(db *gorm.DB, sales SalesVolumeSource) *SessionAggregator {
	return &SessionAggregator{db: db, sales: sales}
}

func (a *SessionAggregator) AggregatePeriodFacts(ctx context.Context, trainerID string, period Period, locationIDs []string, includeSales bool) (PeriodFacts, error) {
	var rows []struct {
		SessionValue string
	}

	query := a.db.WithContext(ctx).Model(&models.Session{}).
		Select("session_value").
		Where("trainer_id = ?", trainerID).
		Where("session_date >= ? AND session_date < ?", period.Start, period.End).
		Where("validated = ?", true).
		Where("cancelled = ?", false)
	if len(locationIDs) > 0 {
		query = query.Where("location_id IN ?", locationIDs)
	}
	if err := query.Find(&rows).Error; err != nil {
		return PeriodFacts{}, fmt.Errorf("failed to load sessions for trainer %s: %w", trainerID, err)
	}

	total := decimal.Zero
	for _, row := range rows {
		value, err := decimal.NewFromString(row.SessionValue)
		if err != nil {
			return PeriodFacts{}, &ConfigurationError{TrainerID: trainerID, Reason: fmt.Sprintf("unparseable session value %q", row.SessionValue)}
		}
		if value.IsNegative() {
			return PeriodFacts{}, &ConfigurationError{TrainerID: trainerID, Reason: fmt.Sprintf("negative session value %s", value)}
		}
		total = total.Add(value)
	}

	facts := PeriodFacts{
		SessionCount:      len(rows),
		TotalSessionValue: total,
		SalesVolume:       decimal.Zero,
	}

	if includeSales {
		if a.sales == nil {
			return PeriodFacts{}, &ConfigurationError{TrainerID: trainerID, Reason: "profile trigger requires sales volume but no sales source is configured"}
		}
		volume, err := a.sales.SalesVolume(ctx, trainerID, period)
		if err != nil {
			return PeriodFacts{}, fmt.Errorf("failed to load sales volume for trainer %s: %w", trainerID, err)
		}
		if volume.IsNegative() {
			return PeriodFacts{}, &ConfigurationError{TrainerID: trainerID, Reason: fmt.Sprintf("negative sales volume %s", volume)}
		}
		facts.SalesVolume = volume
	}

	return facts, nil
}

// SalesLedgerSource sums the sale_transactions table. The default
// SalesVolumeSource when no external sales system is wired in.
type SalesLedgerSource struct {
	db *gorm.DB
}

func NewSalesLedgerSource(db *gorm.DB) *SalesLedgerSource {
	return &SalesLedgerSource{db: db}
}

func (s *SalesLedgerSource) SalesVolume(ctx context.Context, trainerID string, period Period) (decimal.Decimal, error) {
	var result struct {
		Total string
	}
	err := s.db.WithContext(ctx).Model(&models.SaleTransaction{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("trainer_id = ?", trainerID).
		Where("transaction_date >= ? AND transaction_date < ?", period.Start, period.End).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(result.Total)
}
