package commission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"studioflow-system/internal/database/models"
)

const (
	historyCachePrefix = "commission_history:"
	historyCacheTTL    = 2 * time.Hour
	historyCacheDepth  = 50

	reportCachePrefix = "commission_report:"
	reportCacheTTL    = 15 * time.Minute
)

// FactsAggregator loads the scalar inputs for one trainer and period.
type FactsAggregator interface {
	AggregatePeriodFacts(ctx context.Context, trainerID string, period Period, locationIDs []string, includeSales bool) (PeriodFacts, error)
}

// ProfileSource resolves a trainer's assigned compensation structure.
type ProfileSource interface {
	ResolveProfile(ctx context.Context, trainerID string) (Profile, error)
}

// Recorder persists results and serves their history.
type Recorder interface {
	Save(ctx context.Context, trainerID string, period Period, result CommissionResult) error
	History(ctx context.Context, trainerID string, limit int) ([]models.TrainerCommissionCalculation, error)
}

// StudioDirectory answers org-level lookups for tenant scoping, period
// resolution, and report fan-out.
type StudioDirectory interface {
	OrganizationForTrainer(ctx context.Context, trainerID string) (string, error)
	TimezoneForTrainer(ctx context.Context, trainerID string) (string, error)
	ActiveTrainers(ctx context.Context, organizationID string) ([]TrainerRef, error)
}

// CalcRequest names the period to calculate. Year/Month are resolved in the
// trainer's organization timezone; an explicit Period overrides them.
type CalcRequest struct {
	Year        int
	Month       int
	Period      *Period
	LocationIDs []string
}

// ReportRow is one trainer's line in a monthly report. A trainer whose
// calculation failed stays in the report with Error set instead of being
// dropped.
type ReportRow struct {
	TrainerID   string            `json:"trainer_id"`
	TrainerName string            `json:"trainer_name"`
	Result      *CommissionResult `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// MonthlyReport aggregates every active trainer of one organization over
// one period.
type MonthlyReport struct {
	OrganizationID  string          `json:"organization_id"`
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	Period          Period          `json:"period"`
	Rows            []ReportRow     `json:"rows"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	ErrorCount      int             `json:"error_count"`
}

// Service composes period resolution, profile resolution, fact aggregation,
// the tier engine, and recording into the public commission operations.
// Every trainer-keyed operation takes the caller's organization id and
// refuses trainers outside it.
type Service struct {
	aggregator FactsAggregator
	profiles   ProfileSource
	recorder   Recorder
	directory  StudioDirectory
	redis      *redis.Client
	defaultTZ  string
}

func NewService(aggregator FactsAggregator, profiles ProfileSource, recorder Recorder, directory StudioDirectory, redisClient *redis.Client, defaultTZ string) *Service {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Service{
		aggregator: aggregator,
		profiles:   profiles,
		recorder:   recorder,
		directory:  directory,
		redis:      redisClient,
		defaultTZ:  defaultTZ,
	}
}

// Preview computes a trainer's commission without touching history. Used by
// live dashboards and mid-month checks.
func (s *Service) Preview(ctx context.Context, organizationID, trainerID string, req CalcRequest) (CommissionResult, error) {
	if err := s.authorizeTrainer(ctx, organizationID, trainerID); err != nil {
		return CommissionResult{}, err
	}
	result, _, err := s.compute(ctx, trainerID, req)
	return result, err
}

// CalculateAndRecord computes and upserts the result as the period's stored
// calculation. Re-running the same period overwrites the prior record.
func (s *Service) CalculateAndRecord(ctx context.Context, organizationID, trainerID string, req CalcRequest) (CommissionResult, error) {
	if err := s.authorizeTrainer(ctx, organizationID, trainerID); err != nil {
		return CommissionResult{}, err
	}
	result, period, err := s.compute(ctx, trainerID, req)
	if err != nil {
		return CommissionResult{}, err
	}
	if err := s.recorder.Save(ctx, trainerID, period, result); err != nil {
		return CommissionResult{}, err
	}
	s.invalidateHistory(ctx, trainerID)
	s.invalidateReports(ctx, organizationID)
	return result, nil
}

// History returns stored calculations, most recent period first.
func (s *Service) History(ctx context.Context, organizationID, trainerID string, limit int) ([]models.TrainerCommissionCalculation, error) {
	if err := s.authorizeTrainer(ctx, organizationID, trainerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 12
	} else if limit > historyCacheDepth {
		limit = historyCacheDepth
	}

	if cached, ok := s.cachedHistory(ctx, trainerID); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	records, err := s.recorder.History(ctx, trainerID, historyCacheDepth)
	if err != nil {
		return nil, err
	}
	s.cacheHistory(ctx, trainerID, records)

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CommissionSettings exposes a trainer's resolved profile to that trainer's
// own organization.
func (s *Service) CommissionSettings(ctx context.Context, organizationID, trainerID string) (Profile, error) {
	if err := s.authorizeTrainer(ctx, organizationID, trainerID); err != nil {
		return Profile{}, err
	}
	return s.profiles.ResolveProfile(ctx, trainerID)
}

// MonthlyReport calculates every active trainer concurrently. Each trainer
// is independent, so one missing profile becomes an inline error row rather
// than aborting the batch. Unfiltered read-only reports are cached per
// organization and period.
func (s *Service) MonthlyReport(ctx context.Context, organizationID string, year, month int, record bool, locationIDs []string) (MonthlyReport, error) {
	cacheable := !record && len(locationIDs) == 0
	if cacheable {
		if cached, ok := s.cachedReport(ctx, organizationID, year, month); ok {
			return cached, nil
		}
	}

	trainers, err := s.directory.ActiveTrainers(ctx, organizationID)
	if err != nil {
		return MonthlyReport{}, err
	}

	report := MonthlyReport{
		OrganizationID:  organizationID,
		Year:            year,
		Month:           month,
		Rows:            make([]ReportRow, len(trainers)),
		TotalCommission: decimal.Zero,
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i, trainer := range trainers {
		wg.Add(1)
		go func(idx int, ref TrainerRef) {
			defer wg.Done()

			req := CalcRequest{Year: year, Month: month, LocationIDs: locationIDs}
			var (
				result CommissionResult
				err    error
				period Period
			)
			result, period, err = s.compute(ctx, ref.ID, req)
			if err == nil && record {
				err = s.recorder.Save(ctx, ref.ID, period, result)
				if err == nil {
					s.invalidateHistory(ctx, ref.ID)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			row := ReportRow{TrainerID: ref.ID, TrainerName: ref.Name}
			if err != nil {
				row.Error = err.Error()
				report.ErrorCount++
			} else {
				r := result
				row.Result = &r
				report.TotalCommission = report.TotalCommission.Add(result.TotalCommission)
			}
			report.Rows[idx] = row
		}(i, trainer)
	}

	wg.Wait()

	if len(trainers) > 0 {
		// All rows share the period; recompute once for the report header.
		if period, perr := s.resolvePeriod(ctx, trainers[0].ID, CalcRequest{Year: year, Month: month}); perr == nil {
			report.Period = period
		}
	}

	if record {
		s.invalidateReports(ctx, organizationID)
	} else if cacheable {
		s.cacheReport(ctx, organizationID, year, month, report)
	}

	return report, nil
}

// authorizeTrainer confirms the trainer belongs to the caller's
// organization. A trainer outside it is indistinguishable from one that
// does not exist.
func (s *Service) authorizeTrainer(ctx context.Context, organizationID, trainerID string) error {
	org, err := s.directory.OrganizationForTrainer(ctx, trainerID)
	if err != nil {
		return err
	}
	if org != organizationID {
		return fmt.Errorf("trainer %s is not in organization %s: %w", trainerID, organizationID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Service) compute(ctx context.Context, trainerID string, req CalcRequest) (CommissionResult, Period, error) {
	profile, err := s.profiles.ResolveProfile(ctx, trainerID)
	if err != nil {
		return CommissionResult{}, Period{}, err
	}

	period, err := s.resolvePeriod(ctx, trainerID, req)
	if err != nil {
		return CommissionResult{}, Period{}, err
	}

	facts, err := s.aggregator.AggregatePeriodFacts(ctx, trainerID, period, req.LocationIDs, profile.Trigger.RequiresSalesVolume())
	if err != nil {
		return CommissionResult{}, Period{}, err
	}

	result, err := ComputeCommission(facts, profile)
	if err != nil {
		return CommissionResult{}, Period{}, err
	}
	return result, period, nil
}

func (s *Service) resolvePeriod(ctx context.Context, trainerID string, req CalcRequest) (Period, error) {
	if req.Period != nil {
		if !req.Period.End.After(req.Period.Start) {
			return Period{}, &ConfigurationError{TrainerID: trainerID, Reason: "period end must be after period start"}
		}
		return *req.Period, nil
	}

	tz, err := s.directory.TimezoneForTrainer(ctx, trainerID)
	if err != nil {
		return Period{}, err
	}
	if tz == "" {
		tz = s.defaultTZ
	}
	period, err := ResolveMonthBounds(req.Year, req.Month, tz)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.TrainerID = trainerID
		}
		return Period{}, err
	}
	return period, nil
}

func (s *Service) cachedHistory(ctx context.Context, trainerID string) ([]models.TrainerCommissionCalculation, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, historyCachePrefix+trainerID).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error on GET: %v. Falling back to DB.", err)
		}
		return nil, false
	}
	var records []models.TrainerCommissionCalculation
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, false
	}
	return records, true
}

func (s *Service) cacheHistory(ctx context.Context, trainerID string, records []models.TrainerCommissionCalculation) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	key := historyCachePrefix + trainerID
	if err := s.redis.Set(ctx, key, data, historyCacheTTL).Err(); err != nil {
		log.Printf("Failed to set cache for key %s: %v", key, err)
	}
}

func (s *Service) invalidateHistory(ctx context.Context, trainerID string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, historyCachePrefix+trainerID).Err()
}

func reportCacheKey(organizationID string, year, month int) string {
	return fmt.Sprintf("%s%s:%04d-%02d", reportCachePrefix, organizationID, year, month)
}

func (s *Service) cachedReport(ctx context.Context, organizationID string, year, month int) (MonthlyReport, bool) {
	if s.redis == nil {
		return MonthlyReport{}, false
	}
	val, err := s.redis.Get(ctx, reportCacheKey(organizationID, year, month)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error on GET: %v. Falling back to DB.", err)
		}
		return MonthlyReport{}, false
	}
	var report MonthlyReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return MonthlyReport{}, false
	}
	return report, true
}

func (s *Service) cacheReport(ctx context.Context, organizationID string, year, month int, report MonthlyReport) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	key := reportCacheKey(organizationID, year, month)
	if err := s.redis.Set(ctx, key, data, reportCacheTTL).Err(); err != nil {
		log.Printf("Failed to set cache for key %s: %v", key, err)
	}
}

func (s *Service) invalidateReports(ctx context.Context, organizationID string) {
	if s.redis == nil {
		return
	}
	keys, err := s.redis.Keys(ctx, reportCachePrefix+organizationID+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = s.redis.Del(ctx, keys...).Err()
}

// FormatAmount renders a decimal the way stored records do.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
