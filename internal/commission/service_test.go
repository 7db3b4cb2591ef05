package commission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"studioflow-system/internal/database/models"
)

type fakeProfiles struct {
	profiles map[string]Profile
}

func (f *fakeProfiles) ResolveProfile(_ context.Context, trainerID string) (Profile, error) {
	p, ok := f.profiles[trainerID]
	if !ok {
		return Profile{}, &NoProfileAssignedError{TrainerID: trainerID}
	}
	return p, nil
}

type fakeAggregator struct {
	facts map[string]PeriodFacts

	mu              sync.Mutex
	lastIncludeSale bool
}

func (f *fakeAggregator) AggregatePeriodFacts(_ context.Context, trainerID string, _ Period, _ []string, includeSales bool) (PeriodFacts, error) {
	f.mu.Lock()
	f.lastIncludeSale = includeSales
	f.mu.Unlock()
	return f.facts[trainerID], nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	saves   int
	records map[string]models.TrainerCommissionCalculation
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: make(map[string]models.TrainerCommissionCalculation)}
}

func (f *fakeRecorder) Save(_ context.Context, trainerID string, period Period, result CommissionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	key := trainerID + "|" + period.Start.Format(time.RFC3339) + "|" + period.End.Format(time.RFC3339)
	f.records[key] = models.TrainerCommissionCalculation{
		TrainerID:         trainerID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		TotalSessions:     result.TotalSessions,
		TierReached:       result.TierReached,
		SessionCommission: FormatAmount(result.SessionCommission),
		SalesCommission:   FormatAmount(result.SalesCommission),
		TierBonus:         FormatAmount(result.TierBonus),
		TotalCommission:   FormatAmount(result.TotalCommission),
	}
	return nil
}

func (f *fakeRecorder) History(_ context.Context, trainerID string, _ int) ([]models.TrainerCommissionCalculation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TrainerCommissionCalculation, 0, len(f.records))
	for _, rec := range f.records {
		if rec.TrainerID == trainerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeDirectory places every trainer in testOrg unless orgs overrides it.
type fakeDirectory struct {
	tz       string
	trainers []TrainerRef
	orgs     map[string]string
}

const testOrg = "org-1"

func (f *fakeDirectory) OrganizationForTrainer(_ context.Context, trainerID string) (string, error) {
	if f.orgs != nil {
		org, ok := f.orgs[trainerID]
		if !ok {
			return "", gorm.ErrRecordNotFound
		}
		return org, nil
	}
	return testOrg, nil
}

func (f *fakeDirectory) TimezoneForTrainer(_ context.Context, _ string) (string, error) {
	return f.tz, nil
}

func (f *fakeDirectory) ActiveTrainers(_ context.Context, _ string) ([]TrainerRef, error) {
	return f.trainers, nil
}

func newTestService(profiles map[string]Profile, facts map[string]PeriodFacts, recorder *fakeRecorder, trainers []TrainerRef) *Service {
	return NewService(
		&fakeAggregator{facts: facts},
		&fakeProfiles{profiles: profiles},
		recorder,
		&fakeDirectory{tz: "Asia/Singapore", trainers: trainers},
		nil,
		"UTC",
	)
}

func TestPreviewDoesNotSave(t *testing.T) {
	recorder := newFakeRecorder()
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodProgressive)},
		map[string]PeriodFacts{"t1": factsOf(20, "2000", "0")},
		recorder,
		nil,
	)

	result, err := svc.Preview(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", result.TotalCommission.StringFixed(2))
	assert.Equal(t, 0, recorder.saves)
}

func TestCalculateAndRecordSaves(t *testing.T) {
	recorder := newFakeRecorder()
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodProgressive)},
		map[string]PeriodFacts{"t1": factsOf(20, "2000", "0")},
		recorder,
		nil,
	)

	result, err := svc.CalculateAndRecord(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", result.TotalCommission.StringFixed(2))
	assert.Equal(t, 1, recorder.saves)
	require.Len(t, recorder.records, 1)
	for _, rec := range recorder.records {
		assert.Equal(t, "t1", rec.TrainerID)
		assert.Equal(t, "1000.00", rec.TotalCommission)
		assert.Equal(t, 2, rec.TierReached)
	}
}

func TestCalculateAndRecordIsIdempotentPerPeriod(t *testing.T) {
	recorder := newFakeRecorder()
	aggregator := &fakeAggregator{facts: map[string]PeriodFacts{"t1": factsOf(10, "1000", "0")}}
	svc := NewService(
		aggregator,
		&fakeProfiles{profiles: map[string]Profile{"t1": standardLadder(MethodProgressive)}},
		recorder,
		&fakeDirectory{tz: "UTC"},
		nil,
		"UTC",
	)

	_, err := svc.CalculateAndRecord(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)

	// More sessions land before the recalculation; the stored record must be
	// replaced, not duplicated.
	aggregator.facts["t1"] = factsOf(20, "2000", "0")
	_, err = svc.CalculateAndRecord(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)

	require.Len(t, recorder.records, 1)
	for _, rec := range recorder.records {
		assert.Equal(t, 20, rec.TotalSessions)
		assert.Equal(t, "1000.00", rec.TotalCommission)
	}
}

func TestTrainerOutsideOrganizationIsHidden(t *testing.T) {
	recorder := newFakeRecorder()
	svc := NewService(
		&fakeAggregator{facts: map[string]PeriodFacts{"t1": factsOf(20, "2000", "0")}},
		&fakeProfiles{profiles: map[string]Profile{"t1": standardLadder(MethodProgressive)}},
		recorder,
		&fakeDirectory{tz: "UTC", orgs: map[string]string{"t1": "org-b"}},
		nil,
		"UTC",
	)

	req := CalcRequest{Year: 2025, Month: 3}

	_, err := svc.Preview(context.Background(), "org-a", "t1", req)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.CalculateAndRecord(context.Background(), "org-a", "t1", req)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, recorder.saves)

	_, err = svc.History(context.Background(), "org-a", "t1", 12)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.CommissionSettings(context.Background(), "org-a", "t1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The trainer's own organization still gets through.
	result, err := svc.Preview(context.Background(), "org-b", "t1", req)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", result.TotalCommission.StringFixed(2))
}

func TestCommissionSettingsReturnsResolvedProfile(t *testing.T) {
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodGraduated)},
		nil,
		newFakeRecorder(),
		nil,
	)

	profile, err := svc.CommissionSettings(context.Background(), testOrg, "t1")
	require.NoError(t, err)
	assert.Equal(t, MethodGraduated, profile.Method)
	assert.Len(t, profile.Tiers, 3)
}

func TestExplicitPeriodOverridesYearMonth(t *testing.T) {
	recorder := newFakeRecorder()
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodProgressive)},
		map[string]PeriodFacts{"t1": factsOf(5, "500", "0")},
		recorder,
		nil,
	)

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	_, err := svc.CalculateAndRecord(context.Background(), testOrg, "t1", CalcRequest{Period: &Period{Start: start, End: end}})
	require.NoError(t, err)

	require.Len(t, recorder.records, 1)
	for _, rec := range recorder.records {
		assert.True(t, rec.PeriodStart.Equal(start))
		assert.True(t, rec.PeriodEnd.Equal(end))
	}
}

func TestInvertedPeriodRejected(t *testing.T) {
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodProgressive)},
		map[string]PeriodFacts{"t1": factsOf(5, "500", "0")},
		newFakeRecorder(),
		nil,
	)

	start := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.Preview(context.Background(), testOrg, "t1", CalcRequest{Period: &Period{Start: start, End: end}})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "t1", cfgErr.TrainerID)
}

func TestPreviewWithoutProfile(t *testing.T) {
	svc := newTestService(nil, nil, newFakeRecorder(), nil)

	_, err := svc.Preview(context.Background(), testOrg, "ghost", CalcRequest{Year: 2025, Month: 3})
	var noProfile *NoProfileAssignedError
	require.ErrorAs(t, err, &noProfile)
	assert.Equal(t, "ghost", noProfile.TrainerID)
}

func TestMonthlyReportContinuesPastMissingProfile(t *testing.T) {
	recorder := newFakeRecorder()
	trainers := []TrainerRef{
		{ID: "t1", Name: "Ana"},
		{ID: "t2", Name: "Ben"},
		{ID: "t3", Name: "Eli"}, // no profile assigned
	}
	svc := newTestService(
		map[string]Profile{
			"t1": standardLadder(MethodProgressive),
			"t2": standardLadder(MethodGraduated),
		},
		map[string]PeriodFacts{
			"t1": factsOf(20, "2000", "0"),
			"t2": factsOf(20, "2000", "0"),
		},
		recorder,
		trainers,
	)

	report, err := svc.MonthlyReport(context.Background(), testOrg, 2025, 3, false, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, 1, report.ErrorCount)

	byID := make(map[string]ReportRow, len(report.Rows))
	for _, row := range report.Rows {
		byID[row.TrainerID] = row
	}
	require.NotNil(t, byID["t1"].Result)
	require.NotNil(t, byID["t2"].Result)
	assert.Nil(t, byID["t3"].Result)
	assert.NotEmpty(t, byID["t3"].Error)

	// 1000 progressive + 900 graduated; the failed row contributes nothing.
	assert.Equal(t, "1900.00", report.TotalCommission.StringFixed(2))
	assert.Equal(t, 0, recorder.saves)
}

func TestMonthlyReportRecordsWhenAsked(t *testing.T) {
	recorder := newFakeRecorder()
	trainers := []TrainerRef{
		{ID: "t1", Name: "Ana"},
		{ID: "t2", Name: "Ben"},
	}
	svc := newTestService(
		map[string]Profile{
			"t1": standardLadder(MethodProgressive),
			"t2": standardLadder(MethodProgressive),
		},
		map[string]PeriodFacts{
			"t1": factsOf(10, "1000", "0"),
			"t2": factsOf(10, "1000", "0"),
		},
		recorder,
		trainers,
	)

	report, err := svc.MonthlyReport(context.Background(), testOrg, 2025, 3, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Equal(t, 2, recorder.saves)
	assert.Len(t, recorder.records, 2)
}

func TestHistoryLimitDefaultsAndClamps(t *testing.T) {
	recorder := newFakeRecorder()
	svc := newTestService(
		map[string]Profile{"t1": standardLadder(MethodProgressive)},
		map[string]PeriodFacts{"t1": factsOf(10, "1000", "0")},
		recorder,
		nil,
	)

	for year := 2020; year <= 2024; year++ {
		for month := 1; month <= 12; month++ {
			_, err := svc.CalculateAndRecord(context.Background(), testOrg, "t1", CalcRequest{Year: year, Month: month})
			require.NoError(t, err)
		}
	}

	records, err := svc.History(context.Background(), testOrg, "t1", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// No limit falls back to the default page.
	records, err = svc.History(context.Background(), testOrg, "t1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 12)

	// An oversized limit is clamped to the retention depth, not reset.
	records, err = svc.History(context.Background(), testOrg, "t1", 60)
	require.NoError(t, err)
	assert.Len(t, records, 50)
}

func TestSalesVolumeOnlyAggregatedWhenTriggered(t *testing.T) {
	aggregator := &fakeAggregator{facts: map[string]PeriodFacts{"t1": factsOf(10, "1000", "0")}}
	profiles := map[string]Profile{"t1": standardLadder(MethodProgressive)}
	svc := NewService(
		aggregator,
		&fakeProfiles{profiles: profiles},
		newFakeRecorder(),
		&fakeDirectory{tz: "UTC"},
		nil,
		"UTC",
	)

	_, err := svc.Preview(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.False(t, aggregator.lastIncludeSale)

	salesProfile := standardLadder(MethodProgressive)
	salesProfile.Trigger = TriggerBothAnd
	profiles["t1"] = salesProfile

	_, err = svc.Preview(context.Background(), testOrg, "t1", CalcRequest{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.True(t, aggregator.lastIncludeSale)
}
