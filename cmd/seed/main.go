package main

import (
	"log"
	"time"

	"studioflow-system/config"
	"studioflow-system/internal/database"
	"studioflow-system/internal/database/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	org := models.Organization{
		Name:     "Eastside Performance Studio",
		Timezone: "Asia/Singapore",
		IsActive: true,
	}
	if err := db.Create(&org).Error; err != nil {
		log.Fatalf("Failed to create organization: %v", err)
	}

	downtown := models.Location{OrganizationID: org.ID, Name: "Downtown", IsActive: true}
	riverside := models.Location{OrganizationID: org.ID, Name: "Riverside", IsActive: true}
	if err := db.Create(&downtown).Error; err != nil {
		log.Fatalf("Failed to create location: %v", err)
	}
	if err := db.Create(&riverside).Error; err != nil {
		log.Fatalf("Failed to create location: %v", err)
	}

	progressive := models.CommissionProfile{
		OrganizationID:    org.ID,
		Name:              "Progressive Standard",
		CalculationMethod: "progressive",
		TriggerType:       "session_count",
		IsDefault:         true,
		IsActive:          true,
		Tiers: []models.CommissionTier{
			{TierLevel: 1, SessionThreshold: intPtr(1), SessionCommissionPercent: strPtr("40.00")},
			{TierLevel: 2, SessionThreshold: intPtr(11), SessionCommissionPercent: strPtr("50.00")},
			{TierLevel: 3, SessionThreshold: intPtr(21), SessionCommissionPercent: strPtr("60.00")},
		},
	}
	graduated := models.CommissionProfile{
		OrganizationID:    org.ID,
		Name:              "Graduated Brackets",
		CalculationMethod: "graduated",
		TriggerType:       "session_count",
		IsActive:          true,
		Tiers: []models.CommissionTier{
			{TierLevel: 1, SessionThreshold: intPtr(1), SessionCommissionPercent: strPtr("40.00")},
			{TierLevel: 2, SessionThreshold: intPtr(11), SessionCommissionPercent: strPtr("50.00"), TierBonus: strPtr("50.00")},
			{TierLevel: 3, SessionThreshold: intPtr(21), SessionCommissionPercent: strPtr("60.00"), TierBonus: strPtr("100.00")},
		},
	}
	flat := models.CommissionProfile{
		OrganizationID:    org.ID,
		Name:              "Flat Fifty",
		CalculationMethod: "flat",
		TriggerType:       "none",
		IsActive:          true,
		Tiers: []models.CommissionTier{
			{TierLevel: 1, SessionCommissionPercent: strPtr("50.00")},
		},
	}
	hybrid := models.CommissionProfile{
		OrganizationID:    org.ID,
		Name:              "Hybrid Sales Push",
		CalculationMethod: "progressive",
		TriggerType:       "both_and",
		IsActive:          true,
		Tiers: []models.CommissionTier{
			{TierLevel: 1, SessionThreshold: intPtr(0), SessionCommissionPercent: strPtr("35.00")},
			{TierLevel: 2, SessionThreshold: intPtr(10), SalesThreshold: strPtr("1000.00"), SessionCommissionPercent: strPtr("45.00"), SalesCommissionPercent: strPtr("5.00"), TierBonus: strPtr("150.00")},
		},
	}
	for _, profile := range []*models.CommissionProfile{&progressive, &graduated, &flat, &hybrid} {
		if err := db.Create(profile).Error; err != nil {
			log.Fatalf("Failed to create profile %s: %v", profile.Name, err)
		}
	}

	trainers := []models.Trainer{
		{OrganizationID: org.ID, TrainerName: "Ana Lim", Email: "ana@eastside.example", CommissionProfileID: &progressive.ID, IsActive: true},
		{OrganizationID: org.ID, TrainerName: "Ben Ortiz", Email: "ben@eastside.example", CommissionProfileID: &graduated.ID, IsActive: true},
		{OrganizationID: org.ID, TrainerName: "Carla Wong", Email: "carla@eastside.example", CommissionProfileID: &flat.ID, IsActive: true},
		{OrganizationID: org.ID, TrainerName: "Dev Nair", Email: "dev@eastside.example", CommissionProfileID: &hybrid.ID, IsActive: true},
		{OrganizationID: org.ID, TrainerName: "Eli Tan", Email: "eli@eastside.example", IsActive: true}, // no profile, exercises report degradation
	}
	for i := range trainers {
		if err := db.Create(&trainers[i]).Error; err != nil {
			log.Fatalf("Failed to create trainer: %v", err)
		}
	}

	sgt, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}
	now := time.Now().In(sgt)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, sgt)

	for _, trainer := range trainers[:4] {
		for day := 0; day < 20; day++ {
			session := models.Session{
				OrganizationID: org.ID,
				TrainerID:      trainer.ID,
				LocationID:     downtown.ID,
				ClientName:     "Member",
				SessionDate:    monthStart.Add(time.Duration(day)*24*time.Hour + 9*time.Hour).UTC(),
				SessionValue:   "100.00",
				Validated:      true,
				Cancelled:      false,
			}
			if day%2 == 1 {
				session.LocationID = riverside.ID
			}
			if err := db.Create(&session).Error; err != nil {
				log.Fatalf("Failed to create session: %v", err)
			}
		}

		// One cancelled and one unvalidated session per trainer; neither
		// should move the numbers.
		excluded := []models.Session{
			{OrganizationID: org.ID, TrainerID: trainer.ID, LocationID: downtown.ID, SessionDate: monthStart.Add(30 * time.Minute).UTC(), SessionValue: "100.00", Validated: true, Cancelled: true},
			{OrganizationID: org.ID, TrainerID: trainer.ID, LocationID: downtown.ID, SessionDate: monthStart.Add(30 * time.Minute).UTC(), SessionValue: "100.00", Validated: false, Cancelled: false},
		}
		for i := range excluded {
			if err := db.Create(&excluded[i]).Error; err != nil {
				log.Fatalf("Failed to create session: %v", err)
			}
		}
	}

	sale := models.SaleTransaction{
		OrganizationID:  org.ID,
		TrainerID:       trainers[3].ID,
		Amount:          "1500.00",
		Description:     "12-pack PT package",
		TransactionDate: monthStart.Add(72 * time.Hour).UTC(),
	}
	if err := db.Create(&sale).Error; err != nil {
		log.Fatalf("Failed to create sale transaction: %v", err)
	}

	log.Printf("Seeded organization %s with %d trainers", org.ID, len(trainers))
}
