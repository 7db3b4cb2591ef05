package commission

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"studioflow-system/internal/database/models"
)

// TrainerRef is the slice of trainer identity a report row needs.
type TrainerRef struct {
	ID   string
	Name string
}

// OrganizationDirectory answers the two org-level questions the service
// asks: which timezone governs a trainer's periods, and who is on an
// organization's active roster.
type OrganizationDirectory struct {
	db *gorm.DB
}

func NewOrganizationDirectory(db *gorm.DB) *OrganizationDirectory {
	return &OrganizationDirectory{db: db}
}

// OrganizationForTrainer returns the organization a trainer belongs to. An
// unknown trainer surfaces gorm.ErrRecordNotFound so tenant checks treat
// missing and foreign trainers identically.
func (d *OrganizationDirectory) OrganizationForTrainer(ctx context.Context, trainerID string) (string, error) {
	var trainer models.Trainer
	err := d.db.WithContext(ctx).Select("organization_id").First(&trainer, "id = ?", trainerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to load trainer %s: %w", trainerID, err)
	}
	return trainer.OrganizationID, nil
}

func (d *OrganizationDirectory) TimezoneForTrainer(ctx context.Context, trainerID string) (string, error) {
	var trainer models.Trainer
	err := d.db.WithContext(ctx).Select("organization_id").First(&trainer, "id = ?", trainerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &NoProfileAssignedError{TrainerID: trainerID}
		}
		return "", fmt.Errorf("failed to load trainer %s: %w", trainerID, err)
	}

	var org models.Organization
	err = d.db.WithContext(ctx).Select("timezone").First(&org, "id = ?", trainer.OrganizationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &ConfigurationError{TrainerID: trainerID, Reason: fmt.Sprintf("organization %s not found", trainer.OrganizationID)}
		}
		return "", fmt.Errorf("failed to load organization %s: %w", trainer.OrganizationID, err)
	}
	return org.Timezone, nil
}

func (d *OrganizationDirectory) ActiveTrainers(ctx context.Context, organizationID string) ([]TrainerRef, error) {
	var trainers []models.Trainer
	err := d.db.WithContext(ctx).
		Select("id, trainer_name").
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Order("trainer_name asc").
		Find(&trainers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trainers for organization %s: %w", organizationID, err)
	}

	refs := make([]TrainerRef, 0, len(trainers))
	for _, t := range trainers {
		refs = append(refs, TrainerRef{ID: t.ID, Name: t.TrainerName})
	}
	return refs, nil
}
