package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Organization struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	Name     string `gorm:"not null"`
	Timezone string // IANA zone name, empty means the configured default
	IsActive bool   `gorm:"default:true"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`

	Locations []Location `gorm:"foreignKey:OrganizationID"`
	Trainers  []Trainer  `gorm:"foreignKey:OrganizationID"`
}

type Location struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrganizationID string `gorm:"type:uuid;index;not null"`
	Name           string `gorm:"not null"`
	Address        string `gorm:"type:text"`
	IsActive       bool   `gorm:"default:true"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

type Trainer struct {
	ID                  string  `gorm:"type:uuid;primaryKey"`
	OrganizationID      string  `gorm:"type:uuid;index;not null"`
	TrainerName         string  `gorm:"not null"`
	Email               string  `gorm:"index"`
	Phone               string
	CommissionProfileID *string `gorm:"type:uuid;index"`
	IsActive            bool    `gorm:"default:true"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`

	CommissionProfile *CommissionProfile `gorm:"foreignKey:CommissionProfileID"`
}

// Session is the unit of trainer activity. SessionDate is the attribution
// field for period membership, not CreatedAt.
type Session struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	OrganizationID string    `gorm:"type:uuid;index;not null"`
	TrainerID      string    `gorm:"type:uuid;index;not null"`
	LocationID     string    `gorm:"type:uuid;index"`
	ClientName     string
	SessionDate    time.Time `gorm:"index;not null"`
	SessionValue   string    `gorm:"type:decimal(18,2);not null"`
	Validated      bool      `gorm:"default:false"`
	Cancelled      bool      `gorm:"default:false"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

// SaleTransaction records product/package sales attributed to a trainer.
// Summed into the sales volume axis when a profile's trigger requires it.
type SaleTransaction struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	OrganizationID  string    `gorm:"type:uuid;index;not null"`
	TrainerID       string    `gorm:"type:uuid;index;not null"`
	Amount          string    `gorm:"type:decimal(18,2);not null"`
	Description     string
	TransactionDate time.Time `gorm:"index;not null"`

	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (t *Trainer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *SaleTransaction) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
