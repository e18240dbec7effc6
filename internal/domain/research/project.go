package research

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a research workspace owned by an account. Evidence, people and facets are all project-scoped.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Name      string    `gorm:"type:text;not null" json:"name"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
