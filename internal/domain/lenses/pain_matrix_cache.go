package lenses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PainMatrixCache holds the last computed pain matrix for a project (one row per project).
// EvidenceCount is the project evidence count observed at build time and drives staleness checks.
type PainMatrixCache struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`

	MatrixData datatypes.JSON `gorm:"column:matrix_data;not null" json:"matrix_data"`
	Insights   string         `gorm:"type:text;not null;default:''" json:"insights"`

	EvidenceCount  int `gorm:"not null;default:0" json:"evidence_count"`
	PainCount      int `gorm:"not null;default:0" json:"pain_count"`
	UserGroupCount int `gorm:"not null;default:0" json:"user_group_count"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (PainMatrixCache) TableName() string { return "pain_matrix_cache" }

func (c *PainMatrixCache) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
