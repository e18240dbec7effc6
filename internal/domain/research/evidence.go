package research

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evidence is one interview or survey excerpt.
//
// Pains is the legacy flat pain list; newer rows leave it null and attach EvidenceFacet rows
// with kind_slug "pain" instead. Both shapes can coexist within a project.
type Evidence struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	AccountID uuid.UUID `gorm:"type:uuid;index" json:"account_id"`

	Verbatim   string `gorm:"type:text;not null;default:''" json:"verbatim"`
	Confidence string `gorm:"type:text;not null;default:''" json:"confidence"`

	// Optional willingness-to-pay signal (high|medium|low|none). Empty means no signal.
	WillingnessToPay string `gorm:"column:willingness_to_pay;type:text;not null;default:''" json:"willingness_to_pay"`

	Pains datatypes.JSONSlice[string] `gorm:"column:pains" json:"pains,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Evidence) TableName() string { return "evidence" }

func (e *Evidence) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EvidenceFacet is a structured attribute tag attached to evidence (kind_slug "pain", "gain", ...).
// Embedding holds the label embedding as a JSON float array once the embed job has run.
type EvidenceFacet struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index:idx_evidence_facet_project_kind" json:"project_id"`
	EvidenceID uuid.UUID `gorm:"type:uuid;not null;index" json:"evidence_id"`
	KindSlug   string    `gorm:"type:text;not null;index:idx_evidence_facet_project_kind" json:"kind_slug"`
	Label      string    `gorm:"type:text;not null" json:"label"`

	Embedding datatypes.JSON `gorm:"column:embedding" json:"embedding,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (EvidenceFacet) TableName() string { return "evidence_facet" }

func (f *EvidenceFacet) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// EvidencePerson attributes evidence to a person. Group interviews produce several rows per evidence.
type EvidencePerson struct {
	EvidenceID uuid.UUID `gorm:"type:uuid;primaryKey" json:"evidence_id"`
	PersonID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"person_id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	Role       string    `gorm:"type:text;not null;default:''" json:"role"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (EvidencePerson) TableName() string { return "evidence_people" }
