package research

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Person struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string    `gorm:"type:text;not null;default:''" json:"name"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Person) TableName() string { return "people" }

func (p *Person) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FacetAccount is an account-level facet value (e.g. kind "persona", label "Admins").
// People tagged with the same FacetAccount form a segment.
type FacetAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	KindSlug  string    `gorm:"type:text;not null;index" json:"kind_slug"`
	Slug      string    `gorm:"type:text;not null" json:"slug"`
	Label     string    `gorm:"type:text;not null" json:"label"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (FacetAccount) TableName() string { return "facet_account" }

func (f *FacetAccount) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

type PersonFacet struct {
	PersonID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"person_id"`
	FacetAccountID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"facet_account_id"`
	ProjectID      uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (PersonFacet) TableName() string { return "person_facet" }
