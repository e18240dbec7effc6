package domain

import (
	"github.com/yungbote/painlens-backend/internal/domain/lenses"
	"github.com/yungbote/painlens-backend/internal/domain/research"
)

type Project = research.Project
type Evidence = research.Evidence
type EvidenceFacet = research.EvidenceFacet
type EvidencePerson = research.EvidencePerson
type Person = research.Person
type FacetAccount = research.FacetAccount
type PersonFacet = research.PersonFacet

type UserGroup = research.UserGroup
type SegmentKindSummary = research.SegmentKindSummary

type PainMatrixCache = lenses.PainMatrixCache

const (
	FacetKindPain = "pain"
)

// Models returns every persisted model in migration order.
func Models() []any {
	return []any{
		&Project{},
		&Person{},
		&Evidence{},
		&EvidenceFacet{},
		&EvidencePerson{},
		&FacetAccount{},
		&PersonFacet{},
		&PainMatrixCache{},
	}
}
