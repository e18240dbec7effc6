package research

import "github.com/google/uuid"

// UserGroup is a derived segment of people. It is computed on read and never stored on its own.
type UserGroup struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	KindSlug    string      `json:"kind_slug"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
	MemberCount int         `json:"member_count"`
}

// SegmentKindSummary counts the project people tagged with at least one facet of a kind.
type SegmentKindSummary struct {
	Kind        string `json:"kind"`
	PersonCount int    `json:"person_count"`
}
