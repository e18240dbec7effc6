package painmatrix

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/painlens-backend/internal/domain"
)

// UserGroup is supplied by the group derivation collaborator and embedded in cells as-is.
type UserGroup = types.UserGroup

type SourceFormat string

const (
	SourceLegacy  SourceFormat = "legacy"
	SourceFaceted SourceFormat = "faceted"
)

// PainRecord is one pain mention tied to one evidence item. Legacy evidence with several
// pains yields several records sharing an EvidenceID.
type PainRecord struct {
	EvidenceID       uuid.UUID    `json:"evidence_id"`
	Verbatim         string       `json:"verbatim"`
	Confidence       string       `json:"confidence"`
	WillingnessToPay string       `json:"willingness_to_pay,omitempty"`
	PainLabel        string       `json:"pain_label"`
	SourceFormat     SourceFormat `json:"source_format"`
	PersonIDs        []uuid.UUID  `json:"person_ids,omitempty"`
}

// PainTheme is a cluster of related pain labels.
type PainTheme struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Labels        []string    `json:"labels"`
	EvidenceIDs   []uuid.UUID `json:"evidence_ids"`
	EvidenceCount int         `json:"evidence_count"`
}

// Intensity is a categorical pain intensity; the empty value encodes as JSON null.
type Intensity string

const (
	IntensityCritical Intensity = "critical"
	IntensityHigh     Intensity = "high"
	IntensityMedium   Intensity = "medium"
	IntensityLow      Intensity = "low"
)

func (i Intensity) MarshalJSON() ([]byte, error) { return nullableString(string(i)) }

func (i *Intensity) UnmarshalJSON(b []byte) error {
	s, err := parseNullableString(b)
	*i = Intensity(s)
	return err
}

// WTP is a categorical willingness-to-pay level; the empty value encodes as JSON null.
type WTP string

const (
	WTPHigh   WTP = "high"
	WTPMedium WTP = "medium"
	WTPLow    WTP = "low"
	WTPNone   WTP = "none"
)

func (w WTP) MarshalJSON() ([]byte, error) { return nullableString(string(w)) }

func (w *WTP) UnmarshalJSON(b []byte) error {
	s, err := parseNullableString(b)
	*w = WTP(s)
	return err
}

type CellMetrics struct {
	Frequency        float64   `json:"frequency"`
	Intensity        Intensity `json:"intensity"`
	IntensityScore   float64   `json:"intensity_score"`
	WillingnessToPay WTP       `json:"willingness_to_pay"`
	WTPScore         float64   `json:"wtp_score"`
	ImpactScore      float64   `json:"impact_score"`
}

type CellEvidence struct {
	Count           int         `json:"count"`
	SampleVerbatims []string    `json:"sample_verbatims"`
	EvidenceIDs     []uuid.UUID `json:"evidence_ids"`
	PersonIDs       []uuid.UUID `json:"person_ids"`
	PersonCount     int         `json:"person_count"`
}

// MatrixCell pairs one pain theme with one user group. Cells only exist when Evidence.Count > 0.
type MatrixCell struct {
	PainThemeID   string       `json:"pain_theme_id"`
	PainThemeName string       `json:"pain_theme_name"`
	UserGroup     UserGroup    `json:"user_group"`
	Metrics       CellMetrics  `json:"metrics"`
	Evidence      CellEvidence `json:"evidence"`
}

type Summary struct {
	TotalPains      int `json:"total_pains"`
	TotalGroups     int `json:"total_groups"`
	TotalEvidence   int `json:"total_evidence"`
	HighImpactCells int `json:"high_impact_cells"`
}

// BuildParams echoes the inputs a matrix was built with.
type BuildParams struct {
	MinEvidencePerPain  int     `json:"min_evidence_per_pain"`
	MinGroupSize        int     `json:"min_group_size"`
	SegmentID           string  `json:"segment_id,omitempty"`
	SegmentKindSlug     string  `json:"segment_kind_slug,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ClusteringStrategy  string  `json:"clustering_strategy"`
}

// sameSelection reports whether two builds asked for the same evidence and group selection.
func (p BuildParams) sameSelection(o BuildParams) bool {
	return p.MinEvidencePerPain == o.MinEvidencePerPain &&
		p.MinGroupSize == o.MinGroupSize &&
		p.SegmentID == o.SegmentID &&
		p.SegmentKindSlug == o.SegmentKindSlug
}

type CacheMetadata struct {
	CachedAt           time.Time `json:"cached_at"`
	IsStale            bool      `json:"is_stale"`
	EvidenceCountDelta int       `json:"evidence_count_delta"`
}

type PainMatrix struct {
	PainThemes    []PainTheme    `json:"pain_themes"`
	UserGroups    []UserGroup    `json:"user_groups"`
	Cells         []MatrixCell   `json:"cells"`
	Summary       Summary        `json:"summary"`
	Insights      string         `json:"insights"`
	Params        BuildParams    `json:"params"`
	GeneratedAt   time.Time      `json:"generated_at"`
	CacheMetadata *CacheMetadata `json:"cache_metadata,omitempty"`
}

func nullableString(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func parseNullableString(b []byte) (string, error) {
	if string(b) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}
