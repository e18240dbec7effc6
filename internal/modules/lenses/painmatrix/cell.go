package painmatrix

import (
	"strings"

	"github.com/google/uuid"
)

var intensityScores = map[string]float64{
	"critical": 1.0,
	"high":     0.75,
	"medium":   0.5,
	"low":      0.25,
}

var wtpScores = map[string]float64{
	"high":   1.0,
	"medium": 0.66,
	"low":    0.33,
	"none":   0,
}

const neutralScore = 0.5

func intensityValue(confidence string) float64 {
	if v, ok := intensityScores[strings.ToLower(strings.TrimSpace(confidence))]; ok {
		return v
	}
	return neutralScore
}

// wtpValue reports false when the evidence carries no willingness-to-pay signal at all.
func wtpValue(raw string) (float64, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0, false
	}
	if v, ok := wtpScores[raw]; ok {
		return v, true
	}
	return neutralScore, true
}

func intensityLevel(score float64) Intensity {
	switch {
	case score >= 0.85:
		return IntensityCritical
	case score >= 0.65:
		return IntensityHigh
	case score >= 0.40:
		return IntensityMedium
	case score > 0:
		return IntensityLow
	default:
		return ""
	}
}

func wtpLevel(score float64) WTP {
	switch {
	case score >= 0.8:
		return WTPHigh
	case score >= 0.5:
		return WTPMedium
	case score >= 0.2:
		return WTPLow
	case score > 0:
		return WTPNone
	default:
		return ""
	}
}

func groupSizeFactor(memberCount, max int) float64 {
	if max < 1 {
		max = 1
	}
	switch {
	case memberCount < 1:
		return 1
	case memberCount > max:
		return float64(max)
	default:
		return float64(memberCount)
	}
}

// BuildMatrixCell scores one theme for one group. It returns false when no evidence of
// the theme is attributed to any group member; such pairs are not part of the matrix.
func BuildMatrixCell(theme PainTheme, group UserGroup, records []PainRecord, cfg Config) (MatrixCell, bool) {
	cfg = cfg.normalized()

	inTheme := make(map[uuid.UUID]bool, len(theme.EvidenceIDs))
	for _, id := range theme.EvidenceIDs {
		inTheme[id] = true
	}
	members := make(map[uuid.UUID]bool, len(group.MemberIDs))
	for _, id := range group.MemberIDs {
		members[id] = true
	}

	// One entry per evidence item; legacy evidence can contribute several records.
	var matched []PainRecord
	seenEvidence := map[uuid.UUID]bool{}
	seenPerson := map[uuid.UUID]bool{}
	var personIDs []uuid.UUID
	for _, r := range records {
		if !inTheme[r.EvidenceID] {
			continue
		}
		hit := false
		for _, pid := range r.PersonIDs {
			if !members[pid] {
				continue
			}
			hit = true
			if !seenPerson[pid] {
				seenPerson[pid] = true
				personIDs = append(personIDs, pid)
			}
		}
		if !hit || seenEvidence[r.EvidenceID] {
			continue
		}
		seenEvidence[r.EvidenceID] = true
		matched = append(matched, r)
	}
	if len(matched) == 0 {
		return MatrixCell{}, false
	}

	frequency := 0.0
	if group.MemberCount > 0 {
		frequency = float64(len(personIDs)) / float64(group.MemberCount)
	}

	var intensitySum, wtpSum float64
	wtpSignals := 0
	evidenceIDs := make([]uuid.UUID, 0, len(matched))
	samples := make([]string, 0, cfg.MaxSampleVerbatims)
	for _, r := range matched {
		evidenceIDs = append(evidenceIDs, r.EvidenceID)
		intensitySum += intensityValue(r.Confidence)
		if v, ok := wtpValue(r.WillingnessToPay); ok {
			wtpSum += v
			wtpSignals++
		}
		if v := strings.TrimSpace(r.Verbatim); v != "" && len(samples) < cfg.MaxSampleVerbatims {
			samples = append(samples, r.Verbatim)
		}
	}
	intensityScore := intensitySum / float64(len(matched))
	wtpScore := neutralScore
	if wtpSignals > 0 {
		wtpScore = wtpSum / float64(wtpSignals)
	}

	impact := frequency * groupSizeFactor(group.MemberCount, cfg.MaxGroupSizeFactor) * intensityScore * wtpScore

	return MatrixCell{
		PainThemeID:   theme.ID,
		PainThemeName: theme.Name,
		UserGroup:     group,
		Metrics: CellMetrics{
			Frequency:        frequency,
			Intensity:        intensityLevel(intensityScore),
			IntensityScore:   intensityScore,
			WillingnessToPay: wtpLevel(wtpScore),
			WTPScore:         wtpScore,
			ImpactScore:      impact,
		},
		Evidence: CellEvidence{
			Count:           len(evidenceIDs),
			SampleVerbatims: samples,
			EvidenceIDs:     evidenceIDs,
			PersonIDs:       personIDs,
			PersonCount:     len(personIDs),
		},
	}, true
}
