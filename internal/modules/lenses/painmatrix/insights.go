package painmatrix

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/painlens-backend/internal/platform/openai"
)

// InsightCell is the slice of a cell the insight generator sees.
type InsightCell struct {
	PainName         string    `json:"pain_name"`
	GroupName        string    `json:"group_name"`
	ImpactScore      float64   `json:"impact_score"`
	Frequency        float64   `json:"frequency"`
	Intensity        Intensity `json:"intensity"`
	WillingnessToPay WTP       `json:"willingness_to_pay"`
	PersonCount      int       `json:"person_count"`
	EvidenceCount    int       `json:"evidence_count"`
	SampleQuote      string    `json:"sample_quote,omitempty"`
}

type InsightInput struct {
	TotalPains      int           `json:"total_pains"`
	TotalGroups     int           `json:"total_groups"`
	TotalEvidence   int           `json:"total_evidence"`
	HighImpactCells int           `json:"high_impact_cells"`
	TopCells        []InsightCell `json:"top_cells"`
}

type InsightResult struct {
	Summary     string   `json:"summary" jsonschema:"required"`
	Top3Actions []string `json:"top_3_actions" jsonschema:"required"`
}

// InsightGenerator turns a matrix summary into narrative text.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, in InsightInput) (InsightResult, error)
}

// buildInsightInput takes cells already sorted by impact.
func buildInsightInput(summary Summary, cells []MatrixCell, topN int) InsightInput {
	if topN < 1 {
		topN = 10
	}
	in := InsightInput{
		TotalPains:      summary.TotalPains,
		TotalGroups:     summary.TotalGroups,
		TotalEvidence:   summary.TotalEvidence,
		HighImpactCells: summary.HighImpactCells,
		TopCells:        make([]InsightCell, 0, min(topN, len(cells))),
	}
	for i, c := range cells {
		if i >= topN {
			break
		}
		quote := ""
		if len(c.Evidence.SampleVerbatims) > 0 {
			quote = c.Evidence.SampleVerbatims[0]
		}
		in.TopCells = append(in.TopCells, InsightCell{
			PainName:         c.PainThemeName,
			GroupName:        c.UserGroup.Name,
			ImpactScore:      math.Round(c.Metrics.ImpactScore*100) / 100,
			Frequency:        c.Metrics.Frequency,
			Intensity:        c.Metrics.Intensity,
			WillingnessToPay: c.Metrics.WillingnessToPay,
			PersonCount:      c.Evidence.PersonCount,
			EvidenceCount:    c.Evidence.Count,
			SampleQuote:      quote,
		})
	}
	return in
}

// formatInsights joins the summary and a numbered action list.
func formatInsights(res InsightResult) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(res.Summary))
	n := 0
	for _, a := range res.Top3Actions {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if n == 0 {
			b.WriteString("\n\nRecommended actions:")
		}
		n++
		fmt.Fprintf(&b, "\n%d. %s", n, a)
	}
	return b.String()
}

const insightSystemPrompt = `You analyze a pain x user-group matrix built from customer research.
Each cell scores how strongly one pain theme affects one user group (impact_score combines how many
group members mention it, how intense it is, and how willing they are to pay for a fix; 1.0 or more
is high impact).
Write a short executive summary (2-4 sentences) naming the most important pains and the groups they
hit hardest, then give exactly three concrete, prioritized actions a product team should take.
Only use facts present in the input.`

// LLMInsightGenerator asks the model for a structured summary.
type LLMInsightGenerator struct {
	AI     openai.Client
	schema map[string]any
}

func NewLLMInsightGenerator(ai openai.Client) (*LLMInsightGenerator, error) {
	if ai == nil {
		return nil, ErrMissingDeps
	}
	schema, err := openai.SchemaFor[InsightResult]()
	if err != nil {
		return nil, fmt.Errorf("insight schema: %w", err)
	}
	return &LLMInsightGenerator{AI: ai, schema: schema}, nil
}

func (g *LLMInsightGenerator) GenerateInsights(ctx context.Context, in InsightInput) (InsightResult, error) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return InsightResult{}, err
	}
	obj, err := g.AI.GenerateJSON(ctx, insightSystemPrompt, string(payload), "pain_matrix_insights", g.schema)
	if err != nil {
		return InsightResult{}, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return InsightResult{}, err
	}
	var out InsightResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return InsightResult{}, fmt.Errorf("decode insights: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return InsightResult{}, fmt.Errorf("insights: empty summary")
	}
	return out, nil
}

// TemplateInsightGenerator writes insights from the numbers alone. It never fails.
type TemplateInsightGenerator struct {
	HighImpactThreshold float64
}

func (g TemplateInsightGenerator) GenerateInsights(_ context.Context, in InsightInput) (InsightResult, error) {
	threshold := g.HighImpactThreshold
	if threshold <= 0 {
		threshold = 1.0
	}
	if len(in.TopCells) == 0 {
		return InsightResult{
			Summary: fmt.Sprintf("No pain theme could be tied to any of your %d user segments yet (%d evidence items analyzed).",
				in.TotalGroups, in.TotalEvidence),
			Top3Actions: []string{
				"Link interview evidence to the people who said it.",
				"Tag more evidence with pain facets.",
				"Lower the minimum evidence per pain to surface emerging themes.",
			},
		}, nil
	}

	top := in.TopCells[0]
	var summary string
	if in.HighImpactCells == 0 {
		summary = fmt.Sprintf("Your %d user segments experience %d pain themes across %d evidence items. No single pain reaches high impact (>=%.1f); the strongest is %q for %s (score: %.2f).",
			in.TotalGroups, in.TotalPains, in.TotalEvidence, threshold, top.PainName, top.GroupName, top.ImpactScore)
	} else {
		summary = fmt.Sprintf("Your %d user segments experience %d pain themes across %d evidence items. %q has the highest impact on %s (score: %.2f), with %d%% of the segment reporting it. %d high-impact opportunities (>=%.1f) identified.",
			in.TotalGroups, in.TotalPains, in.TotalEvidence, top.PainName, top.GroupName, top.ImpactScore,
			int(math.Round(top.Frequency*100)), in.HighImpactCells, threshold)
	}

	actions := make([]string, 0, 3)
	seen := map[string]bool{}
	for _, c := range in.TopCells {
		if len(actions) == 3 {
			break
		}
		key := c.PainName + "\x00" + c.GroupName
		if seen[key] {
			continue
		}
		seen[key] = true
		actions = append(actions, fmt.Sprintf("Address %q for %s (impact %.2f, %d people).", c.PainName, c.GroupName, c.ImpactScore, c.PersonCount))
	}
	return InsightResult{Summary: summary, Top3Actions: actions}, nil
}
