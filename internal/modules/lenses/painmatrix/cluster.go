package painmatrix

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

const (
	StrategySemantic = "semantic"
	StrategyLabel    = "label"
)

type ClusterInput struct {
	ProjectID           uuid.UUID
	Records             []PainRecord
	MinEvidencePerPain  int
	SimilarityThreshold float64
}

// ClusteringStrategy turns normalized pain records into themes.
type ClusteringStrategy interface {
	Name() string
	Cluster(ctx context.Context, in ClusterInput) ([]PainTheme, error)
}

type labelBucket struct {
	label       string
	evidenceIDs []uuid.UUID
}

// bucketByLabel groups records by normalized label and keeps buckets with at least
// minEvidence distinct evidence items. Buckets come back sorted by label.
func bucketByLabel(records []PainRecord, minEvidence int) []*labelBucket {
	byLabel := map[string]*labelBucket{}
	seen := map[string]map[uuid.UUID]bool{}
	for _, r := range records {
		label := normalizeLabel(r.PainLabel)
		if label == "" {
			continue
		}
		b := byLabel[label]
		if b == nil {
			b = &labelBucket{label: label}
			byLabel[label] = b
			seen[label] = map[uuid.UUID]bool{}
		}
		if seen[label][r.EvidenceID] {
			continue
		}
		seen[label][r.EvidenceID] = true
		b.evidenceIDs = append(b.evidenceIDs, r.EvidenceID)
	}
	out := make([]*labelBucket, 0, len(byLabel))
	for _, b := range byLabel {
		if len(b.evidenceIDs) >= minEvidence {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// LabelStrategy makes one theme per surviving label. It never fails.
type LabelStrategy struct{}

func (LabelStrategy) Name() string { return StrategyLabel }

func (LabelStrategy) Cluster(_ context.Context, in ClusterInput) ([]PainTheme, error) {
	buckets := bucketByLabel(in.Records, in.MinEvidencePerPain)
	groups := make([][]*labelBucket, 0, len(buckets))
	for _, b := range buckets {
		groups = append(groups, []*labelBucket{b})
	}
	return themesFromGroups(groups, "Pain theme: "), nil
}

// SemanticStrategy merges labels the facet similarity search pairs up.
type SemanticStrategy struct {
	Facets repos.FacetRepo
}

func (SemanticStrategy) Name() string { return StrategySemantic }

func (s SemanticStrategy) Cluster(ctx context.Context, in ClusterInput) ([]PainTheme, error) {
	if s.Facets == nil {
		return nil, ErrMissingDeps
	}
	buckets := bucketByLabel(in.Records, in.MinEvidencePerPain)
	if len(buckets) == 0 {
		return []PainTheme{}, nil
	}
	pairs, err := s.Facets.FindClusters(dbctx.Context{Ctx: ctx}, in.ProjectID, types.FacetKindPain, in.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(buckets))
	byLabel := make(map[string]*labelBucket, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.label)
		byLabel[b.label] = b
	}
	ds := newDisjointSet(labels)
	for _, p := range pairs {
		a, b := normalizeLabel(p.Label1), normalizeLabel(p.Label2)
		if byLabel[a] == nil || byLabel[b] == nil {
			continue
		}
		ds.union(a, b)
	}

	components := map[string][]*labelBucket{}
	for _, label := range labels {
		root := ds.find(label)
		components[root] = append(components[root], byLabel[label])
	}
	groups := make([][]*labelBucket, 0, len(components))
	for _, members := range components {
		groups = append(groups, members)
	}
	return themesFromGroups(groups, "Semantic cluster: "), nil
}

// disjointSet is built per clustering call; nothing is shared between calls.
type disjointSet struct {
	parent map[string]string
	rank   map[string]int
}

func newDisjointSet(keys []string) *disjointSet {
	ds := &disjointSet{
		parent: make(map[string]string, len(keys)),
		rank:   make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		ds.parent[k] = k
	}
	return ds
}

func (d *disjointSet) find(k string) string {
	p, ok := d.parent[k]
	if !ok {
		d.parent[k] = k
		return k
	}
	if p == k {
		return k
	}
	root := d.find(p)
	d.parent[k] = root
	return root
}

func (d *disjointSet) union(a, b string) {
	ra := d.find(a)
	rb := d.find(b)
	if ra == rb {
		return
	}
	if d.rank[ra] < d.rank[rb] {
		d.parent[ra] = rb
		return
	}
	if d.rank[ra] > d.rank[rb] {
		d.parent[rb] = ra
		return
	}
	d.parent[rb] = ra
	d.rank[ra]++
}

// representative picks the member with the most evidence; ties go to the
// lexicographically smallest label.
func representative(members []*labelBucket) string {
	best := members[0]
	for _, m := range members[1:] {
		if len(m.evidenceIDs) > len(best.evidenceIDs) ||
			(len(m.evidenceIDs) == len(best.evidenceIDs) && m.label < best.label) {
			best = m
		}
	}
	return best.label
}

func themesFromGroups(groups [][]*labelBucket, descPrefix string) []PainTheme {
	out := make([]PainTheme, 0, len(groups))
	for _, members := range groups {
		if len(members) == 0 {
			continue
		}
		name := representative(members)
		seen := map[uuid.UUID]bool{}
		var ids []uuid.UUID
		labels := make([]string, 0, len(members))
		for _, m := range members {
			labels = append(labels, m.label)
			for _, id := range m.evidenceIDs {
				if seen[id] {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Strings(labels)
		out = append(out, PainTheme{
			ID:            themeID(name),
			Name:          name,
			Description:   descPrefix + name,
			Labels:        labels,
			EvidenceIDs:   ids,
			EvidenceCount: len(ids),
		})
	}
	sortThemes(out)
	dedupeThemeIDs(out)
	return out
}

func sortThemes(themes []PainTheme) {
	sort.SliceStable(themes, func(i, j int) bool {
		if themes[i].EvidenceCount != themes[j].EvidenceCount {
			return themes[i].EvidenceCount > themes[j].EvidenceCount
		}
		return themes[i].ID < themes[j].ID
	})
}

// themeID lowercases the name and collapses whitespace runs to single dashes.
func themeID(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), unicode.IsSpace)
	return "pain-" + strings.Join(fields, "-")
}

// dedupeThemeIDs suffixes ids that collide after slugging ("a  b" and "a b").
// A suffixed id never takes another theme's natural id ("a b 2").
func dedupeThemeIDs(themes []PainTheme) {
	used := make(map[string]bool, len(themes))
	for _, t := range themes {
		used[t.ID] = true
	}
	claimed := make(map[string]bool, len(themes))
	for i := range themes {
		base := themes[i].ID
		if !claimed[base] {
			claimed[base] = true
			continue
		}
		n := 2
		id := fmt.Sprintf("%s-%d", base, n)
		for used[id] {
			n++
			id = fmt.Sprintf("%s-%d", base, n)
		}
		used[id] = true
		claimed[id] = true
		themes[i].ID = id
	}
}

type ClusterDeps struct {
	Log    *logger.Logger
	Facets repos.FacetRepo
}

// SelectStrategy returns the semantic strategy when the project has pain embeddings,
// and the label strategy otherwise (including when the capability check itself fails).
func SelectStrategy(ctx context.Context, deps ClusterDeps, projectID uuid.UUID) ClusteringStrategy {
	if deps.Facets == nil {
		return LabelStrategy{}
	}
	n, err := deps.Facets.CountEmbedded(dbctx.Context{Ctx: ctx}, projectID, types.FacetKindPain)
	if err != nil {
		if deps.Log != nil {
			deps.Log.Warn("pain embedding lookup failed; using label clustering", "project_id", projectID.String(), "error", err)
		}
		return LabelStrategy{}
	}
	if n == 0 {
		if deps.Log != nil {
			deps.Log.Warn("no pain embeddings; using label clustering", "project_id", projectID.String())
		}
		return LabelStrategy{}
	}
	return SemanticStrategy{Facets: deps.Facets}
}

// ClusterPains runs the selected strategy and falls back to label clustering when the
// semantic path errors. It only fails for missing deps or a cancelled context.
func ClusterPains(ctx context.Context, deps ClusterDeps, in ClusterInput) ([]PainTheme, string, error) {
	if deps.Log == nil {
		return nil, "", ErrMissingDeps
	}
	if in.MinEvidencePerPain < 1 {
		in.MinEvidencePerPain = 1
	}
	if len(bucketByLabel(in.Records, in.MinEvidencePerPain)) == 0 {
		return []PainTheme{}, StrategyLabel, nil
	}

	strategy := SelectStrategy(ctx, deps, in.ProjectID)
	themes, err := strategy.Cluster(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		deps.Log.Warn("pain clustering failed; using label clustering",
			"project_id", in.ProjectID.String(),
			"strategy", strategy.Name(),
			"error", err,
		)
		strategy = LabelStrategy{}
		themes, _ = strategy.Cluster(ctx, in)
	}
	deps.Log.Info("clustered pains",
		"project_id", in.ProjectID.String(),
		"strategy", strategy.Name(),
		"themes", len(themes),
	)
	return themes, strategy.Name(), nil
}
