package painmatrix

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type LinkDeps struct {
	Log      *logger.Logger
	Evidence repos.EvidenceRepo
}

// LinkPeople maps each evidence id to the distinct people attributed to it.
// Evidence without any attribution is absent from the map.
func LinkPeople(ctx context.Context, deps LinkDeps, evidenceIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	if deps.Evidence == nil || deps.Log == nil {
		return nil, ErrMissingDeps
	}
	out := map[uuid.UUID][]uuid.UUID{}
	if len(evidenceIDs) == 0 {
		return out, nil
	}
	links, err := deps.Evidence.ListPeopleLinks(dbctx.Context{Ctx: ctx}, evidenceIDs)
	if err != nil {
		return nil, fmt.Errorf("evidence people: %w", err)
	}
	seen := map[uuid.UUID]map[uuid.UUID]bool{}
	for _, l := range links {
		if l == nil || l.EvidenceID == uuid.Nil || l.PersonID == uuid.Nil {
			continue
		}
		if seen[l.EvidenceID] == nil {
			seen[l.EvidenceID] = map[uuid.UUID]bool{}
		}
		if seen[l.EvidenceID][l.PersonID] {
			continue
		}
		seen[l.EvidenceID][l.PersonID] = true
		out[l.EvidenceID] = append(out[l.EvidenceID], l.PersonID)
	}
	deps.Log.Debug("linked evidence to people", "evidence", len(evidenceIDs), "linked_evidence", len(out), "links", len(links))
	return out, nil
}

// attachPeople returns a copy of records with PersonIDs filled from links.
func attachPeople(records []PainRecord, links map[uuid.UUID][]uuid.UUID) []PainRecord {
	out := make([]PainRecord, len(records))
	for i, r := range records {
		r.PersonIDs = links[r.EvidenceID]
		out[i] = r
	}
	return out
}
