package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/http/response"
	"github.com/yungbote/painlens-backend/internal/modules/lenses/painmatrix"
	"github.com/yungbote/painlens-backend/internal/platform/apierr"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

// FallbackSegmentKind is used when no segment kind in the project has people yet.
const FallbackSegmentKind = "preference"

type ProjectLookup interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
}

type SegmentSummaries interface {
	SegmentKindSummaries(dbc dbctx.Context, projectID uuid.UUID) ([]types.SegmentKindSummary, error)
}

type PainMatrixHandler struct {
	log      *logger.Logger
	projects ProjectLookup
	segments SegmentSummaries
	matrix   painmatrix.Service
}

func NewPainMatrixHandler(log *logger.Logger, projects ProjectLookup, segments SegmentSummaries, matrix painmatrix.Service) *PainMatrixHandler {
	return &PainMatrixHandler{
		log:      log.With("handler", "PainMatrixHandler"),
		projects: projects,
		segments: segments,
		matrix:   matrix,
	}
}

type painMatrixQuery struct {
	segment      string
	segmentID    uuid.UUID
	minEvidence  int
	minGroupSize int
	refresh      bool
}

func parsePainMatrixQuery(c *gin.Context) (painMatrixQuery, *apierr.Error) {
	q := painMatrixQuery{segment: strings.TrimSpace(c.Query("segment"))}
	if raw := strings.TrimSpace(c.Query("segment_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, apierr.BadRequest("invalid_segment_id", err)
		}
		q.segmentID = id
	}
	var aerr *apierr.Error
	if q.minEvidence, aerr = positiveIntParam(c, "min_evidence"); aerr != nil {
		return q, aerr
	}
	if q.minGroupSize, aerr = positiveIntParam(c, "min_group_size"); aerr != nil {
		return q, aerr
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("refresh"))) {
	case "1", "true", "yes":
		q.refresh = true
	}
	return q, nil
}

func positiveIntParam(c *gin.Context, name string) (int, *apierr.Error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierr.BadRequest("invalid_"+name, fmt.Errorf("%s must be a positive integer", name))
	}
	return n, nil
}

// GET /api/projects/:projectId/pain-matrix
func (h *PainMatrixHandler) GetPainMatrix(c *gin.Context) {
	ctx := c.Request.Context()
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	q, aerr := parsePainMatrixQuery(c)
	if aerr != nil {
		response.RespondAPIError(c, aerr, aerr.Code)
		return
	}

	summaries := h.segmentSummaries(ctx, project.ID)
	segment := q.segment
	if segment == "" && q.segmentID == uuid.Nil {
		segment = defaultSegmentKind(summaries)
	}

	matrix, err := h.matrix.GeneratePainMatrix(ctx, painmatrix.GenerateInput{
		Input: painmatrix.Input{
			ProjectID:          project.ID,
			SegmentID:          q.segmentID,
			SegmentKindSlug:    segment,
			MinEvidencePerPain: q.minEvidence,
			MinGroupSize:       q.minGroupSize,
		},
		AccountID:    project.AccountID,
		ForceRefresh: q.refresh,
	})
	if err != nil {
		if errors.Is(err, painmatrix.ErrInvalidInput) {
			response.RespondError(c, http.StatusBadRequest, "invalid_pain_matrix_request", err)
			return
		}
		h.log.Error("pain matrix generation failed", "project_id", project.ID.String(), "segment", segment, "error", err)
		_ = c.Error(err)
		response.RespondAPIError(c, apierr.Internal("pain_matrix_failed", "failed to generate pain matrix", err), "pain_matrix_failed")
		return
	}

	response.RespondOK(c, gin.H{
		"matrix":           matrix,
		"segments":         summaries,
		"selected_segment": segment,
	})
}

// GET /api/projects/:projectId/pain-matrix/cache
func (h *PainMatrixHandler) GetCachedPainMatrix(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	matrix, err := h.matrix.GetCachedPainMatrix(c.Request.Context(), project.ID)
	if err != nil {
		h.log.Error("cached pain matrix lookup failed", "project_id", project.ID.String(), "error", err)
		_ = c.Error(err)
		response.RespondAPIError(c, apierr.Internal("pain_matrix_cache_failed", "failed to load cached pain matrix", err), "pain_matrix_cache_failed")
		return
	}
	if matrix == nil {
		response.RespondError(c, http.StatusNotFound, "pain_matrix_not_cached", errors.New("no cached pain matrix for project"))
		return
	}
	response.RespondOK(c, gin.H{"matrix": matrix})
}

func (h *PainMatrixHandler) loadProject(c *gin.Context) (*types.Project, bool) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return nil, false
	}
	project, err := h.projects.GetByID(dbctx.Context{Ctx: c.Request.Context()}, projectID)
	if err != nil {
		h.log.Error("project lookup failed", "project_id", projectID.String(), "error", err)
		response.RespondAPIError(c, apierr.Internal("project_lookup_failed", "failed to load project", err), "project_lookup_failed")
		return nil, false
	}
	if project == nil {
		response.RespondError(c, http.StatusNotFound, "project_not_found", errors.New("project not found"))
		return nil, false
	}
	return project, true
}

// segmentSummaries never fails the request; without summaries the fallback kind applies.
func (h *PainMatrixHandler) segmentSummaries(ctx context.Context, projectID uuid.UUID) []types.SegmentKindSummary {
	if h.segments == nil {
		return []types.SegmentKindSummary{}
	}
	out, err := h.segments.SegmentKindSummaries(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		h.log.Warn("segment summaries failed; using fallback segment", "project_id", projectID.String(), "error", err)
		return []types.SegmentKindSummary{}
	}
	return out
}

func defaultSegmentKind(summaries []types.SegmentKindSummary) string {
	for _, s := range summaries {
		if s.PersonCount > 0 && strings.TrimSpace(s.Kind) != "" {
			return s.Kind
		}
	}
	return FallbackSegmentKind
}
