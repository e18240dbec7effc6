package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/modules/lenses/painmatrix"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type fakeProjects struct {
	rows map[uuid.UUID]*types.Project
	err  error
}

func (f *fakeProjects) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[id], nil
}

type fakeSegments struct {
	out []types.SegmentKindSummary
	err error
}

func (f *fakeSegments) SegmentKindSummaries(dbctx.Context, uuid.UUID) ([]types.SegmentKindSummary, error) {
	return f.out, f.err
}

type fakeMatrixService struct {
	last      painmatrix.GenerateInput
	calls     int
	matrix    *painmatrix.PainMatrix
	cached    *painmatrix.PainMatrix
	err       error
	cachedErr error
}

func (f *fakeMatrixService) GeneratePainMatrix(_ context.Context, in painmatrix.GenerateInput) (*painmatrix.PainMatrix, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return f.matrix, nil
}

func (f *fakeMatrixService) GetCachedPainMatrix(context.Context, uuid.UUID) (*painmatrix.PainMatrix, error) {
	return f.cached, f.cachedErr
}

type handlerFixture struct {
	project  *types.Project
	projects *fakeProjects
	segments *fakeSegments
	svc      *fakeMatrixService
	engine   *gin.Engine
}

func newHandlerFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)
	project := &types.Project{ID: uuid.New(), AccountID: uuid.New(), Name: "p"}
	f := &handlerFixture{
		project:  project,
		projects: &fakeProjects{rows: map[uuid.UUID]*types.Project{project.ID: project}},
		segments: &fakeSegments{out: []types.SegmentKindSummary{{Kind: "role", PersonCount: 0}, {Kind: "persona", PersonCount: 4}}},
		svc: &fakeMatrixService{matrix: &painmatrix.PainMatrix{
			PainThemes: []painmatrix.PainTheme{},
			UserGroups: []painmatrix.UserGroup{},
			Cells:      []painmatrix.MatrixCell{},
			Insights:   "No significant pain points found in the data.",
		}},
	}
	h := NewPainMatrixHandler(logger.Nop(), f.projects, f.segments, f.svc)
	f.engine = gin.New()
	f.engine.GET("/api/projects/:projectId/pain-matrix", h.GetPainMatrix)
	f.engine.GET("/api/projects/:projectId/pain-matrix/cache", h.GetCachedPainMatrix)
	return f
}

func (f *handlerFixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *handlerFixture) matrixPath(query string) string {
	p := "/api/projects/" + f.project.ID.String() + "/pain-matrix"
	if query != "" {
		p += "?" + query
	}
	return p
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestGetPainMatrix_DefaultSegmentAndAccount(t *testing.T) {
	f := newHandlerFixture()

	rec := f.get(f.matrixPath(""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if f.svc.last.SegmentKindSlug != "persona" {
		t.Fatalf("default segment should be the first kind with people, got %q", f.svc.last.SegmentKindSlug)
	}
	if f.svc.last.AccountID != f.project.AccountID || f.svc.last.ProjectID != f.project.ID {
		t.Fatalf("project/account not forwarded: %+v", f.svc.last)
	}
	if f.svc.last.ForceRefresh {
		t.Fatalf("refresh should default to false")
	}

	var body struct {
		Matrix          painmatrix.PainMatrix      `json:"matrix"`
		Segments        []types.SegmentKindSummary `json:"segments"`
		SelectedSegment string                     `json:"selected_segment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SelectedSegment != "persona" || len(body.Segments) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Matrix.Insights != "No significant pain points found in the data." {
		t.Fatalf("matrix not returned: %+v", body.Matrix)
	}
}

func TestGetPainMatrix_FallbackSegment(t *testing.T) {
	for name, seg := range map[string]*fakeSegments{
		"no people":       {out: []types.SegmentKindSummary{{Kind: "persona", PersonCount: 0}}},
		"summaries error": {err: errors.New("boom")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newHandlerFixture()
			f.segments.out, f.segments.err = seg.out, seg.err
			if rec := f.get(f.matrixPath("")); rec.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if f.svc.last.SegmentKindSlug != FallbackSegmentKind {
				t.Fatalf("want fallback %q, got %q", FallbackSegmentKind, f.svc.last.SegmentKindSlug)
			}
		})
	}
}

func TestGetPainMatrix_QueryParams(t *testing.T) {
	f := newHandlerFixture()
	segID := uuid.New()

	rec := f.get(f.matrixPath("segment=role&min_evidence=1&min_group_size=3&refresh=true"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := f.svc.last
	if got.SegmentKindSlug != "role" || got.MinEvidencePerPain != 1 || got.MinGroupSize != 3 || !got.ForceRefresh {
		t.Fatalf("query not forwarded: %+v", got)
	}

	rec = f.get(f.matrixPath("segment_id=" + segID.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if f.svc.last.SegmentID != segID || f.svc.last.SegmentKindSlug != "" {
		t.Fatalf("segment id should skip the default kind: %+v", f.svc.last)
	}
}

func TestGetPainMatrix_BadRequests(t *testing.T) {
	cases := map[string]struct {
		path string
		code string
	}{
		"project id":     {path: "/api/projects/not-a-uuid/pain-matrix", code: "invalid_project_id"},
		"segment id":     {path: "?segment_id=nope", code: "invalid_segment_id"},
		"min evidence":   {path: "?min_evidence=0", code: "invalid_min_evidence"},
		"min group size": {path: "?min_group_size=abc", code: "invalid_min_group_size"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newHandlerFixture()
			path := tc.path
			if path[0] == '?' {
				path = f.matrixPath(path[1:])
			}
			rec := f.get(path)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Error.Code != tc.code {
				t.Fatalf("code=%q want %q", body.Error.Code, tc.code)
			}
			if f.svc.calls != 0 {
				t.Fatalf("service should not be called")
			}
		})
	}
}

func TestGetPainMatrix_ProjectNotFound(t *testing.T) {
	f := newHandlerFixture()
	rec := f.get("/api/projects/" + uuid.New().String() + "/pain-matrix")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Error.Code != "project_not_found" {
		t.Fatalf("code=%q", body.Error.Code)
	}
}

func TestGetPainMatrix_GenerationFailureHidesCause(t *testing.T) {
	f := newHandlerFixture()
	f.svc.err = &painmatrix.GenerationError{Stage: "normalize", Err: errors.New("pq: relation evidence does not exist")}

	rec := f.get(f.matrixPath(""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeError(t, rec)
	if body.Error.Message != "failed to generate pain matrix" || body.Error.Code != "pain_matrix_failed" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestGetPainMatrix_ProjectLookupFailure(t *testing.T) {
	f := newHandlerFixture()
	f.projects.err = errors.New("connection reset")
	rec := f.get(f.matrixPath(""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Message != "failed to load project" {
		t.Fatalf("cause leaked: %+v", body)
	}
}

func TestGetCachedPainMatrix(t *testing.T) {
	f := newHandlerFixture()
	path := f.matrixPath("")
	path = path + "/cache"

	rec := f.get(path)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no cache: status=%d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Code != "pain_matrix_not_cached" {
		t.Fatalf("code=%q", body.Error.Code)
	}

	f.svc.cached = &painmatrix.PainMatrix{
		Insights:      "cached",
		CacheMetadata: &painmatrix.CacheMetadata{IsStale: true, EvidenceCountDelta: 20},
	}
	rec = f.get(path)
	if rec.Code != http.StatusOK {
		t.Fatalf("cached: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Matrix painmatrix.PainMatrix `json:"matrix"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Matrix.CacheMetadata == nil || !body.Matrix.CacheMetadata.IsStale || body.Matrix.CacheMetadata.EvidenceCountDelta != 20 {
		t.Fatalf("cache metadata lost: %+v", body.Matrix.CacheMetadata)
	}
	if f.svc.calls != 0 {
		t.Fatalf("cache endpoint must not generate")
	}

	f.svc.cachedErr = errors.New("db down")
	if rec := f.get(path); rec.Code != http.StatusInternalServerError {
		t.Fatalf("cache error: status=%d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(map[string]Pinger{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("down") },
	})
	r := gin.New()
	r.GET("/healthcheck", h.HealthCheck)
	r.GET("/readyz", h.Ready)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with a failing check: %d", rec.Code)
	}
}
