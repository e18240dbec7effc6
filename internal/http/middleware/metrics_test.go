package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/painlens-backend/internal/observability"
)

func TestMetricsRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/projects/:projectId/pain-matrix", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/projects/a/pain-matrix", "/api/projects/b/pain-matrix", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()
	if !strings.Contains(out, `route="/api/projects/:projectId/pain-matrix"`) {
		t.Fatalf("route template missing from metrics:\n%s", out)
	}
	if !strings.Contains(out, `route="unmatched"`) {
		t.Fatalf("unmatched route missing from metrics:\n%s", out)
	}
	if strings.Contains(out, "/api/projects/a/") {
		t.Fatalf("raw path leaked into labels:\n%s", out)
	}
}
