package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	CommitsTotal.WithLabelValues("completed").Inc()
	AttachmentUploads.WithLabelValues("logo", "failed").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		`club_console_commits_total{outcome="completed"}`,
		`club_console_attachment_uploads_total{outcome="failed",slot="logo"}`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCounterValues(t *testing.T) {
	before := testutil.ToFloat64(AllocationAttempts.WithLabelValues("record"))
	AllocationAttempts.WithLabelValues("record").Add(3)
	if got := testutil.ToFloat64(AllocationAttempts.WithLabelValues("record")) - before; got != 3 {
		t.Errorf("trial delta = %v, want 3", got)
	}
}
