package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilExporterIsSafe(t *testing.T) {
	var e *Exporter

	// All observers must be no-ops on a nil exporter so callers can run
	// without metrics wired.
	e.ObserveStage("QUERY_MARKET", time.Millisecond)
	e.ObserveRun("DONE")
	e.IncSearchError()
	e.IncPhraseError()
	e.SetPrototypeCount(3)
}

func TestExporterServesMetrics(t *testing.T) {
	e := NewExporter(DefaultConfig())

	e.ObserveStage("QUERY_MARKET", 5*time.Millisecond)
	e.ObserveRun("DONE")
	e.IncSearchError()
	e.SetPrototypeCount(7)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, metric := range []string{
		"shopsense_pipeline_stage_duration_seconds",
		"shopsense_pipeline_runs_total",
		"shopsense_search_errors_total",
		"shopsense_prototype_table_size 7",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric %q in output", metric)
		}
	}
}
