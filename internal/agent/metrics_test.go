package agent

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	if NewMetrics() != NewMetrics() {
		t.Fatal("NewMetrics returned distinct instances")
	}
}

func TestNilMetricsMethodsAreSafe(t *testing.T) {
	var m *Metrics
	m.StreamStarted()
	m.StreamFinished()
	m.RecordEmitted()
	m.ToolCallExecuted()
	m.ErrorEmitted()
}

func TestErrorRecordsIncrementStreamErrors(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.StreamErrors)

	tr := NewTranslator(nil)
	recs := tr.Translate(MalformedUnit{Err: errors.New("bad shape")}, NewArgAccumulator())
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}

	if got := testutil.ToFloat64(m.StreamErrors); got != before+1 {
		t.Errorf("stream errors = %v, want %v", got, before+1)
	}
}
