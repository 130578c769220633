package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTransfer(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveTransfer(ResultOK, 1024, 2*time.Second)
	m.ObserveTransfer(ResultOK, 1024, time.Second)
	m.ObserveTransfer(ResultUploadFailed, 4096, time.Second)

	if got := testutil.ToFloat64(m.transfers.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok transfers = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.transfers.WithLabelValues(ResultUploadFailed)); got != 1 {
		t.Errorf("upload_failed transfers = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bytes); got != 2048 {
		t.Errorf("bytes = %v, want 2048", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestAddPurged(t *testing.T) {
	t.Parallel()

	m := New()
	m.AddPurged(3)
	m.AddPurged(0)
	m.AddPurged(-1)
	if got := testutil.ToFloat64(m.purged); got != 3 {
		t.Errorf("purged = %v, want 3", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveTransfer(ResultOK, 1, time.Second)
	m.AddPurged(1)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveTransfer(ResultTooLarge, 0, 0)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `file2link_transfers_total{result="too_large"} 1`) {
		t.Errorf("exposition missing transfer counter:\n%s", body)
	}
}
