package main

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/domain"
)

func TestCycleMetrics_CountsOutcomes(t *testing.T) {
	m := newCycleMetrics()

	m.OnCycleStart(1, "u")
	m.OnCycleStart(2, "u")
	m.OnCycleStale(1)
	m.OnCycleDone(2, domain.Record{}, nil, 10*time.Millisecond)
	m.OnCycleStart(3, "u")
	m.OnCycleDone(3, domain.Record{}, errors.New("api down"), time.Millisecond)

	for result, want := range map[string]float64{"ok": 1, "error": 1, "stale": 1} {
		if got := testutil.ToFloat64(m.cycles.WithLabelValues(result)); got != want {
			t.Fatalf("cycles_total{result=%q}=%v，期望 %v", result, got, want)
		}
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Fatalf("所有周期结束后 in_flight 应为 0，实际 %v", got)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	m := newCycleMetrics()
	m.OnCycleStart(1, "u")
	m.OnCycleDone(1, domain.Record{}, nil, time.Millisecond)

	h := newRouter(&fakeAPI{}, zerolog.Nop(), m.handler())
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `alpresence_cycles_total{result="ok"} 1`) {
		t.Fatalf("/metrics 缺少周期计数：\n%s", rr.Body.String())
	}
}
