package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestReportMergesPhases(t *testing.T) {
	tm := NewTimer()
	tm.Track("load")("2 units")
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Track("lower")("")
		}()
	}
	wg.Wait()

	report := tm.Report()
	if len(report.Phases) != 2 || report.Phases[0].Name != "load" || report.Phases[1].Name != "lower" {
		t.Fatalf("phases %+v", report.Phases)
	}
	if report.Phases[0].Note != "2 units" {
		t.Fatalf("note %q", report.Phases[0].Note)
	}
	if report.TotalMS < report.Phases[1].DurationMS {
		t.Fatalf("total %v below a phase", report.TotalMS)
	}

	summary := tm.Summary()
	for _, want := range []string{"timings:\n", "  load ", "// 2 units", "  total "} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary lacks %q:\n%s", want, summary)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.Track("x")("ignored")
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("nil timer report %+v", r)
	}
	tm.End(5, "")
}
