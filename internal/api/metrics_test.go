package api

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"namereg/internal/errors"
	"namereg/internal/jobs"
	"namereg/internal/storage"
)

func TestMetricsCollector_RegistrationSeries(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordRegistration("offload", 3*time.Millisecond, nil)
	m.RecordRegistration("offload", 40*time.Millisecond, nil)
	m.RecordRegistration("inline", 2*time.Second, errors.Write(stderrors.New("constraint")))
	m.RecordRegistration("inline", 7*time.Second, errors.Pool(storage.ErrAcquireTimeout))

	var buf bytes.Buffer
	m.writeCounter(&buf, m.registrations)
	m.writeCounter(&buf, m.registrationFailures)
	m.writeHistogram(&buf, m.registrationDuration)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "registration_metrics", buf.Bytes())
}

func TestCounter_Value(t *testing.T) {
	c := &Counter{name: "c", labels: []string{"code"}}
	c.Inc("200")
	c.Add(4, "200")
	c.Inc("500")

	if got := c.Value("200"); got != 5 {
		t.Errorf("Value(200) = %d, want 5", got)
	}
	if got := c.Value("404"); got != 0 {
		t.Errorf("Value(404) = %d, want 0", got)
	}
}

type fakeRunner struct{ stats jobs.RunnerStats }

func (f fakeRunner) Stats() jobs.RunnerStats { return f.stats }

func TestMetricsEndpoint(t *testing.T) {
	db := fakeDB{stats: storage.PoolStats{MaxOpen: 10, Open: 3, InUse: 2, Idle: 1, WaitCount: 7}}
	server := newFakeServer(t, &fakeRegistrar{}, db, nil)
	server.runner = fakeRunner{stats: jobs.RunnerStats{Workers: 4, QueueLength: 1, QueueCapacity: 64, Processed: 9}}

	get(server, "/alice")
	get(server, "/bob")

	w := get(server, MetricsPath)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		`namereg_http_requests_total{code="200"} 2`,
		`namereg_registrations_total{strategy="inline",result="success"} 2`,
		`namereg_pool_connections{state="in_use"} 2`,
		`namereg_pool_connections{state="max_open"} 10`,
		`namereg_pool_wait_count 7`,
		`namereg_runner_queue{kind="capacity"} 64`,
		`namereg_runner_tasks{outcome="processed"} 9`,
		"# TYPE namereg_registration_duration_seconds histogram",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsEndpoint_CountsFailuresByCode(t *testing.T) {
	reg := &fakeRegistrar{err: errors.Read(storage.ErrNotFound)}
	server := newFakeServer(t, reg, fakeDB{}, nil)

	get(server, "/alice")

	body := get(server, MetricsPath).Body.String()
	for _, want := range []string{
		`namereg_registration_failures_total{code="READ_ERROR"} 1`,
		`namereg_http_requests_total{code="500"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
