package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/studrail/trackforge/pkg/batch"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(":0", log.NewWithOptions(io.Discard, log.Options{}))
	ts := httptest.NewServer(s.http.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok\n" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestStatus(t *testing.T) {
	s, ts := newTestServer(t)

	s.BeginRun("run-1", 8)
	s.Notify(batch.JobResult{Radius: 40, Config: "ballast", OK: true})
	s.Notify(batch.JobResult{Radius: 40, Config: "track_and_ballast", OK: true, Cached: true})
	s.Notify(batch.JobResult{Radius: 48, Config: "ballast", Error: "mesh is not closed"})

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	if status.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", status.RunID)
	}
	if status.Total != 8 || status.Done != 3 {
		t.Errorf("Total/Done = %d/%d, want 8/3", status.Total, status.Done)
	}
	if status.Succeeded != 2 || status.Failed != 1 || status.Cached != 1 {
		t.Errorf("tallies = %d succeeded, %d failed, %d cached; want 2/1/1",
			status.Succeeded, status.Failed, status.Cached)
	}
	if len(status.Jobs) != 3 {
		t.Errorf("Jobs has %d entries, want 3", len(status.Jobs))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBeginRunResetsSnapshot(t *testing.T) {
	s, _ := newTestServer(t)

	s.BeginRun("run-1", 4)
	s.Notify(batch.JobResult{Radius: 40, Config: "ballast", OK: true})
	s.BeginRun("run-2", 52)

	snap := s.Snapshot()
	if snap.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2", snap.RunID)
	}
	if snap.Done != 0 || len(snap.Jobs) != 0 {
		t.Errorf("snapshot not reset: %+v", snap)
	}
	if snap.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newTestServer(t)

	s.BeginRun("run-1", 4)
	s.Notify(batch.JobResult{Radius: 40, Config: "ballast", OK: true})

	snap := s.Snapshot()
	snap.Jobs[0].Config = "mutated"

	if got := s.Snapshot().Jobs[0].Config; got != "ballast" {
		t.Errorf("internal state mutated through snapshot: %q", got)
	}
}
