package cron

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewCronJob(t *testing.T) {
	job := NewCronJob("morning", Schedule{Kind: "cron", Expr: "0 0 9 * * *"}, Payload{Kind: "greeting", Channel: "telegram", To: "-500"})
	if job.ID == "" {
		t.Error("job ID should not be empty")
	}
	if job.Name != "morning" {
		t.Errorf("name = %q, want morning", job.Name)
	}
	if !job.Enabled {
		t.Error("job should be enabled by default")
	}
	if job.Payload.Kind != "greeting" {
		t.Errorf("payload kind = %q", job.Payload.Kind)
	}
}

func TestService_AddAndListJobs(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "jobs.json")
	s := NewService(storePath)

	job, err := s.AddJob("job1", Schedule{Kind: "every", EveryMs: 60000}, Payload{Kind: "message", Message: "tick"})
	if err != nil {
		t.Fatalf("AddJob error: %v", err)
	}
	if job.Name != "job1" {
		t.Errorf("name = %q, want job1", job.Name)
	}

	jobs := s.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != "job1" {
		t.Fatalf("jobs = %+v", jobs)
	}

	// Verify persistence
	data, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	var stored []CronJob
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored jobs = %d, want 1", len(stored))
	}
}

func TestService_RemoveJob(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"))

	job, _ := s.AddJob("rm-test", Schedule{Kind: "every", EveryMs: 1000}, Payload{Kind: "message", Message: "x"})

	if !s.RemoveJob(job.ID) {
		t.Error("RemoveJob returned false")
	}
	if len(s.ListJobs()) != 0 {
		t.Error("job not removed")
	}
	if s.RemoveJob("nonexistent") {
		t.Error("RemoveJob should return false for nonexistent")
	}
}

func TestService_EnableJob(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"))

	job, _ := s.AddJob("toggle", Schedule{Kind: "every", EveryMs: 1000}, Payload{Kind: "message", Message: "x"})

	updated, err := s.EnableJob(job.ID, false)
	if err != nil {
		t.Fatalf("EnableJob error: %v", err)
	}
	if updated.Enabled {
		t.Error("job should be disabled")
	}

	if _, err := s.EnableJob("nonexistent", true); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestService_FindJobByName(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"))
	s.AddJob("daily-greeting", Schedule{Kind: "cron", Expr: "0 0 9 * * *"}, Payload{Kind: "greeting"})

	if _, ok := s.FindJobByName("daily-greeting"); !ok {
		t.Error("job not found by name")
	}
	if _, ok := s.FindJobByName("other"); ok {
		t.Error("unexpected match")
	}
}

func TestService_ExecutesEveryJob(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"))

	var fired atomic.Int32
	s.OnJob = func(job CronJob) (string, error) {
		fired.Add(1)
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer s.Stop()

	// EveryMs of 1ms with LastRunAtMs zero fires on the first tick.
	s.AddJob("fast", Schedule{Kind: "every", EveryMs: 1}, Payload{Kind: "message", Message: "x"})

	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatal("every-job never fired")
	}
}

func TestService_DeleteAfterRun(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"))
	s.OnJob = func(job CronJob) (string, error) { return "ok", nil }

	job, _ := s.AddJob("one-shot", Schedule{Kind: "at", AtMs: 1}, Payload{Kind: "message", Message: "x"})
	s.mu.Lock()
	s.jobs[0].DeleteAfterRun = true
	s.mu.Unlock()

	s.executeJob(*job)
	if len(s.ListJobs()) != 0 {
		t.Error("one-shot job not removed after run")
	}
}

func TestService_LoadsPersistedJobs(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "jobs.json")

	first := NewService(storePath)
	first.AddJob("persisted", Schedule{Kind: "every", EveryMs: 60000}, Payload{Kind: "message", Message: "x"})

	second := NewService(storePath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer second.Stop()

	if jobs := second.ListJobs(); len(jobs) != 1 || jobs[0].Name != "persisted" {
		t.Errorf("jobs after reload = %+v", jobs)
	}
}
