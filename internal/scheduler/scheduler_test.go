package scheduler

import (
	"errors"
	"testing"

	"github.com/matchdayhq/matchday/internal/testutil"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	sched, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() {
		if err := sched.Stop(); err != nil {
			t.Errorf("stop scheduler: %v", err)
		}
	})
	return sched
}

func TestAddJobValidation(t *testing.T) {
	sched := newTestScheduler(t)

	if _, err := sched.AddJob("", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := sched.AddJob("nightly", "  ", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := sched.AddJob("nightly", "not a cron expression", func() {}); err == nil {
		t.Fatal("expected error for malformed cron expression")
	}
}

func TestAddJobRegisters(t *testing.T) {
	sched := newTestScheduler(t)

	job, err := sched.AddJob("nightly", "30 3 * * *", func() {})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if job.Name() != "nightly" {
		t.Fatalf("expected job name nightly, got %q", job.Name())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	sched, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestRegisterRetentionJobs(t *testing.T) {
	sched := newTestScheduler(t)
	database := testutil.NewTestDB(t)

	if err := RegisterRetentionJobs(sched, database, 0); err == nil {
		t.Fatal("expected error for zero retention window")
	}
	if err := RegisterRetentionJobs(sched, nil, 30); err == nil {
		t.Fatal("expected error for nil database")
	}
	if err := RegisterRetentionJobs(sched, database, 30); err != nil {
		t.Fatalf("register retention jobs: %v", err)
	}
}
