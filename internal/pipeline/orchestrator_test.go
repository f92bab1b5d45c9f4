package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/casemap/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(workers, queue int) config.Config {
	return config.Config{WorkerCount: workers, MaxQueueSize: queue, JobTTL: time.Hour}
}

func TestOrchestrator_SubmitAndWait(t *testing.T) {
	orch := NewOrchestrator(testConfig(2, 8), NewConverter(ConverterOptions{}, nil), discardLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(Request{Filename: "a.md", Data: []byte(caseDoc)})
	if err := orch.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := orch.Wait(ctx, job)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Errors)
	}
	if snap.Output == nil || len(snap.Output.Workbook) == 0 {
		t.Error("expected a workbook in the output")
	}
	if orch.GetJob(job.ID) != job {
		t.Error("expected job to be registered")
	}
}

func TestOrchestrator_FailedJob(t *testing.T) {
	orch := NewOrchestrator(testConfig(1, 8), NewConverter(ConverterOptions{}, nil), discardLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(Request{Filename: "a.md", Data: []byte("nothing here\n")})
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := orch.Wait(ctx, job)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != StatusFailed || len(snap.Errors) != 1 {
		t.Errorf("expected failed job with one error, got %q %v", snap.Status, snap.Errors)
	}
	if snap.Phase != string(StatusParsing) {
		t.Errorf("expected failure in parsing phase, got %q", snap.Phase)
	}
}

func TestOrchestrator_DroppedCasesReported(t *testing.T) {
	orch := NewOrchestrator(testConfig(1, 8), NewConverter(ConverterOptions{}, nil), discardLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(Request{Filename: "a.md", Data: []byte(caseDoc + "# 新章节\n##### 孤立用例\n")})
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}
	snap, err := orch.Wait(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	if len(snap.Errors) != 1 || snap.Errors[0] != "1 case had no module or feature and was skipped" {
		t.Errorf("unexpected errors %v", snap.Errors)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	orch := NewOrchestrator(testConfig(1, 1), NewConverter(ConverterOptions{}, nil), discardLogger())

	if err := orch.Submit(NewJob(Request{})); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := NewJob(Request{})
	err := orch.Submit(overflow)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if s := overflow.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected rejected job to fail, got %s/%s", s.Status, s.Phase)
	}
	if orch.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", orch.QueueDepth())
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	orch := NewOrchestrator(testConfig(1, 4), NewConverter(ConverterOptions{}, nil), discardLogger())
	job := NewJob(Request{})
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}
	orch.Stop()
	orch.Stop()

	select {
	case <-job.Done():
	default:
		t.Fatal("expected queued job to be finished by Stop")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected failed, got %q", job.Snapshot().Status)
	}
}

func TestOrchestrator_WaitContext(t *testing.T) {
	orch := NewOrchestrator(testConfig(1, 4), NewConverter(ConverterOptions{}, nil), discardLogger())
	job := NewJob(Request{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap, err := orch.Wait(ctx, job)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if snap.Status != StatusQueued {
		t.Errorf("expected queued snapshot, got %q", snap.Status)
	}
}

func TestTargetLocks(t *testing.T) {
	locks := NewTargetLocks()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "out/a.xmind")
	if err != nil {
		t.Fatal(err)
	}

	// A different file is independent.
	other, err := locks.Lock(ctx, "out/b.xmind")
	if err != nil {
		t.Fatal(err)
	}
	other()

	// The same file, spelled differently, waits.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(short, "out/../out/a.xmind"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the second lock to time out, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release, err := locks.Lock(ctx, "out/a.xmind")
		if err == nil {
			release()
		}
		close(acquired)
	}()
	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected waiter to acquire the lock after release")
	}
}
