package jobs

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

type stubService struct {
	run      func(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error)
	runCalls int
}

func (s *stubService) RunJob(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error) {
	s.runCalls++
	return s.run(ctx, jobID, reporter)
}

func (s *stubService) DiscardJob(jobID string) error {
	return nil
}

func queuedRecord(t *testing.T, store Store, jobID string) {
	t.Helper()
	if err := store.Upsert(context.Background(), &Record{
		JobID:  jobID,
		Status: StatusQueued,
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
}

func TestRunnerSuccess(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	svc := &stubService{
		run: func(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error) {
			reporter("summary", 80, "Generating summary...")
			return &study.Outcome{
				JobID:   jobID,
				Summary: "the summary",
				MCQs:    "the mcqs",
			}, nil
		},
	}
	runner := NewRunner(store, svc, log.Default())
	queuedRecord(t, store, "job-1")

	if err := runner.Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	record, _ := store.Get(context.Background(), "job-1")
	if record.Status != StatusSucceeded {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.Summary != "the summary" || record.MCQs != "the mcqs" {
		t.Fatalf("unexpected results: %+v", record)
	}
}

func TestRunnerFailureWritesTerminalRecord(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	svc := &stubService{
		run: func(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error) {
			return nil, &study.Error{Code: "EXTRACTION_FAILED", Message: "PDFからのテキスト抽出に失敗しました。"}
		},
	}
	runner := NewRunner(store, svc, log.Default())
	queuedRecord(t, store, "job-2")

	if err := runner.Run(context.Background(), "job-2"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	record, _ := store.Get(context.Background(), "job-2")
	if record.Status != StatusFailed {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.Error == nil || record.Error.Code != "EXTRACTION_FAILED" {
		t.Fatalf("unexpected error info: %+v", record.Error)
	}
	if record.Summary != ErrorSummaryMarker || record.MCQs != "" {
		t.Fatalf("unexpected terminal results: summary=%q mcqs=%q", record.Summary, record.MCQs)
	}
}

func TestRunnerCancel(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	started := make(chan struct{})
	svc := &stubService{
		run: func(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	runner := NewRunner(store, svc, log.Default())
	queuedRecord(t, store, "job-3")

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background(), "job-3")
	}()

	<-started
	if !runner.Cancel("job-3") {
		t.Fatal("expected Cancel to find the active job")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not finish after cancel")
	}

	record, _ := store.Get(context.Background(), "job-3")
	if record.Status != StatusFailed {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.Error == nil || record.Error.Code != CodeCanceled {
		t.Fatalf("unexpected error info: %+v", record.Error)
	}
}

func TestRunnerSkipsTerminalJobs(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	svc := &stubService{
		run: func(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error) {
			return &study.Outcome{}, nil
		},
	}
	runner := NewRunner(store, svc, log.Default())

	queuedRecord(t, store, "job-4")
	_ = store.MarkFailed(context.Background(), "job-4", &ErrorInfo{Code: CodeCanceled, Message: "ジョブはキャンセルされました"})

	if err := runner.Run(context.Background(), "job-4"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if svc.runCalls != 0 {
		t.Fatalf("service should not run for terminal jobs, got %d calls", svc.runCalls)
	}
}
