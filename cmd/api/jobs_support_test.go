package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/jobs"
)

func newProgressRouter(store jobs.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/progress/:id", progressHandler(store))
	return router
}

func getProgress(t *testing.T, router *gin.Engine, jobID string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/progress/"+jobID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
	}
	return rec.Code, payload
}

func TestProgressHandlerUnknownJob(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	router := newProgressRouter(store)

	code, payload := getProgress(t, router, "no-such-job")
	if code != http.StatusOK {
		t.Fatalf("unexpected status: %d", code)
	}
	if payload["status"] != "Not started" {
		t.Fatalf("unexpected status field: %v", payload["status"])
	}
	if payload["summary"] != "" || payload["mcqs"] != "" {
		t.Fatalf("unknown job should return empty results: %v", payload)
	}
}

func TestProgressHandlerCompleted(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	ctx := context.Background()
	if err := store.Upsert(ctx, &jobs.Record{JobID: "job-ok", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := store.MarkDone(ctx, "job-ok", "summary text", "mcq text"); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	router := newProgressRouter(store)

	code, payload := getProgress(t, router, "job-ok")
	if code != http.StatusOK {
		t.Fatalf("unexpected status: %d", code)
	}
	if payload["status"] != "Completed" {
		t.Fatalf("unexpected status field: %v", payload["status"])
	}
	if payload["summary"] != "summary text" || payload["mcqs"] != "mcq text" {
		t.Fatalf("unexpected results: %v", payload)
	}
	if payload["percent"] != float64(100) {
		t.Fatalf("unexpected percent: %v", payload["percent"])
	}
}

func TestProgressHandlerFailed(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	ctx := context.Background()
	if err := store.Upsert(ctx, &jobs.Record{JobID: "job-ng", Status: jobs.StatusRunning}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	errInfo := &jobs.ErrorInfo{Code: "EXTRACTION_FAILED", Message: "failed to read PDF"}
	if err := store.MarkFailed(ctx, "job-ng", errInfo); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}
	router := newProgressRouter(store)

	code, payload := getProgress(t, router, "job-ng")
	if code != http.StatusOK {
		t.Fatalf("unexpected status: %d", code)
	}
	if payload["status"] != "Error: failed to read PDF" {
		t.Fatalf("unexpected status field: %v", payload["status"])
	}
	if payload["summary"] != jobs.ErrorSummaryMarker {
		t.Fatalf("failed job should report the error marker: %v", payload["summary"])
	}
	if payload["mcqs"] != "" {
		t.Fatalf("failed job should not carry MCQs: %v", payload["mcqs"])
	}
}

func TestProgressHandlerCanceled(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	ctx := context.Background()
	if err := store.Upsert(ctx, &jobs.Record{JobID: "job-cancel", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	errInfo := &jobs.ErrorInfo{Code: jobs.CodeCanceled, Message: "job canceled"}
	if err := store.MarkFailed(ctx, "job-cancel", errInfo); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}
	router := newProgressRouter(store)

	_, payload := getProgress(t, router, "job-cancel")
	if payload["status"] != "Canceled" {
		t.Fatalf("unexpected status field: %v", payload["status"])
	}
}

func TestProgressHandlerIsolation(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	ctx := context.Background()
	if err := store.Upsert(ctx, &jobs.Record{JobID: "job-a", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := store.MarkDone(ctx, "job-a", "summary A", "mcqs A"); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if err := store.Upsert(ctx, &jobs.Record{
		JobID:    "job-b",
		Status:   jobs.StatusRunning,
		Progress: jobs.ProgressInfo{Percent: 30, Stage: "extract", Message: "Extracting text: 2/5 pages"},
	}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	router := newProgressRouter(store)

	_, payloadA := getProgress(t, router, "job-a")
	_, payloadB := getProgress(t, router, "job-b")

	if payloadA["status"] != "Completed" || payloadA["summary"] != "summary A" {
		t.Fatalf("job-a leaked state: %v", payloadA)
	}
	if payloadB["status"] != "Extracting text: 2/5 pages" {
		t.Fatalf("job-b leaked state: %v", payloadB)
	}
	if payloadB["summary"] != "" || payloadB["mcqs"] != "" {
		t.Fatalf("running job should not carry results: %v", payloadB)
	}
}

func TestProgressHandlerRepeatedPolls(t *testing.T) {
	store := jobs.NewMemoryStore(time.Minute)
	ctx := context.Background()
	if err := store.Upsert(ctx, &jobs.Record{JobID: "job-poll", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := store.MarkDone(ctx, "job-poll", "stable summary", "stable mcqs"); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	router := newProgressRouter(store)

	_, first := getProgress(t, router, "job-poll")
	_, second := getProgress(t, router, "job-poll")
	for _, key := range []string{"status", "summary", "mcqs", "percent"} {
		if first[key] != second[key] {
			t.Fatalf("poll results changed for %s: %v vs %v", key, first[key], second[key])
		}
	}
}

type recordingScheduler struct {
	canceled  []string
	cancelErr error
}

func (s *recordingScheduler) Schedule(ctx context.Context, jobID, filename string) error {
	return nil
}

func (s *recordingScheduler) Cancel(ctx context.Context, jobID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.canceled = append(s.canceled, jobID)
	return nil
}

func TestCancelHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	scheduler := &recordingScheduler{}
	router := gin.New()
	router.DELETE("/progress/:id", cancelHandler(scheduler))

	req := httptest.NewRequest(http.MethodDelete, "/progress/job-stop", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(scheduler.canceled) != 1 || scheduler.canceled[0] != "job-stop" {
		t.Fatalf("cancel was not forwarded: %v", scheduler.canceled)
	}
}

func TestCancelHandlerSchedulerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	scheduler := &recordingScheduler{cancelErr: errors.New("backend down")}
	router := gin.New()
	router.DELETE("/progress/:id", cancelHandler(scheduler))

	req := httptest.NewRequest(http.MethodDelete, "/progress/job-stop", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
