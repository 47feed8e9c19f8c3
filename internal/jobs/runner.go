package jobs

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

const (
	// CodeCanceled はポーリング側からの中断要求で終了したジョブのエラーコードです。
	CodeCanceled = "CANCELED"
)

// Service はジョブ1件分の処理を実行できるドメインサービスが実装します。
type Service interface {
	RunJob(ctx context.Context, jobID string, reporter study.ProgressReporter) (*study.Outcome, error)
	DiscardJob(jobID string) error
}

// Runner は1ジョブ分の実行を担当し、状態遷移とキャンセル要求を管理します。
// ジョブの失敗はすべてここでストアに書き込み、呼び出し側へは再送しません。
type Runner struct {
	store  Store
	svc    Service
	logger *log.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewRunner は Runner を作成します。
func NewRunner(store Store, svc Service, logger *log.Logger) *Runner {
	return &Runner{
		store:  store,
		svc:    svc,
		logger: logger,
		active: make(map[string]context.CancelFunc),
	}
}

// Run はジョブを1件実行します。進捗・完了・失敗はすべてストアへ書き込みます。
func (r *Runner) Run(ctx context.Context, jobID string) error {
	record, err := r.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		// 実行前にキャンセル/期限切れになったジョブは何もしない
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.register(jobID, cancel)
	defer r.unregister(jobID)
	defer cancel()

	outcome, err := r.svc.RunJob(runCtx, jobID, func(stage string, percent int, message string) {
		if err := r.store.UpdateProgress(ctx, jobID, ProgressInfo{
			Percent: percent,
			Stage:   stage,
			Message: message,
		}); err != nil && r.logger != nil {
			r.logger.Printf("failed to update progress job=%s: %v", jobID, err)
		}
	})

	// キャンセル後でも終了状態は書き込めるようにする
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		return r.failWithError(writeCtx, jobID, err)
	}
	return r.store.MarkDone(writeCtx, jobID, outcome.Summary, outcome.MCQs)
}

// Cancel は実行中のジョブに中断を要求します。
// 対象ジョブがこのプロセスで実行中でない場合は false を返します。
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	cancel, ok := r.active[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (r *Runner) failWithError(ctx context.Context, jobID string, err error) error {
	errInfo := &ErrorInfo{Code: "INTERNAL_ERROR", Message: err.Error()}

	var jobErr *study.Error
	switch {
	case errors.Is(err, context.Canceled):
		errInfo = &ErrorInfo{Code: CodeCanceled, Message: "ジョブはキャンセルされました"}
	case errors.As(err, &jobErr):
		errInfo = &ErrorInfo{Code: jobErr.Code, Message: jobErr.Message}
	}

	if markErr := r.store.MarkFailed(ctx, jobID, errInfo); markErr != nil {
		return markErr
	}
	return nil
}

func (r *Runner) register(jobID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[jobID] = cancel
}

func (r *Runner) unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, jobID)
}
