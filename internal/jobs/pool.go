package jobs

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

// Pool は Redis を使わない構成向けの有界ワーカープールです。
// キュー容量を超えた投入は拒否し、無制限のジョブ起動を防ぎます。
type Pool struct {
	runner *Runner
	store  Store
	logger *log.Logger

	queue   chan string
	workers int

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool は Pool を作成します。
func NewPool(runner *Runner, store Store, workers, capacity int, logger *log.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner:  runner,
		store:   store,
		logger:  logger,
		queue:   make(chan string, capacity),
		workers: workers,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start はワーカーを起動します。
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.baseCtx.Done():
					return
				case jobID, ok := <-p.queue:
					if !ok {
						return
					}
					if err := p.runner.Run(p.baseCtx, jobID); err != nil && p.logger != nil {
						p.logger.Printf("job runner failed job=%s: %v", jobID, err)
					}
				}
			}
		}()
	}
}

// Enqueue はジョブ記録を作成し、キューに投入します。
// キューが満杯の場合は記録を残さず study.ErrQueueFull を返します。
func (p *Pool) Enqueue(ctx context.Context, jobID, filename string) error {
	if jobID == "" {
		return errors.New("jobID is required")
	}

	record := &Record{
		JobID:    jobID,
		Filename: filename,
		Status:   StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
			Message: "Queued",
		},
	}
	if err := p.store.Upsert(ctx, record); err != nil {
		return err
	}

	select {
	case p.queue <- jobID:
		return nil
	default:
		_ = p.store.Delete(ctx, jobID)
		return study.ErrQueueFull
	}
}

// Cancel はジョブの中断を要求します。実行前のジョブはその場で打ち切ります。
func (p *Pool) Cancel(ctx context.Context, jobID string) error {
	if p.runner.Cancel(jobID) {
		return nil
	}

	record, err := p.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		return nil
	}
	// キュー待ちのジョブはここで終了状態にし、ワーカー側でスキップさせる
	return p.store.MarkFailed(ctx, jobID, &ErrorInfo{
		Code:    CodeCanceled,
		Message: "ジョブはキャンセルされました",
	})
}

// Shutdown はワーカーを停止し、実行中のジョブの終了を待ちます。
func (p *Pool) Shutdown(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
