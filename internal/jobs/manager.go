package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
)

const (
	taskTypeStudy = "study:process"
	queueStudy    = "study"
)

// Manager は Redis を使う構成でのジョブ投入と実行を担います。
type Manager struct {
	cfg    *config.Config
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  Store
	runner *Runner
	logger *log.Logger
}

// TaskPayload は学習ジョブのペイロードです。
type TaskPayload struct {
	JobID    string `json:"jobId"`
	Filename string `json:"filename"`
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, runner *Runner, store Store, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queueStudy: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:    cfg,
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		runner: runner,
		logger: logger,
	}
	mux.HandleFunc(taskTypeStudy, manager.handleStudyTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			if m.logger != nil {
				m.logger.Printf("asynq server stopped with error: %v", err)
			} else {
				log.Printf("asynq server stopped with error: %v", err)
			}
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// Enqueue はジョブ記録を作成し、キューに投入します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}
	if payload.JobID == "" {
		return "", fmt.Errorf("payload.JobID is required")
	}

	record := &Record{
		JobID:    payload.JobID,
		Filename: payload.Filename,
		Status:   StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
			Message: "Queued",
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeStudy, body, asynq.Queue(queueStudy))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Cancel はジョブの中断を要求します。実行前のジョブはその場で打ち切ります。
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	if m.runner.Cancel(jobID) {
		return nil
	}

	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		return nil
	}
	return m.store.MarkFailed(ctx, jobID, &ErrorInfo{
		Code:    CodeCanceled,
		Message: "ジョブはキャンセルされました",
	})
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleStudyTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}

	return m.runner.Run(ctx, payload.JobID)
}
