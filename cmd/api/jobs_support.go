package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/jobs"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

// poolScheduler はインプロセスワーカープールへの投入を行います。
type poolScheduler struct {
	pool *jobs.Pool
}

func (s *poolScheduler) Schedule(ctx context.Context, jobID, filename string) error {
	return s.pool.Enqueue(ctx, jobID, filename)
}

func (s *poolScheduler) Cancel(ctx context.Context, jobID string) error {
	return s.pool.Cancel(ctx, jobID)
}

// asynqScheduler は Asynq 経由でジョブを投入します。
type asynqScheduler struct {
	manager *jobs.Manager
}

func (s *asynqScheduler) Schedule(ctx context.Context, jobID, filename string) error {
	_, err := s.manager.Enqueue(ctx, &jobs.TaskPayload{
		JobID:    jobID,
		Filename: filename,
	})
	return err
}

func (s *asynqScheduler) Cancel(ctx context.Context, jobID string) error {
	return s.manager.Cancel(ctx, jobID)
}

// setupJobs はジョブストアとスケジューラーを構成します。
// QUEUE_REDIS_URL が設定されていれば Redis + Asynq、なければ
// インメモリストア + 有界ワーカープールを使います。
func setupJobs(cfg *config.Config, svc *study.Service) (study.JobScheduler, jobs.Store, error) {
	ttlMinutes := cfg.JobExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	ttl := time.Duration(ttlMinutes) * time.Minute

	if cfg.QueueRedisURL == "" {
		store := jobs.NewMemoryStore(ttl)
		runner := jobs.NewRunner(store, svc, log.Default())
		pool := jobs.NewPool(runner, store, cfg.WorkerConcurrency, cfg.QueueCapacity, log.Default())
		pool.Start()
		return &poolScheduler{pool: pool}, store, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)
	store := jobs.NewRedisStore(redisClient, ttl)
	runner := jobs.NewRunner(store, svc, log.Default())
	manager, err := jobs.NewManager(cfg, runner, store, log.Default())
	if err != nil {
		return nil, nil, err
	}
	manager.StartWorkers()
	return &asynqScheduler{manager: manager}, store, nil
}

// progressHandler は GET /progress/:id のハンドラーを返します。
// 未知のジョブIDはエラーではなく "Not started" で応答します。
func progressHandler(store jobs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Param("id"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := store.Get(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}

		status := "Not started"
		summary := ""
		mcqs := ""
		percent := 0
		if record != nil {
			summary = record.Summary
			mcqs = record.MCQs
			percent = record.Progress.Percent
			switch record.Status {
			case jobs.StatusSucceeded:
				status = "Completed"
			case jobs.StatusFailed:
				status = failedStatus(record)
			case jobs.StatusQueued:
				status = "Queued"
			default:
				status = record.Progress.Message
				if status == "" {
					status = "Queued"
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"summary": summary,
			"mcqs":    mcqs,
			"percent": percent,
		})
	}
}

func failedStatus(record *jobs.Record) string {
	if record.Error != nil && record.Error.Code == jobs.CodeCanceled {
		return "Canceled"
	}
	message := "unknown error"
	if record.Error != nil {
		message = record.Error.Message
	}
	return "Error: " + message
}

// cancelHandler は DELETE /progress/:id のハンドラーを返します。
func cancelHandler(scheduler study.JobScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Param("id"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		if err := scheduler.Cancel(c.Request.Context(), jobID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブのキャンセルに失敗しました。",
			})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
