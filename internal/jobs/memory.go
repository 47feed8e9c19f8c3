package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore はミューテックスで保護したインメモリのジョブ状態ストアです。
// Redis を使わない構成（開発環境・テスト）で使用します。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	ttl     time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		ttl:     ttl,
	}
}

// Get はジョブ情報のコピーを返します。存在しない場合は nil を返します。
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[jobID]
	if !ok {
		return nil, nil
	}
	if !record.ExpiresAt.IsZero() && time.Now().UTC().After(record.ExpiresAt) {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *MemoryStore) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.JobID] = &clone
	return nil
}

// UpdateProgress は進捗を更新します。
func (s *MemoryStore) UpdateProgress(ctx context.Context, jobID string, progress ProgressInfo) error {
	return s.updatePartial(jobID, func(record *Record) {
		record.Status = StatusRunning
		record.Progress = progress
	})
}

// MarkDone はジョブ完了時の結果文字列を保存します。
func (s *MemoryStore) MarkDone(ctx context.Context, jobID, summary, mcqs string) error {
	return s.updatePartial(jobID, func(record *Record) {
		record.Status = StatusSucceeded
		record.Progress = ProgressInfo{
			Percent: 100,
			Stage:   "completed",
			Message: "Completed",
		}
		record.Summary = summary
		record.MCQs = mcqs
		record.Error = nil
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.updatePartial(jobID, func(record *Record) {
		record.Status = StatusFailed
		record.Summary = ErrorSummaryMarker
		record.MCQs = ""
		if errInfo != nil {
			record.Error = errInfo
		}
	})
}

// Delete はジョブ情報を削除します。
func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, jobID)
	return nil
}

func (s *MemoryStore) updatePartial(jobID string, mutate func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	mutate(record)
	record.UpdatedAt = time.Now().UTC()
	return nil
}
