// Package jobs は非同期ジョブの状態管理と実行基盤を提供します。
package jobs

import "time"

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// Terminal は終了状態かどうかを返します。
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ProgressInfo は進捗の補足情報を表します。
// Message はブラウザにそのまま表示する進捗文字列です
// （例: "Extracting text: 3/12 pages"）。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record はジョブの現在状態を表します。
// 要約とMCQはジョブ完了時にのみ設定されます。
type Record struct {
	JobID     string       `json:"jobId"`
	Filename  string       `json:"filename,omitempty"`
	Status    Status       `json:"status"`
	Progress  ProgressInfo `json:"progress"`
	Summary   string       `json:"summary,omitempty"`
	MCQs      string       `json:"mcqs,omitempty"`
	Error     *ErrorInfo   `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}
