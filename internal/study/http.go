package study

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UploadService はアップロードジョブの準備と破棄を提供します。
type UploadService interface {
	PrepareUploadJob(ctx context.Context, file *multipart.FileHeader) (*JobManifest, error)
	DiscardJob(jobID string) error
}

// JobScheduler はジョブを非同期実行基盤に投入するためのインターフェースです。
type JobScheduler interface {
	Schedule(ctx context.Context, jobID, filename string) error
	Cancel(ctx context.Context, jobID string) error
}

// ErrQueueFull はスケジューラーの受付上限超過を表します。
// アップロードは 503 で応答します。
var ErrQueueFull = errors.New("job queue is full")

// UploadHandler は POST /upload_pdf のハンドラーを返します。
// 受け付けたジョブIDを載せてダッシュボードを描画します（JSONクライアントには202）。
func UploadHandler(svc UploadService, scheduler JobScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "multipart/form-data でPDFファイルを送信してください。",
			})
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": err.Error(),
			})
			return
		}

		manifest, err := svc.PrepareUploadJob(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if err := scheduler.Schedule(c.Request.Context(), manifest.JobID, manifest.OriginalName); err != nil {
			_ = svc.DiscardJob(manifest.JobID)
			if errors.Is(err, ErrQueueFull) {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"code":    "BUSY",
					"message": "処理待ちのジョブが多いため受け付けられません。しばらくして再試行してください。",
				})
				return
			}
			respondWithError(c, err)
			return
		}

		if wantsJSON(c) {
			c.JSON(http.StatusAccepted, gin.H{
				"jobId":    manifest.JobID,
				"filename": manifest.OriginalName,
			})
			return
		}

		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"jobId":    manifest.JobID,
			"filename": manifest.OriginalName,
		})
	}
}

func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json")
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		if apiErr.Code == "LIMIT_EXCEEDED" {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("PDFファイルを選択してください。")
	}
	if file := form.File["file"]; len(file) > 0 {
		return file[0], nil
	}
	if file := form.File["file[]"]; len(file) > 0 {
		return file[0], nil
	}
	if files := form.File["files"]; len(files) > 0 {
		return files[0], nil
	}
	if alt := form.File["files[]"]; len(alt) > 0 {
		return alt[0], nil
	}
	return nil, errors.New("PDFファイルを選択してください。")
}
