// Package study はPDFから要約とMCQを生成するドメイン処理を提供します。
package study

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/extract"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/genai"
)

const storedInputFilename = "input.pdf"

// ProgressReporter は進捗更新用コールバックです。
// message はポーリングAPIがそのまま返す進捗文字列です。
type ProgressReporter func(stage string, percent int, message string)

func reportProgress(cb ProgressReporter, stage string, percent int, message string) {
	if cb == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	cb(stage, percent, message)
}

// TextExtractor はPDFファイルからテキストを取り出せる実装が提供します。
type TextExtractor interface {
	Extract(ctx context.Context, path string, report extract.Reporter) (string, extract.Method, error)
}

// Outcome はジョブ1件分の生成結果を表します。
type Outcome struct {
	JobID    string         `json:"jobId"`
	Filename string         `json:"filename"`
	Summary  string         `json:"summary"`
	MCQs     string         `json:"mcqs"`
	Pages    int            `json:"pages"`
	Method   extract.Method `json:"method"`
}

// Service はアップロードの受付とジョブ実行を提供します。
type Service struct {
	cfg       *config.Config
	extractor TextExtractor
	generator genai.Generator
	baseDir   string
	now       func() time.Time
}

// NewService は Service を作成します。
func NewService(cfg *config.Config, extractor TextExtractor, generator genai.Generator) *Service {
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		generator: generator,
		baseDir:   filepath.Join(os.TempDir(), "studybuddy"),
		now:       time.Now,
	}
}

// PrepareUploadJob はアップロードされたPDFを検証してワークスペースへ保存し、
// ジョブマニフェストを作成します。
func (s *Service) PrepareUploadJob(ctx context.Context, file *multipart.FileHeader) (*JobManifest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if file == nil {
		return nil, newError("INVALID_INPUT", "PDFファイルを選択してください。", nil)
	}
	if s.cfg.MaxFileSize > 0 && file.Size > s.cfg.MaxFileSize {
		return nil, newError("LIMIT_EXCEEDED",
			fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", s.cfg.MaxFileSize), nil)
	}

	ws, err := s.createWorkspace()
	if err != nil {
		return nil, err
	}

	stored, err := s.storeMultipartFile(ctx, file, ws.inDir)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	manifest := &JobManifest{
		JobID:        ws.jobID,
		StoredName:   stored.storedName,
		OriginalName: stored.originalName,
		Size:         stored.size,
		Pages:        stored.pages,
		CreatedAt:    s.now().UTC(),
	}
	if err := writeManifest(ws.dir, manifest); err != nil {
		_ = removeDir(ws.dir)
		return nil, fmt.Errorf("ジョブマニフェストの保存に失敗しました: %w", err)
	}

	return manifest, nil
}

// RunJob はジョブIDに対応するテキスト抽出と生成処理を実行します。
// 進捗はコールバック経由で報告し、戻り値の Outcome に結果文字列を入れます。
func (s *Service) RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*Outcome, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	ws := s.workspaceFor(jobID)
	manifest, err := loadManifest(ws.dir)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	inputPath := filepath.Join(ws.inDir, manifest.StoredName)

	text, method, err := s.extractor.Extract(ctx, inputPath, func(phase extract.Phase, done, total int) {
		switch phase {
		case extract.PhaseOCR:
			reportProgress(reporter, "ocr", 55+(25*done)/total,
				fmt.Sprintf("OCR processing: %d/%d images", done, total))
		default:
			reportProgress(reporter, "extract", 5+(50*done)/total,
				fmt.Sprintf("Extracting text: %d/%d pages", done, total))
		}
	})
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, newError("EXTRACTION_FAILED", "PDFからのテキスト抽出に失敗しました。", err)
	}
	if strings.TrimSpace(text) == "" {
		_ = removeDir(ws.dir)
		return nil, newError("EMPTY_DOCUMENT", "PDFから抽出できるテキストがありません。", nil)
	}

	reportProgress(reporter, "summary", 80, "Generating summary...")
	summary, err := s.generator.Summarize(ctx, text)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, newError("GENERATION_FAILED", "要約の生成に失敗しました。", err)
	}

	reportProgress(reporter, "mcqs", 90, "Generating MCQs...")
	mcqs, err := s.generator.GenerateQuestions(ctx, text)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, newError("GENERATION_FAILED", "MCQの生成に失敗しました。", err)
	}

	// 結果はジョブ記録側に残るため、入力ファイルはここで破棄する
	if err := removeDir(ws.dir); err != nil {
		return nil, fmt.Errorf("ワークスペースの削除に失敗しました: %w", err)
	}

	return &Outcome{
		JobID:    jobID,
		Filename: manifest.OriginalName,
		Summary:  summary,
		MCQs:     mcqs,
		Pages:    manifest.Pages,
		Method:   method,
	}, nil
}

// DiscardJob はスケジュール失敗時などにワークスペースを破棄します。
func (s *Service) DiscardJob(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("jobID is required")
	}
	return removeDir(s.workspaceFor(jobID).dir)
}

type storedFile struct {
	storedName   string
	originalName string
	size         int64
	pages        int
}

func (s *Service) storeMultipartFile(ctx context.Context, file *multipart.FileHeader, inDir string) (storedFile, error) {
	if err := ctx.Err(); err != nil {
		return storedFile{}, err
	}

	src, err := file.Open()
	if err != nil {
		return storedFile{}, newError("INVALID_INPUT", "アップロードファイルを開けませんでした。", err)
	}
	defer src.Close()

	destPath := filepath.Join(inDir, storedInputFilename)
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err)
	}
	written, err := io.Copy(dest, src)
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err)
	}

	mtype, err := mimetype.DetectFile(destPath)
	if err != nil {
		return storedFile{}, fmt.Errorf("ファイル種別の判定に失敗しました: %w", err)
	}
	if !mtype.Is("application/pdf") {
		return storedFile{}, newError("INVALID_INPUT",
			fmt.Sprintf("PDFファイルのみアップロードできます (received: %s)", mtype.String()), nil)
	}

	pages, err := pdfapi.PageCountFile(destPath)
	if err != nil {
		return storedFile{}, newError("UNSUPPORTED_PDF", "PDFの解析に失敗しました。壊れている可能性があります。", err)
	}
	if s.cfg.MaxPages > 0 && pages > s.cfg.MaxPages {
		return storedFile{}, newError("LIMIT_EXCEEDED",
			fmt.Sprintf("ページ数が上限（%dページ）を超えています。", s.cfg.MaxPages), nil)
	}

	return storedFile{
		storedName:   storedInputFilename,
		originalName: filepath.Base(file.Filename),
		size:         written,
		pages:        pages,
	}, nil
}
