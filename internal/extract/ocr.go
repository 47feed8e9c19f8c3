package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
)

// TesseractEngine は設定済みのTesseractバイナリを呼び出すOCRエンジンです。
// バイナリパスは起動時に config.ResolveTesseract で解決したものを渡します。
type TesseractEngine struct {
	binPath string
}

var _ Engine = (*TesseractEngine)(nil)

// NewTesseractEngine は TesseractEngine を作成します。
func NewTesseractEngine(binPath string) *TesseractEngine {
	return &TesseractEngine{binPath: binPath}
}

// Recognize は画像をPNGとして一時保存し、Tesseractで認識したテキストを返します。
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	tempDir, err := os.MkdirTemp("", "studybuddy-ocr-*")
	if err != nil {
		return "", fmt.Errorf("OCR用一時ディレクトリの作成に失敗しました: %w", err)
	}
	defer os.RemoveAll(tempDir)

	imagePath := filepath.Join(tempDir, "page.png")
	file, err := os.Create(imagePath)
	if err != nil {
		return "", fmt.Errorf("OCR用画像の保存に失敗しました: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return "", fmt.Errorf("OCR用画像のエンコードに失敗しました: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("OCR用画像の保存に失敗しました: %w", err)
	}

	// stdout へ認識結果を書かせる
	cmd := exec.CommandContext(ctx, t.binPath, imagePath, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("Tesseractの実行に失敗しました: %s: %w", stderr.String(), err)
	}
	return stdout.String(), nil
}
