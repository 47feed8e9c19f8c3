// Package extract はPDFからのテキスト抽出を提供します。
// 直接抽出を優先し、埋め込みテキストがないドキュメントに対してのみ
// ページ画像のOCRにフォールバックします。
package extract

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Method はテキストがどの経路で得られたかを表します。
type Method string

const (
	MethodText Method = "text"
	MethodOCR  Method = "ocr"
)

// Phase は進捗報告の対象フェーズを表します。
type Phase string

const (
	PhaseText Phase = "extract"
	PhaseOCR  Phase = "ocr"
)

// Reporter はページ/画像単位の進捗を受け取るコールバックです。
type Reporter func(phase Phase, done, total int)

// Source はページ単位の読み取りを抽象化します。実体は go-fitz です。
type Source interface {
	NumPages() int
	Text(page int) (string, error)
	Image(page int) (image.Image, error)
	Close() error
}

// OpenFunc はファイルパスから Source を開きます。
type OpenFunc func(path string) (Source, error)

// Engine は画像1枚からテキストを認識します。
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Extractor はテキスト抽出とOCRフォールバックを組み合わせます。
// engine が nil の場合、OCRフォールバックは無効になります。
type Extractor struct {
	open   OpenFunc
	engine Engine
}

// New は go-fitz を使う Extractor を作成します。
func New(engine Engine) *Extractor {
	return &Extractor{
		open:   openFitz,
		engine: engine,
	}
}

// Extract はドキュメント全ページのテキストを連結して返します。
// 全ページのテキストが空白のみの場合、ページ画像をOCRにかけた結果を
// ページ順に連結して返します。
func (e *Extractor) Extract(ctx context.Context, path string, report Reporter) (string, Method, error) {
	src, err := e.open(path)
	if err != nil {
		return "", "", fmt.Errorf("ドキュメントを開けませんでした: %w", err)
	}
	defer src.Close()

	total := src.NumPages()
	if total == 0 {
		return "", "", fmt.Errorf("ドキュメントにページがありません")
	}

	var sb strings.Builder
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		default:
		}

		text, err := src.Text(i)
		if err != nil {
			return "", "", fmt.Errorf("ページ %d のテキスト抽出に失敗しました: %w", i+1, err)
		}
		sb.WriteString(text)
		reportPage(report, PhaseText, i+1, total)
	}

	if strings.TrimSpace(sb.String()) != "" {
		return sb.String(), MethodText, nil
	}

	if e.engine == nil {
		return "", "", fmt.Errorf("ドキュメントに埋め込みテキストがなく、OCRが無効です")
	}

	sb.Reset()
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		default:
		}

		img, err := src.Image(i)
		if err != nil {
			return "", "", fmt.Errorf("ページ %d の画像変換に失敗しました: %w", i+1, err)
		}
		text, err := e.engine.Recognize(ctx, img)
		if err != nil {
			return "", "", fmt.Errorf("ページ %d のOCRに失敗しました: %w", i+1, err)
		}
		sb.WriteString(text)
		reportPage(report, PhaseOCR, i+1, total)
	}

	return sb.String(), MethodOCR, nil
}

func reportPage(report Reporter, phase Phase, done, total int) {
	if report == nil {
		return
	}
	report(phase, done, total)
}
